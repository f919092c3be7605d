package images

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

const UploadsURLPath = "/uploads/"

// FSStore writes uploads into a directory served under UploadsURLPath.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", errors.New("empty image name")
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "writing image")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "closing image")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", errors.Wrap(err, "setting image permissions")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", errors.Wrap(err, "renaming image")
	}

	imagesLogger.Info().Str("name", name).Int("bytes", len(data)).Msg("Image stored")
	return path.Join(UploadsURLPath, name), nil
}

// Handler serves the stored files. Mount it at UploadsURLPath.
func (s *FSStore) Handler() http.Handler {
	return http.StripPrefix(UploadsURLPath, http.FileServer(http.Dir(s.dir)))
}
