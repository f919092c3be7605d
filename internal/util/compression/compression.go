// Package compression holds the codecs used for stored draft payloads.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NoneCompressor passes data through unchanged.
type NoneCompressor struct{}

func (NoneCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

func (NoneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// New returns the compressor registered under name: "zstd", "gzip" or
// "none". An empty name selects zstd.
func New(name string) (Compressor, error) {
	switch name {
	case "", "zstd":
		return ZstdCompressor{}, nil
	case "gzip":
		return GzipCompressor{}, nil
	case "none":
		return NoneCompressor{}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}
