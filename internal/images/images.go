// Package images stores uploaded post images and checks image URLs.
package images

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/apperr"
	"github.com/debemdeboas/postly/internal/model"
)

const DefaultMaxBytes = 5 << 20

var imagesLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	imagesLogger = l
}

// Store saves an image and returns the URL it is served from.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Extensions maps each accepted content type to the file extension uploads
// of that type are stored under.
var Extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Validate checks an upload against the accepted types and maxBytes. The
// content type is sniffed from data; the declared type must agree with it
// unless it is empty or generic.
func Validate(declared string, data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", apperr.NewValidation("file", "No file provided")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", apperr.NewValidation("file", fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes>>20))
	}

	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if _, ok := Extensions[sniffed]; !ok {
		return "", apperr.NewValidation("file", "Invalid file type. Only JPEG, PNG, GIF, and WebP are allowed.")
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/jpg" {
		declared = "image/jpeg"
	}
	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return "", apperr.NewValidation("file", "File content does not match its type")
	}
	return sniffed, nil
}

// NewName returns a collision-free object name for an upload.
func NewName(contentType string) string {
	return uuid.NewString() + Extensions[contentType]
}

// IsValidImageURL reports whether s is an absolute http or https URL.
func IsValidImageURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsLocalPath reports whether s is a path on this site, such as the URL of
// an upload served from the file store.
func IsLocalPath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// ImageOrFallback returns s when it is a usable image URL and the
// placeholder otherwise.
func ImageOrFallback(s string) string {
	if IsValidImageURL(s) || IsLocalPath(s) {
		return s
	}
	return model.DefaultImage
}
