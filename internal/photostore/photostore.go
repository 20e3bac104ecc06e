package photostore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get and Delete when no file exists for the key.
var ErrNotFound = errors.New("photo not found")

// PhotoStore persists image files under a directory-like prefix. Storage keys
// are slash-separated and relative to the store root, e.g. "user_images/rome.jpg".
type PhotoStore interface {
	// Save writes r as dir/filename. When the name is already taken a short
	// random suffix is added; the key actually used is returned.
	Save(ctx context.Context, dir, filename, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// CleanFilename reduces an uploaded filename to a safe base name. Characters
// outside [A-Za-z0-9._-] become underscores; when no usable stem remains the
// name "photo" is used. The extension always matches mimeType, so a missing
// or mismatched one is replaced.
func CleanFilename(name, mimeType string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	cleaned = strings.TrimLeft(cleaned, ".")

	ext := path.Ext(cleaned)
	stem := strings.TrimSuffix(cleaned, ext)
	if strings.Trim(stem, "_") == "" {
		stem = "photo"
	}
	ext = strings.ToLower(ext)
	if !extMatches(ext, mimeType) {
		ext = MimeTypeToExt(mimeType)
	}
	return stem + ext
}

func extMatches(ext, mimeType string) bool {
	if mimeType == "image/jpeg" && ext == ".jpeg" {
		return true
	}
	return ext == MimeTypeToExt(mimeType)
}

// WithSuffix inserts a short random token before the extension of name.
func WithSuffix(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:8] + ext
}

func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func ExtToMimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
