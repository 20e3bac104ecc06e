package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/vbonduro/wishlist/internal/logging"
	"github.com/vbonduro/wishlist/internal/service"
)

const (
	maxPhotoSize = 10 * 1024 * 1024 // 10 MB
	// maxUploadBody leaves room for the other form fields and multipart framing.
	maxUploadBody = maxPhotoSize + 1024*1024
)

var (
	errPhotoTooLarge = errors.New("photo exceeds 10 MB")
	errPhotoFormat   = errors.New("unsupported image format")
)

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readPhoto loads an uploaded image part and checks its size and format.
func readPhoto(fh *multipart.FileHeader, logger *slog.Logger) (*service.PhotoUpload, error) {
	if fh.Size > maxPhotoSize {
		return nil, errPhotoTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer closeWithLog(file, "upload file", logger)

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxPhotoSize {
		return nil, errPhotoTooLarge
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, errPhotoFormat
	}
	return &service.PhotoUpload{Filename: fh.Filename, MimeType: mimeType, Data: data}, nil
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	placeID, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	id := identity(r)
	reader, mimeType, err := s.places.OpenPhoto(r.Context(), id.UserID, placeID)
	if err != nil {
		s.serviceError(w, r, err, "failed to open photo")
		return
	}
	defer closeWithLog(reader, "photo reader", logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := io.Copy(w, reader); err != nil {
		logger.Error("write photo failed", "place_id", placeID, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
