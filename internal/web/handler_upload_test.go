package web

import (
	"bytes"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedImageMIME(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantMIME     string
		wantDetected bool
	}{
		{
			name:         "JPEG",
			data:         []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "PNG",
			data:         []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
			wantMIME:     "image/png",
			wantDetected: true,
		},
		{
			name:         "GIF",
			data:         []byte("GIF89a"),
			wantMIME:     "image/gif",
			wantDetected: true,
		},
		{
			name:         "WebP",
			data:         append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 10)...),
			wantMIME:     "image/webp",
			wantDetected: true,
		},
		{
			name: "RIFF but not WebP",
			data: append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 10)...),
		},
		{
			name: "PDF disguised as image",
			data: []byte("%PDF-1.4 malicious content"),
		},
		{
			name: "HTML",
			data: []byte("<html><script>alert(1)</script></html>"),
		},
		{
			name: "empty",
			data: []byte{},
		},
		{
			name: "too short for WebP check",
			data: []byte("RIFF"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMIME, gotDetected := allowedImageMIME(tt.data)
			assert.Equal(t, tt.wantDetected, gotDetected)
			assert.Equal(t, tt.wantMIME, gotMIME)
		})
	}
}

// fileHeader round-trips data through a multipart form so the returned
// header can be opened like a real upload.
func fileHeader(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["photo"][0]
}

func TestReadPhoto(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

	photo, err := readPhoto(fileHeader(t, "kyoto.jpg", jpeg), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "kyoto.jpg", photo.Filename)
	assert.Equal(t, "image/jpeg", photo.MimeType)
	assert.Equal(t, jpeg, photo.Data)
}

func TestReadPhoto_RejectsUnsupportedFormat(t *testing.T) {
	_, err := readPhoto(fileHeader(t, "notes.txt", []byte("plain text")), slog.Default())
	assert.ErrorIs(t, err, errPhotoFormat)
}

func TestReadPhoto_RejectsOversized(t *testing.T) {
	fh := fileHeader(t, "big.jpg", []byte{0xFF, 0xD8, 0xFF})
	fh.Size = maxPhotoSize + 1

	_, err := readPhoto(fh, slog.Default())
	assert.ErrorIs(t, err, errPhotoTooLarge)
}
