package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/wishlist/internal/photostore"
)

func TestLocalPhotoStoreSaveAndGet(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalPhotoStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake jpeg data")

	key, err := store.Save(ctx, "user_images", "tokyo.jpg", "image/jpeg", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.Equal(t, "user_images/tokyo.jpg", key)
	assert.FileExists(t, filepath.Join(tmpdir, "user_images", "tokyo.jpg"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/jpeg", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalPhotoStoreGet_TypeFollowsContentNotUploadName(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "user_images", "payload.html", "image/png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, "user_images/payload.png", key)

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "image/png", mimeType)
}

func TestLocalPhotoStoreSave_NameCollision(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Save(ctx, "user_images", "beach.png", "image/png", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "user_images", "beach.png", "image/png", strings.NewReader("two"))
	require.NoError(t, err)

	assert.Equal(t, "user_images/beach.png", first)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "user_images/beach_"))
	assert.True(t, strings.HasSuffix(second, ".png"))

	reader, _, err := store.Get(ctx, first)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestLocalPhotoStoreSave_SanitizesFilename(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalPhotoStore(tmpdir)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), "user_images", "../../escape.jpg", "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "user_images/escape.jpg", key)

	_, err = os.Stat(filepath.Join(filepath.Dir(tmpdir), "escape.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalPhotoStoreDelete(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	key, err := store.Save(ctx, "user_images", "test.jpg", "image/jpeg", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, key), photostore.ErrNotFound)
}

func TestLocalPhotoStoreNotFound(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "user_images/nonexistent.jpg")
	assert.ErrorIs(t, err, photostore.ErrNotFound)
}

func TestLocalPhotoStorePathTraversal(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, photostore.ErrNotFound)

	err = store.Delete(ctx, "../outside.jpg")
	assert.Error(t, err)

	_, err = store.Save(ctx, "../outside", "x.jpg", "image/jpeg", strings.NewReader("x"))
	assert.Error(t, err)
}
