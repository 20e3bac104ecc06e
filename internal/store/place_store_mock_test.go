package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPlaceStore(t *testing.T) (*PlaceStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = mockDB.Close()
	})
	return NewPlaceStore(mockDB), mock
}

var placeCols = []string{"id", "user_id", "name", "visited", "date_visited", "notes", "photo_key", "created_at", "updated_at"}

func TestPlaceStoreListByOwner_QueryError(t *testing.T) {
	store, mock := newMockPlaceStore(t)

	mock.ExpectQuery("SELECT .* FROM places").
		WithArgs(int64(1), false).
		WillReturnError(errors.New("disk I/O error"))

	_, err := store.ListByOwner(context.Background(), 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list places")
}

func TestPlaceStoreListByOwner_ScanError(t *testing.T) {
	store, mock := newMockPlaceStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM places").
		WithArgs(int64(1), true).
		WillReturnRows(sqlmock.NewRows(placeCols).
			AddRow(1, 1, "Tokyo", true, "not-a-date", "", nil, now, now))

	_, err := store.ListByOwner(context.Background(), 1, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan place")
}

func TestPlaceStoreGetByID_ParsesNullableColumns(t *testing.T) {
	store, mock := newMockPlaceStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM places WHERE id = ?").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(placeCols).
			AddRow(4, 1, "Cairo", true, "2014-01-01", "yay", "user_images/cairo.jpg", now, now))

	place, err := store.GetByID(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "2014-01-01", place.DateVisitedString())
	assert.Equal(t, "user_images/cairo.jpg", place.PhotoKey)
}

func TestPlaceStoreDelete_ExecError(t *testing.T) {
	store, mock := newMockPlaceStore(t)

	mock.ExpectExec("DELETE FROM places").
		WithArgs(int64(3)).
		WillReturnError(errors.New("database is locked"))

	err := store.Delete(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPlaceStoreMarkVisited_NoRows(t *testing.T) {
	store, mock := newMockPlaceStore(t)

	mock.ExpectExec("UPDATE places SET visited = 1").
		WithArgs(int64(200)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkVisited(context.Background(), 200)
	assert.ErrorIs(t, err, ErrNotFound)
}
