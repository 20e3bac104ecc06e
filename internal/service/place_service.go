package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vbonduro/wishlist/internal/domain"
	"github.com/vbonduro/wishlist/internal/photostore"
)

var (
	ErrNotFound  = errors.New("place not found")
	ErrForbidden = errors.New("place belongs to another user")
)

// PhotoDir is the storage directory for uploaded place photos.
const PhotoDir = "user_images"

// placeRepository is the subset of store.PlaceStore that PlaceService requires.
type placeRepository interface {
	Create(ctx context.Context, userID int64, name string, visited bool) (*domain.Place, error)
	GetByID(ctx context.Context, id int64) (*domain.Place, error)
	ListByOwner(ctx context.Context, userID int64, visited bool) ([]*domain.Place, error)
	Search(ctx context.Context, userID int64, query string) ([]*domain.Place, error)
	MarkVisited(ctx context.Context, id int64) error
	UpdateDetails(ctx context.Context, id int64, notes string, dateVisited *time.Time, photoKey string) error
	Delete(ctx context.Context, id int64) error
}

type PlaceService struct {
	places   placeRepository
	photoStg photostore.PhotoStore
	logger   *slog.Logger
}

func NewPlaceService(places placeRepository, photoStg photostore.PhotoStore, logger *slog.Logger) *PlaceService {
	return &PlaceService{
		places:   places,
		photoStg: photoStg,
		logger:   logger,
	}
}

// ListWishlist returns the user's places not yet visited, by name.
func (s *PlaceService) ListWishlist(ctx context.Context, userID int64) ([]*domain.Place, error) {
	return s.places.ListByOwner(ctx, userID, false)
}

func (s *PlaceService) ListVisited(ctx context.Context, userID int64) ([]*domain.Place, error) {
	return s.places.ListByOwner(ctx, userID, true)
}

func (s *PlaceService) Search(ctx context.Context, userID int64, query string) ([]*domain.Place, error) {
	return s.places.Search(ctx, userID, query)
}

// CreatePlace adds a place owned by userID.
func (s *PlaceService) CreatePlace(ctx context.Context, userID int64, name string, visited bool) (*domain.Place, error) {
	place, err := s.places.Create(ctx, userID, name, visited)
	if err != nil {
		return nil, err
	}
	s.logger.Info("place created", "place_id", place.ID, "user_id", userID, "visited", visited)
	return place, nil
}

// GetPlace returns the place if userID owns it.
func (s *PlaceService) GetPlace(ctx context.Context, userID, placeID int64) (*domain.Place, error) {
	place, err := s.places.GetByID(ctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	if place == nil {
		return nil, ErrNotFound
	}
	if !place.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return place, nil
}

// MarkVisited flags the place as visited. A non-owner gets ErrForbidden and
// the place is left unchanged.
func (s *PlaceService) MarkVisited(ctx context.Context, userID, placeID int64) error {
	place, err := s.GetPlace(ctx, userID, placeID)
	if err != nil {
		return err
	}
	if place.Visited {
		return nil
	}
	if err := s.places.MarkVisited(ctx, place.ID); err != nil {
		return fmt.Errorf("failed to mark visited: %w", err)
	}
	s.logger.Info("place marked visited", "place_id", place.ID, "user_id", userID)
	return nil
}

// PhotoUpload is an image received from the client.
type PhotoUpload struct {
	Filename string
	MimeType string
	Data     []byte
}

// DetailsUpdate lists the review fields submitted by the client. Nil or unset
// fields keep their stored value.
type DetailsUpdate struct {
	Notes          *string
	SetDateVisited bool
	DateVisited    *time.Time
	Photo          *PhotoUpload
	ClearPhoto     bool
}

// UpdateDetails applies upd to the owner's place. A new photo is stored
// before the row changes; the replaced file is deleted afterwards.
func (s *PlaceService) UpdateDetails(ctx context.Context, userID, placeID int64, upd DetailsUpdate) (*domain.Place, error) {
	place, err := s.GetPlace(ctx, userID, placeID)
	if err != nil {
		return nil, err
	}

	notes := place.Notes
	if upd.Notes != nil {
		notes = *upd.Notes
	}
	date := place.DateVisited
	if upd.SetDateVisited {
		date = upd.DateVisited
	}

	oldKey := place.PhotoKey
	newKey := oldKey
	switch {
	case upd.Photo != nil:
		newKey, err = s.photoStg.Save(ctx, PhotoDir, upd.Photo.Filename, upd.Photo.MimeType, bytes.NewReader(upd.Photo.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to save photo: %w", err)
		}
		s.logger.Debug("photo saved", "place_id", place.ID, "storage_key", newKey)
	case upd.ClearPhoto:
		newKey = ""
	}

	if err := s.places.UpdateDetails(ctx, place.ID, notes, date, newKey); err != nil {
		if newKey != oldKey && newKey != "" {
			s.deletePhotoFile(ctx, place.ID, newKey)
		}
		return nil, fmt.Errorf("failed to update place: %w", err)
	}

	if oldKey != "" && oldKey != newKey {
		s.deletePhotoFile(ctx, place.ID, oldKey)
	}

	s.logger.Info("place details updated", "place_id", place.ID, "user_id", userID)
	return s.places.GetByID(ctx, place.ID)
}

// DeletePlace removes the owner's place and its photo file.
func (s *PlaceService) DeletePlace(ctx context.Context, userID, placeID int64) error {
	place, err := s.GetPlace(ctx, userID, placeID)
	if err != nil {
		return err
	}

	if err := s.places.Delete(ctx, place.ID); err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if place.HasPhoto() {
		s.deletePhotoFile(ctx, place.ID, place.PhotoKey)
	}

	s.logger.Info("place deleted", "place_id", place.ID, "user_id", userID)
	return nil
}

// OpenPhoto returns a reader for the owner's place photo. The caller closes it.
func (s *PlaceService) OpenPhoto(ctx context.Context, userID, placeID int64) (io.ReadCloser, string, error) {
	place, err := s.GetPlace(ctx, userID, placeID)
	if err != nil {
		return nil, "", err
	}
	if !place.HasPhoto() {
		return nil, "", ErrNotFound
	}

	reader, mimeType, err := s.photoStg.Get(ctx, place.PhotoKey)
	if errors.Is(err, photostore.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open photo: %w", err)
	}
	return reader, mimeType, nil
}

// deletePhotoFile removes a stored file. Failures are logged, not returned.
func (s *PlaceService) deletePhotoFile(ctx context.Context, placeID int64, key string) {
	err := s.photoStg.Delete(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug("photo deleted", "place_id", placeID, "storage_key", key)
	case errors.Is(err, photostore.ErrNotFound):
		s.logger.Warn("photo file already missing", "place_id", placeID, "storage_key", key)
	default:
		s.logger.Error("failed to delete photo file", "place_id", placeID, "storage_key", key, "error", err)
	}
}
