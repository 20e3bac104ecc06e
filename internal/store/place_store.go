package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/wishlist/internal/domain"
)

// ErrNotFound is returned by mutating calls that matched no row.
var ErrNotFound = errors.New("not found")

const placeColumns = `id, user_id, name, visited, date_visited, notes, photo_key, created_at, updated_at`

type PlaceStore struct {
	db *sql.DB
}

func NewPlaceStore(db *sql.DB) *PlaceStore {
	return &PlaceStore{db: db}
}

func (s *PlaceStore) Create(ctx context.Context, userID int64, name string, visited bool) (*domain.Place, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO places (user_id, name, visited) VALUES (?, ?, ?)
	`, userID, name, visited)
	if err != nil {
		return nil, fmt.Errorf("failed to create place: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *PlaceStore) GetByID(ctx context.Context, id int64) (*domain.Place, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ?`, id)

	place, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	return place, nil
}

// ListByOwner returns userID's places with the given visited flag, by name.
func (s *PlaceStore) ListByOwner(ctx context.Context, userID int64, visited bool) ([]*domain.Place, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+placeColumns+` FROM places
		WHERE user_id = ? AND visited = ?
		ORDER BY name ASC, id ASC
	`, userID, visited)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return collectPlaces(rows)
}

// Search matches userID's places whose name contains query, ignoring case.
// Matching happens in Go so that % and _ are literal and non-ASCII letters
// fold.
func (s *PlaceStore) Search(ctx context.Context, userID int64, query string) ([]*domain.Place, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+placeColumns+` FROM places
		WHERE user_id = ?
		ORDER BY name ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to search places: %w", err)
	}
	places, err := collectPlaces(rows)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]*domain.Place, 0, len(places))
	for _, p := range places {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (s *PlaceStore) MarkVisited(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE places SET visited = 1, updated_at = datetime('now') WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark place visited: %w", err)
	}
	return requireAffected(result, "place")
}

// UpdateDetails overwrites the review fields. An empty photoKey clears the photo.
func (s *PlaceStore) UpdateDetails(ctx context.Context, id int64, notes string, dateVisited *time.Time, photoKey string) error {
	var date sql.NullString
	if dateVisited != nil {
		date = sql.NullString{String: dateVisited.Format(domain.DateLayout), Valid: true}
	}
	photo := sql.NullString{String: photoKey, Valid: photoKey != ""}

	result, err := s.db.ExecContext(ctx, `
		UPDATE places SET notes = ?, date_visited = ?, photo_key = ?, updated_at = datetime('now')
		WHERE id = ?
	`, notes, date, photo, id)
	if err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	return requireAffected(result, "place")
}

func (s *PlaceStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM places WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	return requireAffected(result, "place")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (*domain.Place, error) {
	place := &domain.Place{}
	var date, photo sql.NullString
	if err := row.Scan(&place.ID, &place.UserID, &place.Name, &place.Visited, &date,
		&place.Notes, &photo, &place.CreatedAt, &place.UpdatedAt); err != nil {
		return nil, err
	}

	if date.Valid && date.String != "" {
		t, err := time.Parse(domain.DateLayout, date.String)
		if err != nil {
			return nil, fmt.Errorf("invalid date_visited %q: %w", date.String, err)
		}
		place.DateVisited = &t
	}
	place.PhotoKey = photo.String

	return place, nil
}

func collectPlaces(rows *sql.Rows) ([]*domain.Place, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var places []*domain.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, place)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating places: %w", err)
	}

	return places, nil
}

func requireAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}

	return nil
}
