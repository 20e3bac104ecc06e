package domain

import "time"

// DateLayout is the wire and storage format for Place.DateVisited.
const DateLayout = "2006-01-02"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Place struct {
	ID          int64
	UserID      int64
	Name        string
	Visited     bool
	DateVisited *time.Time
	Notes       string
	PhotoKey    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPhoto reports whether a stored image is attached to the place.
func (p *Place) HasPhoto() bool {
	return p.PhotoKey != ""
}

// OwnedBy reports whether userID is the place's owner.
func (p *Place) OwnedBy(userID int64) bool {
	return p.UserID == userID
}

// DateVisitedString formats DateVisited as YYYY-MM-DD, or "" when unset.
func (p *Place) DateVisitedString() string {
	if p.DateVisited == nil {
		return ""
	}
	return p.DateVisited.Format(DateLayout)
}
