package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/wishlist/internal/auth"
	"github.com/vbonduro/wishlist/internal/domain"
	"github.com/vbonduro/wishlist/internal/logging"
	"github.com/vbonduro/wishlist/internal/service"
)

const flashUpdated = "Trip information updated"

func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	s.renderWishlist(w, r, http.StatusOK, placeForm{}, nil)
}

func (s *Server) renderWishlist(w http.ResponseWriter, r *http.Request, status int, form placeForm, errs FieldErrors) {
	logger := logging.FromContext(r.Context())
	places, err := s.places.ListWishlist(r.Context(), identity(r).UserID)
	if err != nil {
		http.Error(w, "failed to list places", http.StatusInternalServerError)
		logger.Error("list wishlist failed", "error", err)
		return
	}

	data := pageData(r, "wishlist")
	data["Places"] = places
	data["Form"] = form
	data["Errors"] = errs
	if err := s.renderPage(w, status, data,
		"base.html", "pages/wishlist.html", "partials/place_row.html",
	); err != nil {
		logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	// Only name and visited are read; the owner always comes from the session.
	form := placeForm{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Visited: isTruthy(r.PostFormValue("visited")),
	}
	if errs := validateForm(&form); errs != nil {
		s.renderWishlist(w, r, http.StatusBadRequest, form, errs)
		return
	}

	if _, err := s.places.CreatePlace(r.Context(), identity(r).UserID, form.Name, form.Visited); err != nil {
		http.Error(w, "failed to create place", http.StatusInternalServerError)
		logger.Error("create place failed", "error", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleListVisited(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	places, err := s.places.ListVisited(r.Context(), identity(r).UserID)
	if err != nil {
		http.Error(w, "failed to list places", http.StatusInternalServerError)
		logger.Error("list visited failed", "error", err)
		return
	}

	data := pageData(r, "visited")
	data["Places"] = places
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/visited.html", "partials/place_row.html",
	); err != nil {
		logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var places []*domain.Place
	if query != "" {
		var err error
		places, err = s.places.Search(r.Context(), identity(r).UserID, query)
		if err != nil {
			http.Error(w, "search failed", http.StatusInternalServerError)
			logger.Error("search failed", "error", err)
			return
		}
	}

	data := pageData(r, "search")
	data["Query"] = query
	data["Results"] = places
	if err := s.renderPage(w, http.StatusOK, data,
		"base.html", "pages/search.html", "partials/place_row.html",
	); err != nil {
		logger.Error("render page failed", "error", err)
	}
}

// handleMarkVisited redirects to the list even when the caller does not own
// the place. The record is left unchanged in that case and the attempt is
// logged.
func (s *Server) handleMarkVisited(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	placeID, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := s.places.MarkVisited(r.Context(), identity(r).UserID, placeID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrForbidden):
		logger.Warn("mark visited by non-owner ignored", "place_id", placeID)
	default:
		s.serviceError(w, r, err, "failed to mark visited")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePlaceDetail(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	placeID, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	place, err := s.places.GetPlace(r.Context(), identity(r).UserID, placeID)
	if err != nil {
		s.serviceError(w, r, err, "failed to get place")
		return
	}

	data := pageData(r, "")
	data["Place"] = place
	data["Flash"] = s.popFlash(w, r)
	if err := s.renderPage(w, http.StatusOK, data, "base.html", "pages/place_details.html"); err != nil {
		logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	placeID, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	userID := identity(r).UserID

	// Ownership is settled before the body is read.
	if _, err := s.places.GetPlace(r.Context(), userID, placeID); err != nil {
		s.serviceError(w, r, err, "failed to get place")
		return
	}

	detailURL := "/place/" + strconv.FormatInt(placeID, 10)
	upd, errs := s.parseDetailsUpdate(w, r)
	// The server only cleans up the form of the request it created, not of
	// the copies made by middleware, so spilled upload files go here.
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logger.Error("failed to remove multipart temp files", "error", err)
			}
		}
	}()
	if errs != nil {
		logger.Info("place details rejected", "place_id", placeID, "fields", len(errs))
		s.setFlash(w, errs.Messages()...)
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}

	if _, err := s.places.UpdateDetails(r.Context(), userID, placeID, upd); err != nil {
		logger.Warn("update place failed", "place_id", placeID, "error", err)
		s.serviceError(w, r, err, "failed to update place")
		return
	}
	s.setFlash(w, flashUpdated)
	http.Redirect(w, r, detailURL, http.StatusSeeOther)
}

// parseDetailsUpdate reads the review form. Fields absent from the request
// are left unset so the stored values are kept.
func (s *Server) parseDetailsUpdate(w http.ResponseWriter, r *http.Request) (service.DetailsUpdate, FieldErrors) {
	logger := logging.FromContext(r.Context())
	var upd service.DetailsUpdate

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logger.Warn("failed to parse details form", "error", err)
		return upd, FieldErrors{"photo": "Upload is too large or malformed"}
	}

	notes, hasNotes := r.PostForm["notes"]
	date, hasDate := r.PostForm["date_visited"]
	form := detailsForm{}
	if hasNotes {
		form.Notes = notes[0]
	}
	if hasDate {
		form.DateVisited = strings.TrimSpace(date[0])
	}
	errs := validateForm(&form)
	if errs == nil {
		errs = FieldErrors{}
	}

	if hasNotes {
		upd.Notes = &form.Notes
	}
	if hasDate {
		upd.SetDateVisited = true
		if form.DateVisited != "" {
			if t, err := time.Parse(domain.DateLayout, form.DateVisited); err == nil {
				upd.DateVisited = &t
			}
		}
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["photo"]; len(files) > 0 && files[0].Filename != "" {
			photo, err := readPhoto(files[0], logger)
			switch {
			case errors.Is(err, errPhotoTooLarge):
				errs["photo"] = "Photo must be at most 10 MB"
			case errors.Is(err, errPhotoFormat):
				errs["photo"] = "Upload a valid image (JPEG, PNG, GIF or WebP)"
			case err != nil:
				logger.Error("read upload failed", "error", err)
				errs["photo"] = "Could not read the uploaded file"
			default:
				upd.Photo = photo
			}
		}
	}
	upd.ClearPhoto = upd.Photo == nil && isTruthy(r.PostFormValue("photo-clear"))

	if len(errs) > 0 {
		return upd, errs
	}
	return upd, nil
}

func (s *Server) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	placeID, ok := parseID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := s.places.DeletePlace(r.Context(), identity(r).UserID, placeID); err != nil {
		s.serviceError(w, r, err, "failed to delete place")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// serviceError maps service sentinel errors to HTTP statuses.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, service.ErrForbidden):
		logging.FromContext(r.Context()).Warn("forbidden", "path", r.URL.Path)
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		logging.FromContext(r.Context()).Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

// parseID extracts the {id} path variable. Non-numeric ids report false.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// identity returns the session user set by requireUser.
func identity(r *http.Request) *auth.Identity {
	return auth.IdentityFromContext(r.Context())
}
