package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "wishlist_flash"

// setFlash queues messages to be shown on the next rendered page.
func (s *Server) setFlash(w http.ResponseWriter, messages ...string) {
	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns pending messages and clears them.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var messages []string
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil
	}
	return messages
}
