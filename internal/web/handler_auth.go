package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/vbonduro/wishlist/internal/auth"
	"github.com/vbonduro/wishlist/internal/logging"
)

const sessionCookie = "wishlist_session"

// requireUser resolves the session cookie into an auth.Identity. Anonymous
// GET requests are sent to the login page; anything else gets 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		if err != nil {
			logging.FromContext(r.Context()).Debug("unauthenticated request", "path", r.URL.Path, "reason", err)
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) identify(r *http.Request) (*auth.Identity, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, err
	}
	claims, err := s.auth.Sessions().Parse(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: userID, Username: claims.Username, Claims: claims}, nil
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, http.StatusOK, safeNext(r.URL.Query().Get("next")), "", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if !s.limiter.Allow(clientIP(r)) {
		logger.Warn("login rate limited", "client_ip", clientIP(r))
		http.Error(w, "too many login attempts, try again later", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}
	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))

	if errs := validateForm(&form); errs != nil {
		s.renderLogin(w, r, http.StatusBadRequest, next, form.Username, errs)
		return
	}

	session, err := s.auth.Login(r.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Info("login failed", "username", form.Username, "client_ip", clientIP(r))
		s.renderLogin(w, r, http.StatusUnauthorized, next, form.Username,
			FieldErrors{"form": "Please enter a correct username and password."})
		return
	}
	if err != nil {
		http.Error(w, "login failed", http.StatusInternalServerError)
		logger.Error("login failed", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Info("user logged in", "user_id", session.User.ID)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	if id, err := s.identify(r); err == nil {
		if err := s.auth.Logout(r.Context(), id.Claims); err != nil {
			logger.Error("failed to revoke session", "user_id", id.UserID, "error", err)
		} else {
			logger.Info("user logged out", "user_id", id.UserID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, next, username string, errs FieldErrors) {
	data := pageData(r, "login")
	data["Next"] = next
	data["Username"] = username
	data["Errors"] = errs
	if err := s.renderPage(w, status, data, "base.html", "pages/login.html"); err != nil {
		logging.FromContext(r.Context()).Error("render page failed", "error", err)
	}
}

// safeNext limits post-login redirects to local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
