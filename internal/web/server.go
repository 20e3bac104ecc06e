package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/wishlist/internal/auth"
	"github.com/vbonduro/wishlist/internal/domain"
	"github.com/vbonduro/wishlist/internal/logging"
	"github.com/vbonduro/wishlist/internal/service"
)

// Pinger reports whether the backing database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options tunes the HTTP layer. Zero values disable the login rate limit and
// issue non-Secure cookies.
type Options struct {
	SecureCookies      bool
	LoginRatePerMinute int
	LoginBurst         int
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Only set it when a reverse proxy overwrites those headers.
	TrustProxyHeaders bool
	DB                Pinger
}

type Server struct {
	places    *service.PlaceService
	auth      *auth.Service
	templates embed.FS
	router    chi.Router
	tmplFuncs template.FuncMap
	logger    *slog.Logger
	opts      Options
	limiter   *loginLimiter
}

func NewServer(places *service.PlaceService, authSvc *auth.Service, tmpl embed.FS, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		places:    places,
		auth:      authSvc,
		templates: tmpl,
		logger:    logger,
		opts:      opts,
		limiter:   newLoginLimiter(opts.LoginRatePerMinute, opts.LoginBurst),
		tmplFuncs: template.FuncMap{
			"ymd": func(t time.Time) string { return t.Format(domain.DateLayout) },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/", s.handleListWishlist)
		r.Post("/", s.handleCreatePlace)
		r.Get("/visited", s.handleListVisited)
		r.Get("/search", s.handleSearch)

		r.Route("/place/{id}", func(r chi.Router) {
			r.Get("/", s.handlePlaceDetail)
			r.Post("/", s.handleUpdatePlace)
			r.Post("/was_visited", s.handleMarkVisited)
			r.Post("/delete", s.handleDeletePlace)
			r.Get("/photo", s.handleGetPhoto)
		})
	})

	s.router = r
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"form-action 'self'; "+
				"frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger attaches a logger carrying the request id to the context and
// logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), logger)))

		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.DB.PingContext(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// renderPage parses and executes a full-page template set. Output is
// buffered so a template failure still produces a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// pageData returns the values every page template expects.
func pageData(r *http.Request, nav string) map[string]any {
	return map[string]any{
		"ActiveNav": nav,
		"User":      auth.IdentityFromContext(r.Context()),
	}
}
