package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"theonebook/internal/app"
	"theonebook/internal/ratelimit"
	"theonebook/internal/util"
	"theonebook/pkg/domain"
	"theonebook/pkg/storage"
)

const serviceName = "theonebook"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	AllowedOrigins []string
	TrustedProxies *util.TrustedProxies
	// LoginLimiter throttles POST /api/auth/login per client IP. Nil disables it.
	LoginLimiter ratelimit.Limiter
	// ExportRequireAuth puts the export endpoints behind the bearer gate.
	ExportRequireAuth bool
}

// Server exposes HTTP endpoints for the backend.
type Server struct {
	app               *app.App
	router            chi.Router
	allowedOrigins    []string
	trusted           *util.TrustedProxies
	loginLimiter      ratelimit.Limiter
	exportRequireAuth bool
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	s := &Server{
		app:               cfg.App,
		router:            chi.NewRouter(),
		allowedOrigins:    cfg.AllowedOrigins,
		trusted:           cfg.TrustedProxies,
		loginLimiter:      cfg.LoginLimiter,
		exportRequireAuth: cfg.ExportRequireAuth,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog(serviceName,
			util.WithSecurityHeaders(
				util.WithCORS(s.allowedOrigins, s.router),
			),
		),
	)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	})

	r.Get("/healthz", s.handleHealth)

	export := http.HandlerFunc(s.handleExport)
	if s.exportRequireAuth {
		export = s.authenticated(func(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
			s.handleExport(w, r)
		})
	}
	r.Get("/export", export)
	r.Get("/api/pdf/export", export)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.authenticated(s.handleLogout))
		r.Get("/me", s.authenticated(s.handleMe))
		r.Get("/users", s.authenticated(s.handleListUsers))
		r.Put("/last-position", s.authenticated(s.handleLastPosition))
	})

	r.Route("/api/chapters", func(r chi.Router) {
		r.Get("/", s.handleListChapters)
		r.Post("/", s.authenticated(s.handleCreateChapter))
		r.Get("/{id}", s.handleGetChapter)
		r.Put("/{id}", s.authenticated(s.handleUpdateChapter))
		r.Delete("/{id}", s.authenticated(s.handleDeleteChapter))
		r.Get("/{id}/pages", s.handleListChapterPages)
	})

	r.Route("/api/pages", func(r chi.Router) {
		r.Get("/", s.handleListPages)
		r.Post("/", s.authenticated(s.handleCreatePage))
		r.Get("/{id}", s.handleGetPage)
		r.Put("/{id}", s.authenticated(s.handleUpdatePage))
		r.Delete("/{id}", s.authenticated(s.handleDeletePage))
	})

	r.Route("/api/notes", func(r chi.Router) {
		r.Get("/", s.authenticated(s.handleListNotes))
		r.Post("/", s.authenticated(s.handleCreateNote))
		r.Get("/{id}", s.authenticated(s.handleGetNote))
		r.Put("/{id}", s.authenticated(s.handleUpdateNote))
		r.Delete("/{id}", s.authenticated(s.handleDeleteNote))
	})

	r.Post("/api/upload", s.authenticated(s.handleUpload))

	if fs, ok := s.app.Objects().(*storage.FileStore); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(fs.Dir()))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrapper
type authHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) authenticated(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "authorize", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
			return
		}
		id, err := s.app.Authenticate(r.Context(), token)
		if err != nil {
			s.audit(r, "authorize", "fail", "reason", err.Error())
			s.writeAppError(w, r, err)
			return
		}
		next(w, r, id)
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "AUTH_RATE_LIMITED", "too many requests, try again later")
	return false
}
