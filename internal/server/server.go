package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"diagramai/internal/app"
	"diagramai/internal/ratelimit"
	"diagramai/internal/util"
	"diagramai/pkg/diagram"
	"diagramai/pkg/domain"
)

const defaultMaxUploadBytes = 20 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	RedisAddr                  string
	RedisPassword              string
	GenerateRateLimitPerMinute int
	CORSAllowOrigin            string
	TrustForwardedHeaders      bool
	MaxUploadBytes             int64
	AllowedExtensions          []string
}

// Server exposes the HTTP API.
type Server struct {
	app               *app.App
	mux               *http.ServeMux
	corsOrigin        string
	trustForwarded    bool
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	generateLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	var limiter *ratelimit.FixedWindowLimiter
	if cfg.GenerateRateLimitPerMinute > 0 {
		var err error
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "diagramai:ratelimit:generate",
			cfg.GenerateRateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init generate limiter: %w", err)
		}
	}
	s := &Server{
		app:               cfg.App,
		mux:               http.NewServeMux(),
		corsOrigin:        cfg.CORSAllowOrigin,
		trustForwarded:    cfg.TrustForwardedHeaders,
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		generateLimiter:   limiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	h = util.WithCORS(s.corsOrigin, h)
	return util.WithSecurityHeaders(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// diagrams (auth required)
	s.mux.Handle("/api/diagrams", s.authenticated(s.handleDiagrams))
	s.mux.Handle("/api/diagrams/from-dataset", s.authenticated(s.handleDatasetGenerate))
	s.mux.Handle("/api/diagrams/from-document", s.authenticated(s.handleDocumentGenerate))
	s.mux.Handle("/api/diagrams/", s.authenticated(s.handleDiagramByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.app.UserByToken(r.Context(), token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// allowGenerate enforces the per-client generate quota. A nil limiter means
// limiting is disabled.
func (s *Server) allowGenerate(w http.ResponseWriter, r *http.Request) bool {
	if s.generateLimiter == nil {
		return true
	}
	key := util.ClientIP(r, s.trustForwarded)
	if s.generateLimiter.Allow(key) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "too many generation requests")
	return false
}

// generation error mapping shared by the three generate handlers.
func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, diagram.ErrPromptRequired),
		errors.Is(err, diagram.ErrKindRequired),
		errors.Is(err, diagram.ErrNoUsableRows):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, diagram.ErrInsufficientText):
		writeError(w, http.StatusUnprocessableEntity, "could not extract sufficient text from the document")
	default:
		writeError(w, http.StatusInternalServerError, "generation could not be saved")
	}
}

func normalizeMaxBytes(v int64) int64 {
	if v <= 0 {
		return defaultMaxUploadBytes
	}
	return v
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".pdf", ".txt", ".md", ".html"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func (s *Server) extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := s.allowedExtensions[ext]
	return ok
}
