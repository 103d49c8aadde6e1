// Package api implements the HTTP layer for the CardValueLab backend.
// Handlers are methods on *Server. Each handler file is responsible for one
// endpoint and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/cardvaluelab/backend/internal/email"
	"github.com/cardvaluelab/backend/internal/verify"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// SiteURL is the public calculator site, used to pin CORS in production.
	// e.g. "https://cardvaluelab.com"
	SiteURL string

	// Env is "production", "staging", or "development".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// verifier checks the Turnstile token before any email is sent.
	verifier verify.Verifier

	// mailer renders and dispatches the results email.
	mailer email.Sender

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	verifier verify.Verifier,
	mailer email.Sender,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		verifier: verifier,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(s.recoverer)
	r.Use(s.corsHandler().Handler)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API ───────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Post("/send-results", s.handleSendResults)
		r.Post("/subscribe", s.handleSubscribe)
	})

	return r
}

// corsHandler pins allowed origins to the calculator site in production and
// stays open in development.
func (s *Server) corsHandler() *cors.Cors {
	allowed := []string{"*"}
	if s.cfg.Env == "production" && s.cfg.SiteURL != "" {
		allowed = []string{strings.TrimRight(s.cfg.SiteURL, "/")}
	}

	return cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})
}
