// Package server is the web front end: an upload form, the search endpoint
// and downloads of the last report of each browser session.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"docsearch/config"
	"docsearch/internal/domain"
	"docsearch/internal/intake"
	"docsearch/internal/port"
)

//go:embed templates/*.html
var templateFS embed.FS

// Searcher runs the search over a directory of uploaded files.
type Searcher interface {
	Generate(ctx context.Context, dir string, terms []string, contextChars int) (*domain.Report, error)
}

// Server wires the HTTP routes to intake, search and the report store.
type Server struct {
	cfg        config.ServerConfig
	search     config.SearchConfig
	intake     *intake.Intake
	searcher   Searcher
	store      port.ReportStore
	extensions []string
	tmpl       *template.Template
	router     chi.Router
}

// New builds the server and its routes. extensions is shown on the upload form.
func New(cfg *config.Config, searcher Searcher, store port.ReportStore, extensions []string) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg.Server,
		search: cfg.Search,
		intake: intake.New(cfg.Server.UploadDir, intake.Limits{
			MaxFileSize: cfg.Server.MaxFileSize,
			MaxFiles:    cfg.Server.MaxFiles,
			Accept:      cfg.Server.Accept,
		}),
		searcher:   searcher,
		store:      store,
		extensions: extensions,
		tmpl:       tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	limit := rate.Inf
	if s.cfg.RateLimit > 0 {
		limit = rate.Limit(s.cfg.RateLimit)
	}
	limiter := rate.NewLimiter(limit, max(s.cfg.RateBurst, 1))

	r.Get("/", s.handleIndex)
	r.With(rateLimit(limiter)).Post("/search", s.handleSearch)
	r.Get("/report.txt", s.handleReportText)
	r.Get("/report.json", s.handleReportJSON)

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Intake exposes the upload intake, whose root the janitor sweeps.
func (s *Server) Intake() *intake.Intake {
	return s.intake
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", s.cfg.Addr).Msg("Server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
