package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/passlens/passlens/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	*config.Config

	http *http.Server
}

func New(cfg *config.Config) *Server {
	s := &Server{
		Config: cfg,
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Post("/extract", s.handleExtract)
	r.Get("/health", s.handleHealth)
	r.Delete("/cleanup", s.handleCleanup)

	r.Handle("/extracted/*", http.StripPrefix("/extracted/", http.FileServer(http.Dir(cfg.ExtractedDir))))
	r.Handle("/*", http.FileServer(http.Dir(cfg.PublicDir)))

	s.http = &http.Server{
		Addr: cfg.Address,

		Handler: otelhttp.NewHandler(r, "server"),
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	resp := ErrorResponse{
		Success: false,
		Error:   err.Error(),
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(resp)
}
