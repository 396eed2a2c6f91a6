// Package server exposes classification, drafting sessions, and template
// reconciliation over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/reconcile"
	"github.com/Veraticus/tender/internal/service"
)

// Config holds server configuration.
type Config struct {
	Addr string
	// TLS enables HTTPS when set.
	TLS *tls.Config
	// RequestTimeout bounds a single request. Drafting and reconciliation
	// call the reasoning service several times, so keep it generous.
	RequestTimeout time.Duration
}

// Deps contains the collaborators the handlers call.
type Deps struct {
	// Drafting is required.
	Drafting *drafting.Engine
	// Classifier is required.
	Classifier drafting.Classifier
	// Templates is required.
	Templates service.TemplateStore
	// Thresholds is optional; GET /api/threshold answers 503 without it.
	Thresholds service.ThresholdProvider
	// Reconciler is optional; reconciliation answers 503 without it.
	Reconciler *reconcile.Reconciler
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Drafting == nil {
		return fmt.Errorf("drafting engine dependency is required")
	}
	if d.Classifier == nil {
		return fmt.Errorf("classifier dependency is required")
	}
	if d.Templates == nil {
		return fmt.Errorf("template store dependency is required")
	}
	return nil
}

// Server is the HTTP front end.
type Server struct {
	deps       Deps
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	preview    *previewRenderer
}

// New creates a server with all routes registered.
func New(cfg Config, deps Deps) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}

	preview, err := newPreviewRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{deps: deps, cfg: cfg, preview: preview}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		TLSConfig:         cfg.TLS,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Get("/threshold", s.handleThreshold)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/resume", s.handleResumeSession)
				r.Post("/feedback", s.handleFeedback)
				r.Get("/preview", s.handlePreview)
			})
		})

		r.Route("/templates/{type}", func(r chi.Router) {
			r.Get("/", s.handleListTemplates)
			r.Get("/latest", s.handleLatestTemplate)
			r.Post("/reconcile", s.handleReconcile)
		})
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	var err error
	if s.httpServer.TLSConfig != nil {
		slog.Info("tender server listening", "addr", s.cfg.Addr, "tls", true)
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		slog.Info("tender server listening", "addr", s.cfg.Addr)
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
