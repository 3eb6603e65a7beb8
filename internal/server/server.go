package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Adda-Baaj/stock-pulse/internal/agent"
	"github.com/Adda-Baaj/stock-pulse/internal/app"
	"github.com/Adda-Baaj/stock-pulse/internal/logger"
)

// Service is the application surface the HTTP API exposes.
type Service interface {
	Analyze(ctx context.Context, ticker string, explain bool) (app.AnalyzeResult, error)
	AnalyzeAgent(ctx context.Context, ticker, question string) (agent.State, error)
	LatestNews(ctx context.Context, ticker string, terms []string, limit int) (app.NewsResult, error)
}

// Server manages the HTTP server and routes.
type Server struct {
	svc      Service
	log      logger.Logger
	validate *validator.Validate
	router   *http.ServeMux
	server   *http.Server
}

// New creates an HTTP server for svc listening on addr.
func New(svc Service, addr string, log logger.Logger) *Server {
	s := &Server{
		svc:      svc,
		log:      logger.Ensure(log),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(s.router),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler with middleware.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.InfoObj("http server starting", "server_start", map[string]any{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.InfoObj("http server stopping", "server_stop", nil)
	return s.server.Shutdown(ctx)
}
