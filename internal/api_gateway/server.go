package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/edocument-exchange/internal/api_gateway/handler"
	"github.com/edocument-exchange/internal/api_gateway/service"
	"github.com/edocument-exchange/internal/config"
	"github.com/gin-gonic/gin"
)

const maxHeaderBytes = 64 << 10

// Services groups what the gateway's handlers depend on
type Services struct {
	Records     service.RecordService
	Submissions service.SubmissionService
	Documents   service.DocumentService
	Flows       service.FlowService
	Companies   service.CompanyService
}

// Server is the HTTP face of the exchange: record intake, submission requests,
// document and attachment reads, flow listing and company settings.
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	router     *gin.Engine
}

func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	setupRouter(log, router, Handlers{
		Records:     handler.NewRecordHandler(log, services.Records),
		Submissions: handler.NewSubmissionHandler(log, services.Submissions, services.Records, services.Flows),
		Documents:   handler.NewDocumentHandler(log, services.Documents),
		Flows:       handler.NewFlowHandler(log, services.Flows),
		Companies:   handler.NewCompanyHandler(log, services.Companies),
	})

	return &Server{
		logger: log,
		router: router,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln, which the server owns from then on. It returns nil once
// Stop has been called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server stopped: %w", err)
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires, then drops the
// connections that are still open.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn("Requests still running at shutdown deadline, closing connections", "error", err)
	if closeErr := s.httpServer.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return fmt.Errorf("failed to stop HTTP server gracefully: %w", err)
}
