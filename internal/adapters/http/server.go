// Package http is the HTTP render port of the quote service, built on Gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// Server serves the quote API on a Gin engine.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *slog.Logger
}

// New builds the server and applies the request body limit to every route,
// so oversized quote imports are refused before any handler reads them.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(maxBodySize(cfg.MaxRequestSize))

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		config: cfg,
		logger: logger.With(slog.String("component", "http.Server")),
	}
}

// Engine returns the Gin engine routes are registered on.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Config() *config.ServerConfig {
	return s.config
}

// Start serves in the background. The returned channel receives a
// ListenAndServe failure, if any, and is closed when the server stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		s.logger.Info("quote API listening",
			slog.String("addr", s.httpServer.Addr),
			slog.Int64("max_request_size", s.config.MaxRequestSize),
			slog.Duration("write_timeout", s.config.WriteTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serving quote API: %w", err)
		}
	}()

	return errCh
}

// Shutdown stops accepting connections and waits for active requests until
// ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("draining quote API")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("draining quote API: %w", err)
	}

	s.logger.Info("quote API stopped")

	return nil
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// maxBodySize refuses requests that declare a body over maxBytes and caps
// the rest, so chunked uploads fail on read instead.
func maxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrorCodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytes)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
