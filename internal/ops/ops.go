// Package ops serves the operational endpoints of a pipeline run:
// liveness, dependency health, and Prometheus metrics. The server is
// optional; batch runs without OPS_ADDR skip it entirely.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmarchuk/fraudetl/internal/health"
	"github.com/dmarchuk/fraudetl/internal/metrics"
)

// Server exposes /healthz and /metrics while the pipeline runs.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the ops server on addr with the given health registry.
func New(addr string, registry *health.Registry, logger *slog.Logger, production bool) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			slog.Any("error", recovered),
			slog.String("path", c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))

	router.GET("/healthz", func(c *gin.Context) {
		healthy, statuses := registry.CheckAll(c.Request.Context())
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"healthy": healthy, "checks": statuses})
	})
	router.GET("/metrics", metrics.Handler())

	return &Server{
		srv:    &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("ops server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops server failed", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
