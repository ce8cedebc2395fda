// Package api exposes the authentication workflow over HTTP. It owns
// routing, request validation, the refresh-token cookie, and the
// translation of workflow errors into status codes; all domain decisions
// stay in internal/server/users.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avdeev/authgate/internal/logging"
	"github.com/avdeev/authgate/internal/server/config"
	"github.com/avdeev/authgate/internal/server/users"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address         string
	users           *users.Service
	logger          logging.Logger
	secureCookies   bool
	refreshTokenTTL time.Duration
}

func NewServer(cfg *config.Config, l logging.Logger, us *users.Service) *Server {
	return &Server{
		address:         cfg.EndpointAddrHTTP,
		users:           us,
		logger:          l.With("module", "http_server"),
		secureCookies:   cfg.IsProduction(),
		refreshTokenTTL: cfg.RefreshTokenValidityDuration,
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)

	auth := r.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/verify-email", s.verifyEmail)
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)
	auth.GET("/me", s.requireAuth, s.me)

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
