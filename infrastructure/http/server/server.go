// Package server assembles the HTTP router and runs the HTTP server
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sancella/sancella/application/port/inbound"
	"github.com/sancella/sancella/application/port/outbound"
	"github.com/sancella/sancella/infrastructure/http/handler"
	"github.com/sancella/sancella/infrastructure/http/middleware"
	"github.com/sancella/sancella/infrastructure/service/logger"
)

// Config represents server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RouterDeps are the collaborators wired into the router
type RouterDeps struct {
	Dashboard        inbound.DashboardUseCase
	TokenService     outbound.TokenService
	RateLimiter      inbound.RateLimitService
	RateLimitPolicy  middleware.RateLimitPolicy
	CORSOrigins      []string
	CORSCredentials  bool
	EnableRequestLog bool
	Logger           logger.Logger
}

// NewRouter registers the public health route and the authenticated /v1 API
func NewRouter(deps RouterDeps) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handler.NotFound)
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/v1").Subrouter()
	if deps.RateLimiter != nil {
		api.Use(middleware.NewRateLimitMiddleware(deps.RateLimiter, deps.Logger, deps.RateLimitPolicy).RateLimit)
	}
	api.Use(middleware.NewAuthMiddleware(deps.TokenService, deps.Logger).RequireAuth)
	handler.NewDashboardHandler(deps.Dashboard, deps.Logger).RegisterRoutes(api)

	h := middleware.CORS(middleware.CORSPolicy{
		Origins:          deps.CORSOrigins,
		AllowCredentials: deps.CORSCredentials,
	})(router)
	if deps.EnableRequestLog {
		h = middleware.RequestLogger(deps.Logger)(h)
	}
	h = middleware.CorrelationIDMiddleware(h)
	return middleware.Recovery(deps.Logger)(h)
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger logger.Logger
}

func New(config Config, h http.Handler, log logger.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      h,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: log,
	}
}

// Start blocks serving requests until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
