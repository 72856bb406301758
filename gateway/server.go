// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/glyph/lib/safemode"
)

// Server is the glyph HTTP server.
type Server struct {
	listenAddress string
	handler       *Handler
	httpServer    *http.Server
	listener      net.Listener
	logger        *slog.Logger
}

// ServerConfig holds configuration for creating a new Server.
type ServerConfig struct {
	// ListenAddress is the TCP address to serve on, e.g. ":8000".
	ListenAddress string

	Handler HandlerConfig

	// AllowOrigins lists the CORS origins. Empty means "*".
	AllowOrigins []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// NewServer creates a server. The handler's registry is sealed.
func NewServer(config ServerConfig) (*Server, error) {
	if config.ListenAddress == "" {
		return nil, errors.New("listen address is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Handler.Logger == nil {
		config.Handler.Logger = logger
	}
	handler, err := NewHandler(config.Handler)
	if err != nil {
		return nil, err
	}

	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}

	return &Server{
		listenAddress: config.ListenAddress,
		handler:       handler,
		httpServer: &http.Server{
			Handler:      NewRouter(handler, config.AllowOrigins, logger),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		logger: logger,
	}, nil
}

// NewRouter builds the gin engine serving handler.
func NewRouter(handler *Handler, allowOrigins []string, logger *slog.Logger) *gin.Engine {
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(loggingMiddleware(logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"If-None-Match",
			requestIDHeader,
			safemode.Header,
		},
		ExposeHeaders: []string{"Content-Length", "ETag", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	engine.GET("/", handler.HandleHello)
	engine.GET("/health", handler.HandleHealth)
	engine.GET("/healthz", handler.HandleHealth)
	engine.GET("/v1/health", handler.HandleHealth)

	engine.POST("/", handler.HandleConvertJSON)
	engine.POST("/:type", handler.HandleConvertNegotiated)
	engine.POST("/:type/:format", handler.HandleConvert)
	engine.GET("/:type/:format/:encoded", handler.HandleConvertEncoded)

	engine.NoRoute(handler.HandleNotFound)
	return engine
}

// Start begins listening. It returns once the listener is bound;
// requests are served on a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddress, err)
	}
	s.listener = listener
	s.logger.Info("glyph server started",
		"address", listener.Addr().String(),
		"safe_mode", s.handler.safeMode,
		"diagram_types", s.handler.registry.Len(),
		"workers", s.handler.pool.Workers(),
	)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting requests and waits for in-flight
// conversions until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down glyph server")
	return s.httpServer.Shutdown(ctx)
}
