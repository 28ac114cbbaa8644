// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package api serves the cached soil readings over HTTP. Handlers only ever read the cached
// state; the only write is a request for an immediate refresh.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
)

const (
	appName = "soil-temperature"

	DefaultRefreshRate = time.Minute

	readTimeout  = time.Second * 10
	writeTimeout = time.Second * 10
)

// Coordinator is the part of the refresh coordinator the API relies on.
type Coordinator interface {
	State() *soil.State
	LastError() error
	LastErrorAt() time.Time
	Refreshing() bool
	RequestRefresh() error
	Interval() time.Duration
	NextRun() (time.Time, error)
}

// Readings renders the cached state.
type Readings interface {
	Readings() []presenter.Reading
	Lookup(id string) (presenter.Reading, bool)
	Units() soil.UnitSystem
}

type Server struct {
	app         *fiber.App
	coordinator Coordinator
	readings    Readings
	logger      *logger.Logger
	limiter     *rate.Limiter
	gatherer    prometheus.Gatherer
}

type Option func(*Server)

// WithRefreshRate limits how often a manual refresh can be requested.
func WithRefreshRate(every time.Duration) Option {
	return func(s *Server) {
		if every > 0 {
			s.limiter = rate.NewLimiter(rate.Every(every), 1)
		}
	}
}

// WithMetrics serves the given gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func New(coordinator Coordinator, readings Readings, log *logger.Logger, opts ...Option) *Server {
	server := &Server{
		coordinator: coordinator,
		readings:    readings,
		logger:      log,
		limiter:     rate.NewLimiter(rate.Every(DefaultRefreshRate), 1),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.app = fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		ErrorHandler:          server.handleError,
	})
	server.app.Use(recover.New())
	server.app.Use(server.logRequest)
	server.registerRoutes()

	return server
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.health)
	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/api/v1")
	v1.Get("/readings", s.listReadings)
	v1.Get("/readings/:id", s.getReading)
	v1.Get("/state", s.getState)
	v1.Post("/refresh", s.refresh)
}

// Listen serves the API on addr and blocks until the server is shut down.
func (s *Server) Listen(addr string) error {
	s.logger.Info("starting HTTP API", slog.String("listen", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// handleError renders every error as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("failed to handle API request", slog.String("path", c.Path()), logger.Err(err))
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("handled API request", slog.String("method", c.Method()), slog.String("path", c.Path()),
		slog.Int("status", c.Response().StatusCode()), slog.Duration("duration", time.Since(start)))
	return err
}
