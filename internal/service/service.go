// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/wneessen/soil-temperature/internal/api"
	"github.com/wneessen/soil-temperature/internal/config"
	"github.com/wneessen/soil-temperature/internal/coordinator"
	"github.com/wneessen/soil-temperature/internal/http"
	"github.com/wneessen/soil-temperature/internal/logger"
	"github.com/wneessen/soil-temperature/internal/metrics"
	"github.com/wneessen/soil-temperature/internal/mqtt"
	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/soil/provider/soiltemperature"
)

const shutdownTimeout = time.Second * 10

type Service struct {
	SignalSrc signalSource

	configLock sync.RWMutex
	config     *config.Config
	loadConfig func() (*config.Config, error)

	logger      *logger.Logger
	provider    soil.Provider
	coordinator *coordinator.Coordinator
	presenter   *presenter.Presenter
	metrics     *metrics.Metrics
	api         *api.Server
	mqtt        *mqtt.Publisher
}

type Option func(*Service)

// WithConfigLoader sets the function used to reload the config on SIGHUP.
func WithConfigLoader(loader func() (*config.Config, error)) Option {
	return func(s *Service) {
		s.loadConfig = loader
	}
}

// WithProvider replaces the soiltemperature.app provider.
func WithProvider(provider soil.Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

func New(conf *config.Config, log *logger.Logger, opts ...Option) (*Service, error) {
	service := &Service{
		SignalSrc: stdLibSignalSource{},
		config:    conf,
		logger:    log,
	}
	for _, opt := range opts {
		opt(service)
	}

	if service.provider == nil {
		provider, err := soiltemperature.New(http.New(log), log,
			soiltemperature.WithBaseURL(conf.API.BaseURL), soiltemperature.WithTimeout(conf.API.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to create soil data provider: %w", err)
		}
		service.provider = provider
	}

	loc, err := conf.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone: %w", err)
	}
	coords := conf.Coordinates()
	coord, err := coordinator.New(service.provider, coords,
		coordinator.WithInterval(conf.Interval()),
		coordinator.WithLocation(loc),
		coordinator.WithLogger(log),
		coordinator.WithObserver(service.observeRefresh),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh coordinator: %w", err)
	}
	service.coordinator = coord
	service.presenter = presenter.New(coord, coords.ID(), conf.UnitSystem())
	service.metrics = metrics.New(service.presenter)

	if !conf.Server.Disable {
		service.api = api.New(coord, service.presenter, log,
			api.WithRefreshRate(conf.Server.RefreshRate),
			api.WithMetrics(service.metrics.Registry()),
		)
	}
	if conf.MQTT.Broker != "" {
		service.mqtt, err = mqtt.New(mqtt.Config{
			Broker:      conf.MQTT.Broker,
			ClientID:    conf.MQTT.ClientID,
			TopicPrefix: conf.MQTT.TopicPrefix,
			Username:    conf.MQTT.Username,
			Password:    conf.MQTT.Password,
		}, coords.ID(), service.presenter, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt publisher: %w", err)
		}
	}

	return service, nil
}

// Run performs the initial refresh, starts the schedule and all enabled outputs and blocks until
// ctx is cancelled. A failed initial refresh is returned as error.
func (s *Service) Run(ctx context.Context) error {
	conf := s.currentConfig()
	s.logger.Info("fetching initial soil data", slog.String("location", conf.Coordinates().Title()),
		slog.String("provider", s.provider.Name()))
	if err := s.coordinator.Start(ctx); err != nil {
		return err
	}
	s.logCurrentReadings()

	if s.mqtt != nil {
		s.coordinator.AddListener(s.mqtt.Publish)
		go s.connectMQTT(ctx)
	}
	if s.api != nil {
		go func() {
			if err := s.api.Listen(conf.Server.Listen); err != nil {
				s.logger.Error("HTTP API stopped", logger.Err(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	}()

	if !conf.DisableSleepMonitor {
		go s.monitorSleepResume(ctx)
	}

	<-ctx.Done()
	return s.shutdown()
}

func (s *Service) shutdown() error {
	var errs []error
	if s.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.api.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down HTTP API: %w", err))
		}
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if err := s.coordinator.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) connectMQTT(ctx context.Context) {
	if err := s.mqtt.Connect(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("failed to connect to mqtt broker", logger.Err(err))
		}
		return
	}
	// Readings of the initial refresh were not published yet
	if state := s.coordinator.State(); state != nil {
		s.mqtt.Publish(state)
	}
}

func (s *Service) observeRefresh(duration time.Duration, err error) {
	s.metrics.ObserveRefresh(duration, err)
}

// logCurrentReadings logs the enabled readings of the current state.
func (s *Service) logCurrentReadings() {
	attrs := make([]any, 0, 11)
	for _, reading := range s.presenter.Readings() {
		if reading.EnabledByDefault {
			attrs = append(attrs, slog.String(reading.ID, reading.String()))
		}
	}
	s.logger.Info("soil data available", attrs...)
}

func (s *Service) currentConfig() *config.Config {
	s.configLock.RLock()
	defer s.configLock.RUnlock()
	return s.config
}
