// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/wneessen/soil-temperature/internal/config"
	"github.com/wneessen/soil-temperature/internal/logger"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals reloads the configuration whenever a signal is received
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			s.logger.Info("received signal, reloading configuration", slog.String("signal", sig.String()))
			s.reloadConfig()
		}
	}
}

// reloadConfig applies the refresh interval of the reloaded config. All other options are only
// read on startup, changes to them are logged.
func (s *Service) reloadConfig() {
	if s.loadConfig == nil {
		s.logger.Warn("configuration reload not supported")
		return
	}
	conf, err := s.loadConfig()
	if err != nil {
		s.logger.Error("failed to reload configuration, keeping current configuration", logger.Err(err))
		return
	}

	s.configLock.Lock()
	defer s.configLock.Unlock()
	if conf.Interval() != s.config.Interval() {
		if err = s.coordinator.SetInterval(conf.Interval()); err != nil {
			s.logger.Error("failed to apply refresh interval", logger.Err(err))
			return
		}
	}
	if changed := restartOptions(s.config, conf); len(changed) > 0 {
		s.logger.Warn("configuration changes require a restart", slog.Any("options", changed))
	}

	// the running config keeps every option that was not applied
	running := *s.config
	running.ScanInterval = conf.ScanInterval
	s.config = &running
}

// restartOptions returns the names of changed options that only take effect after a restart.
func restartOptions(current, reloaded *config.Config) []string {
	var changed []string
	if current.Units != reloaded.Units {
		changed = append(changed, "units")
	}
	if current.LogLevel != reloaded.LogLevel || current.LogFormat != reloaded.LogFormat {
		changed = append(changed, "logging")
	}
	if current.Location != reloaded.Location {
		changed = append(changed, "location")
	}
	if current.API != reloaded.API {
		changed = append(changed, "api")
	}
	if current.Server != reloaded.Server {
		changed = append(changed, "server")
	}
	if current.MQTT != reloaded.MQTT {
		changed = append(changed, "mqtt")
	}
	if current.DisableSleepMonitor != reloaded.DisableSleepMonitor {
		changed = append(changed, "disable_sleep_monitor")
	}
	return changed
}
