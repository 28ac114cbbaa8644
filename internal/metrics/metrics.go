// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package metrics exposes the soil readings and the refresh health as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wneessen/soil-temperature/internal/presenter"
	"github.com/wneessen/soil-temperature/internal/soil"
)

const namespace = "soil"

// Refresh results used as label values.
const (
	ResultSuccess   = "success"
	ResultTransport = "transport"
	ResultParse     = "parse"
	ResultShape     = "shape"
	ResultError     = "error"
)

// ReadingSource provides the rendered readings on every scrape.
type ReadingSource interface {
	Readings() []presenter.Reading
}

type Metrics struct {
	registry    *prometheus.Registry
	refreshes   *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New creates the metrics and registers them, together with the Go runtime and process
// collectors, on a dedicated registry.
func New(source ReadingSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "temperature",
			Name:      "refresh_total",
			Help:      "Total number of soil data refreshes by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "temperature",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of soil data refreshes.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "temperature",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful soil data refresh.",
		}),
	}
	for _, result := range []string{ResultSuccess, ResultTransport, ResultParse, ResultShape, ResultError} {
		m.refreshes.WithLabelValues(result)
	}

	m.registry.MustRegister(
		m.refreshes,
		m.duration,
		m.lastSuccess,
		newReadingsCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry to be served by a metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRefresh records the outcome of a refresh.
func (m *Metrics) ObserveRefresh(duration time.Duration, err error) {
	m.refreshes.WithLabelValues(resultLabel(err)).Inc()
	m.duration.Observe(duration.Seconds())
	if err == nil {
		m.lastSuccess.SetToCurrentTime()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, soil.ErrTransport):
		return ResultTransport
	case errors.Is(err, soil.ErrParse):
		return ResultParse
	case errors.Is(err, soil.ErrShape):
		return ResultShape
	default:
		return ResultError
	}
}
