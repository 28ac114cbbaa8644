// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wneessen/soil-temperature/internal/soil"
)

// readingsCollector renders the current readings on every scrape. Unset values are skipped.
type readingsCollector struct {
	source      ReadingSource
	temperature *prometheus.Desc
	moisture    *prometheus.Desc
}

func newReadingsCollector(source ReadingSource) *readingsCollector {
	return &readingsCollector{
		source: source,
		temperature: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "temperature", "degrees"),
			"Soil temperature by depth in the configured unit.",
			[]string{"depth", "kind", "statistic", "unit"}, nil,
		),
		moisture: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "moisture", "percent"),
			"Volumetric soil moisture by depth in percent.",
			[]string{"depth", "kind", "statistic"}, nil,
		),
	}
}

func (c *readingsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.temperature
	ch <- c.moisture
}

func (c *readingsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, reading := range c.source.Readings() {
		if !reading.Value.IsSet() {
			continue
		}
		statistic := string(reading.Statistic)
		if statistic == "" {
			statistic = "none"
		}

		switch reading.Sensor {
		case soil.SensorTemperature:
			ch <- prometheus.MustNewConstMetric(c.temperature, prometheus.GaugeValue, reading.Value.Value(),
				reading.Depth, string(reading.Kind), statistic, reading.Unit)
		case soil.SensorMoisture:
			ch <- prometheus.MustNewConstMetric(c.moisture, prometheus.GaugeValue, reading.Value.Value(),
				reading.Depth, string(reading.Kind), statistic)
		}
	}
}
