// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package soil holds the domain model for soil temperature and moisture readings.
package soil

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/soil-temperature/internal/vartype"
)

// Provider is implemented by each soil data API backend.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (*Payload, error)
}

// Coordinates identify the location a provider is queried for.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// ID returns the identifier of the configured location. It is used as prefix for reading IDs.
func (c Coordinates) ID() string {
	return formatFloat(c.Lat) + "-" + formatFloat(c.Lon)
}

// Title returns a human readable name of the configured location.
func (c Coordinates) Title() string {
	return fmt.Sprintf("Soil Temperature (%s, %s)", formatFloat(c.Lat), formatFloat(c.Lon))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SensorType distinguishes temperature from moisture readings.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorMoisture    SensorType = "moisture"
)

// Name returns the display name of the sensor type.
func (s SensorType) Name() string {
	if s == SensorTemperature {
		return "Soil Temperature"
	}
	return "Soil Moisture"
}

// Key identifies a soil layer as used by the upstream API, e.g. soil_temperature_6cm.
type Key string

const (
	Temperature0cm  Key = "soil_temperature_0cm"
	Temperature6cm  Key = "soil_temperature_6cm"
	Temperature10cm Key = "soil_temperature_10cm"
	Temperature18cm Key = "soil_temperature_18cm"
	Temperature54cm Key = "soil_temperature_54cm"

	Moisture0to1cm   Key = "soil_moisture_0_1cm"
	Moisture1to3cm   Key = "soil_moisture_1_3cm"
	Moisture3to9cm   Key = "soil_moisture_3_9cm"
	Moisture10cm     Key = "soil_moisture_10cm"
	Moisture9to27cm  Key = "soil_moisture_9_27cm"
	Moisture27to81cm Key = "soil_moisture_27_81cm"
)

const (
	temperaturePrefix = "soil_temperature_"
	moisturePrefix    = "soil_moisture_"
)

var (
	// TemperatureKeys lists the tracked soil temperature layers, values in °F.
	TemperatureKeys = []Key{Temperature0cm, Temperature6cm, Temperature10cm, Temperature18cm, Temperature54cm}

	// MoistureKeys lists the tracked soil moisture layers, values as volume fraction.
	MoistureKeys = []Key{Moisture0to1cm, Moisture1to3cm, Moisture3to9cm, Moisture10cm, Moisture9to27cm,
		Moisture27to81cm}
)

// Keys returns all tracked keys, temperatures first.
func Keys() []Key {
	keys := make([]Key, 0, len(TemperatureKeys)+len(MoistureKeys))
	keys = append(keys, TemperatureKeys...)
	return append(keys, MoistureKeys...)
}

// Sensor returns the sensor type of the key.
func (k Key) Sensor() SensorType {
	if strings.HasPrefix(string(k), temperaturePrefix) {
		return SensorTemperature
	}
	return SensorMoisture
}

// Depth returns a human readable depth label, e.g. "6cm" or "1-3cm".
func (k Key) Depth() string {
	depth := strings.TrimPrefix(strings.TrimPrefix(string(k), temperaturePrefix), moisturePrefix)
	return strings.ReplaceAll(depth, "_", "-")
}

// Statistic is one of the daily summary statistics.
type Statistic string

const (
	StatMax  Statistic = "max"
	StatMin  Statistic = "min"
	StatMean Statistic = "mean"
)

// Statistics lists the summary statistics in presentation order.
var Statistics = []Statistic{StatMax, StatMin, StatMean}

// Reading maps a depth key to its raw value. Missing keys and JSON nulls are unset values.
type Reading map[Key]vartype.VarFloat64

// Get returns the value for the key, unset if the key is absent.
func (r Reading) Get(key Key) vartype.VarFloat64 {
	if r == nil {
		return vartype.Null[float64]()
	}
	return r[key]
}

// Sample is one time-stamped entry of the upstream timeline.
type Sample struct {
	Time   time.Time
	Values Reading
}

// Timeline is the historical list of samples returned by the upstream API.
type Timeline []Sample

// Stats holds the daily statistics of one key.
type Stats struct {
	Max  vartype.VarFloat64 `json:"max"`
	Min  vartype.VarFloat64 `json:"min"`
	Mean vartype.VarFloat64 `json:"mean"`
}

// Get returns the value of the given statistic.
func (s Stats) Get(stat Statistic) vartype.VarFloat64 {
	switch stat {
	case StatMax:
		return s.Max
	case StatMin:
		return s.Min
	case StatMean:
		return s.Mean
	default:
		return vartype.Null[float64]()
	}
}

// Summary maps each tracked key to its statistics for one calendar day.
type Summary map[Key]Stats

// Payload is what a Provider returns for one fetch.
type Payload struct {
	Current  Reading
	Timeline Timeline
}

// State is the cached result of one successful refresh. Current and Summary always stem from
// the same fetch.
type State struct {
	Current   Reading   `json:"current"`
	Summary   Summary   `json:"summary"`
	FetchedAt time.Time `json:"fetched_at"`
}
