// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package soil

import (
	"fmt"
	"math"
	"strings"

	"github.com/wneessen/soil-temperature/internal/vartype"
)

// UnitSystem only affects presentation. Raw values are always °F and volume fractions.
type UnitSystem string

const (
	UnitsImperial UnitSystem = "imperial"
	UnitsMetric   UnitSystem = "metric"

	UnitFahrenheit = "°F"
	UnitCelsius    = "°C"
	UnitPercent    = "%"

	// displayPrecision is the number of decimals presented values are rounded to
	displayPrecision = 2
)

// ParseUnitSystem parses a unit system name. An empty string yields the imperial default.
func ParseUnitSystem(val string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "", string(UnitsImperial):
		return UnitsImperial, nil
	case string(UnitsMetric):
		return UnitsMetric, nil
	default:
		return "", fmt.Errorf("invalid unit system: %s", val)
	}
}

// Unit returns the display unit for the given sensor type.
func (u UnitSystem) Unit(sensor SensorType) string {
	if sensor == SensorMoisture {
		return UnitPercent
	}
	if u == UnitsMetric {
		return UnitCelsius
	}
	return UnitFahrenheit
}

// FahrenheitToCelsius converts °F to °C without rounding.
func FahrenheitToCelsius(fahrenheit float64) float64 {
	return (fahrenheit - 32) * 5 / 9
}

// Round rounds val to the given number of decimals, halves away from zero.
func Round(val float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(val*pow) / pow
}

// ProcessValue converts a raw upstream value into its display value. Temperatures are converted
// to °C for the metric system, moisture fractions always become percentages. Unset values stay
// unset.
func ProcessValue(raw vartype.VarFloat64, sensor SensorType, units UnitSystem) vartype.VarFloat64 {
	return vartype.Map(raw, func(val float64) float64 {
		if sensor == SensorMoisture {
			return Round(val*100, displayPrecision)
		}
		if units == UnitsMetric {
			return Round(FahrenheitToCelsius(val), displayPrecision)
		}
		return Round(val, displayPrecision)
	})
}
