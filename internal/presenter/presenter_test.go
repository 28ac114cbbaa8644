// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"testing"
	"time"

	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/vartype"
)

const testEntryID = "40.7128--74.006"

type staticSource struct {
	state *soil.State
}

func (s staticSource) State() *soil.State { return s.state }

func testState() *soil.State {
	return &soil.State{
		Current: soil.Reading{
			soil.Temperature0cm: vartype.NewVariable(68.0),
			soil.Temperature6cm: vartype.Null[float64](),
			soil.Moisture1to3cm: vartype.NewVariable(0.2345),
		},
		Summary: soil.Summary{
			soil.Temperature0cm: {
				Max:  vartype.NewVariable(77.0),
				Min:  vartype.NewVariable(50.0),
				Mean: vartype.NewVariable(63.5),
			},
			soil.Moisture0to1cm: {
				Max:  vartype.NewVariable(0.31),
				Min:  vartype.NewVariable(0.2),
				Mean: vartype.NewVariable(0.25),
			},
		},
		FetchedAt: time.Date(2026, 5, 14, 15, 30, 0, 0, time.UTC),
	}
}

func TestDescriptors(t *testing.T) {
	list := Descriptors()
	if len(list) != 44 {
		t.Fatalf("expected 44 descriptors, got %d", len(list))
	}
	seen := make(map[string]struct{}, len(list))
	for _, d := range list {
		if _, ok := seen[d.ID()]; ok {
			t.Errorf("duplicate descriptor id: %s", d.ID())
		}
		seen[d.ID()] = struct{}{}
		if d.Sensor != d.Key.Sensor() {
			t.Errorf("descriptor %s has sensor %s, expected %s", d.ID(), d.Sensor, d.Key.Sensor())
		}
	}
	for i, d := range list[:11] {
		if d.Kind != KindCurrent {
			t.Errorf("expected descriptor %d to be a current reading, got %s", i, d.Kind)
		}
	}
	for i, stat := range soil.Statistics {
		for _, d := range list[11+i*11 : 22+i*11] {
			if d.Kind != KindSummary || d.Statistic != stat {
				t.Errorf("expected %s summary descriptor, got %s/%s", stat, d.Kind, d.Statistic)
			}
		}
	}

	t.Run("returned list is a copy", func(t *testing.T) {
		list := Descriptors()
		list[0].Kind = KindSummary
		if Descriptors()[0].Kind != KindCurrent {
			t.Error("expected modification of the returned list to not leak")
		}
	})
}

func TestDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		id         string
		display    string
		enabled    bool
	}{
		{
			"current temperature",
			Descriptor{Key: soil.Temperature0cm, Kind: KindCurrent, Sensor: soil.SensorTemperature},
			"current_soil_temperature_0cm", "Current Soil Temperature 0cm", true,
		},
		{
			"current moisture",
			Descriptor{Key: soil.Moisture27to81cm, Kind: KindCurrent, Sensor: soil.SensorMoisture},
			"current_soil_moisture_27_81cm", "Current Soil Moisture 27-81cm", true,
		},
		{
			"summary max moisture",
			Descriptor{Key: soil.Moisture1to3cm, Kind: KindSummary, Statistic: soil.StatMax, Sensor: soil.SensorMoisture},
			"summary_max_soil_moisture_1_3cm", "Today's Max Soil Moisture 1-3cm", false,
		},
		{
			"summary mean temperature",
			Descriptor{Key: soil.Temperature54cm, Kind: KindSummary, Statistic: soil.StatMean, Sensor: soil.SensorTemperature},
			"summary_mean_soil_temperature_54cm", "Today's Mean Soil Temperature 54cm", false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.descriptor.ID(); got != tc.id {
				t.Errorf("expected id %q, got %q", tc.id, got)
			}
			if got := tc.descriptor.UniqueID(testEntryID); got != testEntryID+"_"+tc.id {
				t.Errorf("unexpected unique id %q", got)
			}
			if got := tc.descriptor.Name(); got != tc.display {
				t.Errorf("expected name %q, got %q", tc.display, got)
			}
			if got := tc.descriptor.EnabledByDefault(); got != tc.enabled {
				t.Errorf("expected enabled by default to be %t, got %t", tc.enabled, got)
			}
		})
	}
}

func TestPresenter_Value(t *testing.T) {
	current0cm := Descriptor{Key: soil.Temperature0cm, Kind: KindCurrent, Sensor: soil.SensorTemperature}
	maxMoisture := Descriptor{Key: soil.Moisture0to1cm, Kind: KindSummary, Statistic: soil.StatMax,
		Sensor: soil.SensorMoisture}

	t.Run("imperial temperature is rounded raw value", func(t *testing.T) {
		p := New(staticSource{testState()}, testEntryID, soil.UnitsImperial)
		if got := p.Value(current0cm); got.Value() != 68 {
			t.Errorf("expected 68, got %s", got)
		}
	})
	t.Run("metric temperature is converted", func(t *testing.T) {
		p := New(staticSource{testState()}, testEntryID, soil.UnitsMetric)
		if got := p.Value(current0cm); got.Value() != 20 {
			t.Errorf("expected 20, got %s", got)
		}
	})
	t.Run("moisture is a percentage in every unit system", func(t *testing.T) {
		for _, units := range []soil.UnitSystem{soil.UnitsImperial, soil.UnitsMetric} {
			p := New(staticSource{testState()}, testEntryID, units)
			if got := p.Value(maxMoisture); got.Value() != 31 {
				t.Errorf("expected 31 for %s, got %s", units, got)
			}
		}
	})
	t.Run("no state yields unset values", func(t *testing.T) {
		p := New(staticSource{}, testEntryID, soil.UnitsImperial)
		for _, d := range Descriptors() {
			if p.Value(d).IsSet() {
				t.Errorf("expected %s to be unset", d.ID())
			}
		}
	})
	t.Run("null and missing values are unset", func(t *testing.T) {
		p := New(staticSource{testState()}, testEntryID, soil.UnitsMetric)
		null := Descriptor{Key: soil.Temperature6cm, Kind: KindCurrent, Sensor: soil.SensorTemperature}
		missing := Descriptor{Key: soil.Moisture10cm, Kind: KindSummary, Statistic: soil.StatMin,
			Sensor: soil.SensorMoisture}
		if p.Value(null).IsSet() {
			t.Error("expected null value to be unset")
		}
		if p.Value(missing).IsSet() {
			t.Error("expected missing value to be unset")
		}
	})
	t.Run("unknown kind yields unset value", func(t *testing.T) {
		p := New(staticSource{testState()}, testEntryID, soil.UnitsMetric)
		if p.Value(Descriptor{Key: soil.Temperature0cm, Kind: "forecast"}).IsSet() {
			t.Error("expected unknown kind to be unset")
		}
	})
	t.Run("empty unit system defaults to imperial", func(t *testing.T) {
		p := New(staticSource{testState()}, testEntryID, "")
		if p.Units() != soil.UnitsImperial {
			t.Errorf("expected imperial units, got %s", p.Units())
		}
	})
}

func TestPresenter_Readings(t *testing.T) {
	p := New(staticSource{testState()}, testEntryID, soil.UnitsMetric)
	readings := p.Readings()
	if len(readings) != 44 {
		t.Fatalf("expected 44 readings, got %d", len(readings))
	}

	first := readings[0]
	if first.UniqueID != testEntryID+"_current_soil_temperature_0cm" {
		t.Errorf("unexpected unique id: %s", first.UniqueID)
	}
	if first.Unit != soil.UnitCelsius {
		t.Errorf("expected unit %s, got %s", soil.UnitCelsius, first.Unit)
	}
	if first.String() != "20.00 °C" {
		t.Errorf("expected rendered reading 20.00 °C, got %q", first.String())
	}
	if readings[1].String() != vartype.Unknown {
		t.Errorf("expected unset reading to render as %q, got %q", vartype.Unknown, readings[1].String())
	}

	moisture, ok := p.Lookup("current_soil_moisture_1_3cm")
	if !ok {
		t.Fatal("expected moisture reading to be found")
	}
	if moisture.Unit != soil.UnitPercent || moisture.Value.Value() != 23.45 {
		t.Errorf("expected 23.45 %%, got %s", moisture)
	}
	if _, ok = p.Lookup(testEntryID + "_summary_mean_soil_temperature_0cm"); !ok {
		t.Error("expected lookup by unique id to succeed")
	}
	if _, ok = p.Lookup("current_air_temperature"); ok {
		t.Error("expected lookup of unknown id to fail")
	}
}

func TestPresenter_Render(t *testing.T) {
	p := New(staticSource{}, testEntryID, soil.UnitsImperial)
	readings := p.Render(testState())
	if len(readings) != 44 {
		t.Fatalf("expected 44 readings, got %d", len(readings))
	}
	if readings[0].Value.Value() != 68 {
		t.Errorf("expected rendered value from the given state, got %s", readings[0])
	}
	for _, reading := range p.Render(nil) {
		if reading.Value.IsSet() {
			t.Errorf("expected %s to be unset for nil state", reading.ID)
		}
	}
}
