// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter renders the cached soil state as named readings in the configured units.
package presenter

import (
	"fmt"

	"github.com/wneessen/soil-temperature/internal/soil"
	"github.com/wneessen/soil-temperature/internal/vartype"
)

// Source provides the latest soil state. It must never block.
type Source interface {
	State() *soil.State
}

// Reading is a rendered reading, ready to be published.
type Reading struct {
	ID               string             `json:"id"`
	UniqueID         string             `json:"unique_id"`
	Name             string             `json:"name"`
	Kind             Kind               `json:"kind"`
	Sensor           soil.SensorType    `json:"sensor"`
	Statistic        soil.Statistic     `json:"statistic,omitempty"`
	Depth            string             `json:"depth"`
	Unit             string             `json:"unit"`
	Value            vartype.VarFloat64 `json:"value"`
	EnabledByDefault bool               `json:"enabled_by_default"`
}

// String returns the value with its unit, or "unknown" for an unset value.
func (r Reading) String() string {
	if !r.Value.IsSet() {
		return vartype.Unknown
	}
	return fmt.Sprintf("%.2f %s", r.Value.Value(), r.Unit)
}

// Presenter reads from the source on every call and never caches.
type Presenter struct {
	source  Source
	entryID string
	units   soil.UnitSystem
}

func New(source Source, entryID string, units soil.UnitSystem) *Presenter {
	if units == "" {
		units = soil.UnitsImperial
	}
	return &Presenter{
		source:  source,
		entryID: entryID,
		units:   units,
	}
}

// Units returns the unit system the presenter renders in.
func (p *Presenter) Units() soil.UnitSystem {
	return p.units
}

// Value returns the processed value for the descriptor. Missing state, keys or values yield an
// unset value.
func (p *Presenter) Value(d Descriptor) vartype.VarFloat64 {
	return p.value(d, p.source.State())
}

func (p *Presenter) value(d Descriptor, state *soil.State) vartype.VarFloat64 {
	if state == nil {
		return vartype.Null[float64]()
	}

	var raw vartype.VarFloat64
	switch d.Kind {
	case KindCurrent:
		raw = state.Current.Get(d.Key)
	case KindSummary:
		raw = state.Summary[d.Key].Get(d.Statistic)
	default:
		return vartype.Null[float64]()
	}
	return soil.ProcessValue(raw, d.Sensor, p.units)
}

// Reading renders the reading for the descriptor.
func (p *Presenter) Reading(d Descriptor) Reading {
	return p.render(d, p.source.State())
}

// Readings renders all readings from a single snapshot of the source state.
func (p *Presenter) Readings() []Reading {
	return p.Render(p.source.State())
}

// Render renders all readings from the given state. A nil state yields unset values.
func (p *Presenter) Render(state *soil.State) []Reading {
	readings := make([]Reading, 0, len(descriptors))
	for _, d := range descriptors {
		readings = append(readings, p.render(d, state))
	}
	return readings
}

// Lookup renders the reading with the given id or unique id.
func (p *Presenter) Lookup(id string) (Reading, bool) {
	for _, d := range descriptors {
		if d.ID() == id || d.UniqueID(p.entryID) == id {
			return p.Reading(d), true
		}
	}
	return Reading{}, false
}

func (p *Presenter) render(d Descriptor, state *soil.State) Reading {
	return Reading{
		ID:               d.ID(),
		UniqueID:         d.UniqueID(p.entryID),
		Name:             d.Name(),
		Kind:             d.Kind,
		Sensor:           d.Sensor,
		Statistic:        d.Statistic,
		Depth:            d.Key.Depth(),
		Unit:             p.units.Unit(d.Sensor),
		Value:            p.value(d, state),
		EnabledByDefault: d.EnabledByDefault(),
	}
}
