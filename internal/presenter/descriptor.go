// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wneessen/soil-temperature/internal/soil"
)

// Kind distinguishes readings of the most recent sample from daily summary readings.
type Kind string

const (
	KindCurrent Kind = "current"
	KindSummary Kind = "summary"
)

var titleCaser = cases.Title(language.English)

// Descriptor describes one published reading. Statistic is empty for current readings.
type Descriptor struct {
	Key       soil.Key
	Kind      Kind
	Statistic soil.Statistic
	Sensor    soil.SensorType
}

// descriptors is built once from the fixed key and statistic lists.
var descriptors = buildDescriptors()

func buildDescriptors() []Descriptor {
	keys := soil.Keys()
	list := make([]Descriptor, 0, len(keys)*(1+len(soil.Statistics)))
	for _, key := range keys {
		list = append(list, Descriptor{Key: key, Kind: KindCurrent, Sensor: key.Sensor()})
	}
	for _, stat := range soil.Statistics {
		for _, key := range keys {
			list = append(list, Descriptor{Key: key, Kind: KindSummary, Statistic: stat, Sensor: key.Sensor()})
		}
	}
	return list
}

// Descriptors returns all 44 reading descriptors: the current readings first, followed by the
// max, min and mean summary readings.
func Descriptors() []Descriptor {
	list := make([]Descriptor, len(descriptors))
	copy(list, descriptors)
	return list
}

// ID returns the reading id, e.g. current_soil_temperature_0cm or summary_max_soil_moisture_1_3cm.
func (d Descriptor) ID() string {
	if d.Kind == KindSummary {
		return string(KindSummary) + "_" + string(d.Statistic) + "_" + string(d.Key)
	}
	return string(KindCurrent) + "_" + string(d.Key)
}

// UniqueID prefixes the reading id with the id of the configured entry.
func (d Descriptor) UniqueID(entryID string) string {
	return entryID + "_" + d.ID()
}

// Name returns the display name, e.g. "Current Soil Temperature 0cm" or
// "Today's Max Soil Moisture 1-3cm".
func (d Descriptor) Name() string {
	if d.Kind == KindSummary {
		return "Today's " + titleCaser.String(string(d.Statistic)) + " " + d.Sensor.Name() + " " + d.Key.Depth()
	}
	return titleCaser.String(string(KindCurrent)) + " " + d.Sensor.Name() + " " + d.Key.Depth()
}

// EnabledByDefault reports whether the reading is shown without being enabled explicitly.
func (d Descriptor) EnabledByDefault() bool {
	return d.Kind == KindCurrent
}
