// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package soil

import (
	"time"

	"github.com/wneessen/soil-temperature/internal/vartype"
)

// Summarize computes max, min and mean per tracked key over all samples of the timeline that
// fall on the same calendar day as day. The calendar is the one of day's location. Keys without
// any qualifying value get unset statistics. The result does not depend on the timeline order.
func Summarize(timeline Timeline, day time.Time) Summary {
	loc := day.Location()
	year, month, date := day.Date()

	values := make(map[Key][]float64)
	for _, sample := range timeline {
		y, m, d := sample.Time.In(loc).Date()
		if y != year || m != month || d != date {
			continue
		}
		for key, val := range sample.Values {
			if val.IsSet() {
				values[key] = append(values[key], val.Value())
			}
		}
	}

	summary := make(Summary, len(TemperatureKeys)+len(MoistureKeys))
	for _, key := range Keys() {
		summary[key] = newStats(values[key])
	}
	return summary
}

func newStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi, sum := values[0], values[0], 0.0
	for _, val := range values {
		lo = min(lo, val)
		hi = max(hi, val)
		sum += val
	}
	return Stats{
		Max:  vartype.NewVariable(hi),
		Min:  vartype.NewVariable(lo),
		Mean: vartype.NewVariable(Round(sum/float64(len(values)), displayPrecision)),
	}
}
