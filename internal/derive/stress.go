// Package derive computes metrics the upstream reports only as raw
// sample series: stress histograms, floor totals, training summaries
// and goal projections.
package derive

import (
	"math"

	"example.com/fitsync/internal/resolve"
)

// Stress level bucket boundaries, inclusive upper bounds.
const (
	stressRestMax   = 25
	stressLowMax    = 50
	stressMediumMax = 75
)

// stressSampleMinutes is the sampling interval of the upstream stress
// series. Each sample represents one monitored interval.
const stressSampleMinutes = 3

// StressSummary is a bucketed view of one day of stress samples.
type StressSummary struct {
	RestMinutes      int
	LowMinutes       int
	MediumMinutes    int
	HighMinutes      int
	AverageStress    float64
	MaxStress        int
	MonitoredMinutes int
}

// StressFromSamples buckets a raw sample series into level histograms.
// Each sample is a [timestamp, value] pair. A zero level counts as rest
// time but only positive levels feed the average, max and monitored
// totals; negative sentinel values mark intervals the device could not
// measure and are skipped entirely. An empty or malformed series yields
// all zeros, never an error.
func StressFromSamples(samples []any) StressSummary {
	var s StressSummary
	var weightedSum float64
	for _, raw := range samples {
		pair, ok := raw.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		value, ok := resolve.AsNumber(pair[1])
		if !ok {
			value = 0
		}
		level := int(value)
		switch {
		case level < 0:
			continue
		case level <= stressRestMax:
			s.RestMinutes += stressSampleMinutes
		case level <= stressLowMax:
			s.LowMinutes += stressSampleMinutes
		case level <= stressMediumMax:
			s.MediumMinutes += stressSampleMinutes
		default:
			s.HighMinutes += stressSampleMinutes
		}
		if level > 0 {
			s.MonitoredMinutes += stressSampleMinutes
			weightedSum += value * stressSampleMinutes
			if level > s.MaxStress {
				s.MaxStress = level
			}
		}
	}
	if s.MonitoredMinutes > 0 {
		s.AverageStress = round2(weightedSum / float64(s.MonitoredMinutes))
	}
	return s
}

// ApplyUpstreamAggregates reconciles the computed summary with
// aggregates the upstream reports directly. A reported average replaces
// the computed one; a reported max only raises it, never lowers it.
func (s *StressSummary) ApplyUpstreamAggregates(avg, max *float64) {
	if avg != nil {
		s.AverageStress = round2(*avg)
	}
	if max != nil && int(*max) > s.MaxStress {
		s.MaxStress = int(*max)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
