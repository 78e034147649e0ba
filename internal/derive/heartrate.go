package derive

import (
	"math"

	"example.com/fitsync/internal/resolve"
)

// AverageHeartRate computes a daily average from an intraday series of
// [timestamp, bpm] pairs when the upstream omits the direct aggregate.
// Null and non-positive readings are gaps, not zeros. Returns false
// when no reading is valid.
func AverageHeartRate(series []any) (int, bool) {
	var sum float64
	var count int
	for _, raw := range series {
		pair, ok := raw.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		bpm, ok := resolve.AsNumber(pair[1])
		if !ok || bpm <= 0 {
			continue
		}
		sum += bpm
		count++
	}
	if count == 0 {
		return 0, false
	}
	return int(math.Round(sum / float64(count))), true
}
