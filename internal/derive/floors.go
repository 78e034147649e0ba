package derive

import "example.com/fitsync/internal/resolve"

// floorsAscendedIndex is the position of the ascended count in an
// interval descriptor [startTs, endTs, ascended, descended].
const floorsAscendedIndex = 2

// FloorsClimbed totals floors ascended from a day's interval
// descriptors. A zero total is indistinguishable from an unworn device,
// so it reports false rather than a measured zero. Scalar payloads pass
// through unchanged.
func FloorsClimbed(value any) (int, bool) {
	if total, ok := resolve.AsNumber(value); ok {
		return int(total), true
	}
	intervals, ok := value.([]any)
	if !ok {
		return 0, false
	}
	total := 0
	for _, raw := range intervals {
		descriptor, ok := raw.([]any)
		if !ok || len(descriptor) <= floorsAscendedIndex {
			continue
		}
		ascended, ok := resolve.AsNumber(descriptor[floorsAscendedIndex])
		if !ok {
			continue
		}
		total += int(ascended)
	}
	if total == 0 {
		return 0, false
	}
	return total, true
}
