package derive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloorsClimbedSumsAscended(t *testing.T) {
	total, ok := FloorsClimbed([]any{
		[]any{"07:00", "07:15", 5.0, 2.0},
		[]any{"07:15", "07:30", 0.0, 1.0},
	})
	require.True(t, ok)
	require.Equal(t, 5, total)
}

func TestFloorsClimbedZeroSumIsAbsent(t *testing.T) {
	_, ok := FloorsClimbed([]any{
		[]any{"07:00", "07:15", 0.0, 0.0},
	})
	require.False(t, ok, "a zero total is not a measured zero")
}

func TestFloorsClimbedScalarPassthrough(t *testing.T) {
	total, ok := FloorsClimbed(12.0)
	require.True(t, ok)
	require.Equal(t, 12, total)
}

func TestFloorsClimbedSkipsMalformedEntries(t *testing.T) {
	total, ok := FloorsClimbed([]any{
		[]any{"07:00", "07:15"},
		"garbage",
		[]any{"07:15", "07:30", 3.0, 0.0},
	})
	require.True(t, ok)
	require.Equal(t, 3, total)
}
