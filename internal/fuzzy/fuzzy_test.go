package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("Acme Corp", "  acme   CORP "))
	require.Equal(t, 0.0, Similarity("", "acme"))
	require.InDelta(t, 2.0/3.0, Similarity("acme supplies inc", "acme supplies"), 1e-9)
	require.InDelta(t, 1.0/3.0, Similarity("blue widget", "red widget"), 1e-9)
}

func TestMatchThresholdIsExclusive(t *testing.T) {
	// 3 shared tokens out of 5 is exactly 0.6.
	ok, sim := Match("a b c d", "a b c e")
	require.InDelta(t, 0.6, sim, 1e-9)
	require.False(t, ok)

	ok, sim = Match("acme supplies inc", "acme supplies")
	require.True(t, ok)
	require.Greater(t, sim, DefaultThreshold)
}

func TestBestPrefersHighestThenFirstSeen(t *testing.T) {
	candidates := []string{
		"steel bolts m8 zinc",
		"steel bolts m8",
		"Steel Bolts M8",
		"copper wire",
	}
	idx, sim := Best("steel bolts m8", candidates)
	require.Equal(t, 1, idx)
	require.Equal(t, 1.0, sim)

	idx, _ = Best("steel bolts m8 zinc plated", []string{"steel bolts m8 zinc", "steel bolts m8 zinc"})
	require.Equal(t, 0, idx)

	idx, sim = Best("printer paper", candidates)
	require.Equal(t, -1, idx)
	require.Zero(t, sim)
}

func TestFirstStopsAtEarliestMatch(t *testing.T) {
	candidates := []string{"copper wire", "steel bolts m8 zinc plated", "steel bolts m8 zinc"}
	idx, sim := First("steel bolts m8 zinc", candidates)
	require.Equal(t, 1, idx)
	require.InDelta(t, 0.8, sim, 1e-9)

	idx, _ = First("printer paper", candidates)
	require.Equal(t, -1, idx)
}

func TestTopRanksBelowThreshold(t *testing.T) {
	candidates := []string{"copper wire", "steel bolts", "steel bolts m8", "blue paint"}
	top := Top("steel bolts m8 zinc", candidates, 3)
	require.Len(t, top, 3)
	require.Equal(t, 2, top[0].Index)
	require.Equal(t, 1, top[1].Index)
	require.Equal(t, 0, top[2].Index)
	require.Zero(t, top[2].Similarity)

	require.Nil(t, Top("steel", candidates, 0))
	require.Len(t, Top("steel", candidates[:1], 3), 1)
}
