package growthzone

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseCandidate(t *testing.T, c string) time.Time {
	t.Helper()
	for _, layout := range sinceLayouts {
		if ts, err := time.ParseInLocation(layout, c, time.UTC); err == nil {
			return ts
		}
	}
	t.Fatalf("candidate %q matches no layout", c)
	return time.Time{}
}

func TestSinceCandidatesRoundTrip(t *testing.T) {
	want := time.Date(2025, 12, 16, 18, 24, 25, 0, time.UTC)
	inputs := []string{
		"2025-12-16T18:24:25Z",
		"2025-12-16T18:24:25.123Z",
		"2025-12-16t18:24:25z",
		"2025-12-16T182425Z",
		"20251216T182425Z",
		"2025-12-16 18:24:25",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			cands, ok := SinceCandidates(in)
			require.True(t, ok)
			require.NotEmpty(t, cands)

			seen := map[string]bool{}
			for _, c := range cands {
				assert.False(t, strings.ContainsAny(c, `:/\`), "candidate %q", c)
				assert.False(t, seen[c], "duplicate candidate %q", c)
				seen[c] = true
				assert.True(t, parseCandidate(t, c).Equal(want), "candidate %q", c)
			}
			assert.True(t, seen["2025-12-16T182425Z"])
		})
	}
}

func TestSinceCandidatesOrder(t *testing.T) {
	cands, ok := SinceCandidates("20251216T182425Z")
	require.True(t, ok)
	assert.Equal(t, []string{
		"20251216T182425Z",
		"2025-12-16T182425Z",
		"2025-12-16T182425",
		"20251216T182425",
	}, cands)
}

func TestSinceCandidatesRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date"} {
		_, ok := SinceCandidates(in)
		assert.False(t, ok, "input %q", in)
	}
}
