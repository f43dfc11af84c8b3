package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		expected float64
	}{
		{"no activity either period", 0, 0, 0},
		{"growth from nothing counts as 100", 5, 0, 100},
		{"doubled", 10, 5, 100},
		{"halved", 5, 10, -50},
		{"unchanged", 7, 7, 0},
		{"fractional result rounds to one decimal", 10, 3, 233.3},
		{"dropped to zero", 0, 4, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, growthRate(tt.current, tt.previous))
		})
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period        string
		expectedStart time.Time
	}{
		{"24hours", now.AddDate(0, 0, -1)},
		{"7days", now.AddDate(0, 0, -7)},
		{"30days", now.AddDate(0, -1, 0)},
		{"90days", now.AddDate(0, -3, 0)},
		{"nonsense", now.AddDate(0, 0, -7)},
		{"", now.AddDate(0, 0, -7)},
	}

	for _, tt := range tests {
		t.Run("period "+tt.period, func(t *testing.T) {
			start, end := dateRange(tt.period, now)
			assert.Equal(t, tt.expectedStart, start)
			assert.Equal(t, now, end)
		})
	}
}

func TestPreviousRange(t *testing.T) {
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -7)

	prevStart, prevEnd := previousRange(start, end)

	assert.Equal(t, start, prevEnd, "previous window must end where the current one starts")
	assert.Equal(t, end.Sub(start), prevEnd.Sub(prevStart), "windows must be the same length")
}

func TestFillHours(t *testing.T) {
	t.Run("sparse buckets become 24 dense entries", func(t *testing.T) {
		hours := fillHours([]intBucket{
			{Bucket: 0, Count: 3},
			{Bucket: 9, Count: 12},
			{Bucket: 23, Count: 1},
		})

		require.Len(t, hours, 24)
		assert.Equal(t, int64(3), hours[0])
		assert.Equal(t, int64(12), hours[9])
		assert.Equal(t, int64(1), hours[23])
		assert.Equal(t, int64(0), hours[1])
	})

	t.Run("empty input still yields 24 zeroes", func(t *testing.T) {
		hours := fillHours(nil)
		require.Len(t, hours, 24)
		for _, v := range hours {
			assert.Zero(t, v)
		}
	})

	t.Run("out of range buckets are dropped", func(t *testing.T) {
		hours := fillHours([]intBucket{{Bucket: 24, Count: 5}, {Bucket: -1, Count: 5}})
		require.Len(t, hours, 24)
		for _, v := range hours {
			assert.Zero(t, v)
		}
	})
}

func TestCountKeywords(t *testing.T) {
	messages := []string{
		"Tell me about your AI automation offering",
		"How does Artificial Intelligence help with blockchain?",
		"I need a solution for my shops",
	}

	counts := countKeywords(messages)

	// substring matching: "blockchain" also counts towards "ai"
	assert.Equal(t, 2, counts["ai"])
	assert.Equal(t, 1, counts["artificial intelligence"])
	assert.Equal(t, 1, counts["automation"])
	assert.Equal(t, 1, counts["blockchain"])
	assert.Equal(t, 1, counts["solution"])
	assert.NotContains(t, counts, "technology")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(0), estimateTokens(0))
	assert.Equal(t, int64(1), estimateTokens(4))
	assert.Equal(t, int64(3), estimateTokens(10))
	assert.Equal(t, int64(250), estimateTokens(1000))
}

func TestErrorRate(t *testing.T) {
	assert.Equal(t, 20.0, errorRate(2, 10))
	assert.Equal(t, 33.33, errorRate(1, 3))
	assert.Equal(t, 0.0, errorRate(0, 0), "no assistant messages means no rate")
}

func TestRoundHelpers(t *testing.T) {
	assert.Equal(t, 1.6, round1(1.55))
	assert.Equal(t, 2.34, round2(2.344))
	assert.Equal(t, 0.123, round3(0.12345))
	assert.Equal(t, 0.1235, round4(0.12345))
}
