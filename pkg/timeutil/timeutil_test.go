package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(base, base.Add(-23*time.Hour), nil))
	assert.Equal(t, 1, DaysBetween(base, base.Add(2*time.Minute), nil))
	assert.Equal(t, -1, DaysBetween(base.Add(2*time.Minute), base, nil))
	assert.Equal(t, 29, DaysBetween(base, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), nil))
}

func TestDaysBetween_DSTDoesNotShiftDays(t *testing.T) {
	ny, err := LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// 2025-03-09 is 23 hours long in New York.
	before := time.Date(2025, 3, 8, 23, 30, 0, 0, ny)
	after := time.Date(2025, 3, 10, 0, 30, 0, 0, ny)
	assert.Equal(t, 2, DaysBetween(before, after, ny))
	assert.True(t, IsConsecutiveDay(before, time.Date(2025, 3, 9, 23, 0, 0, 0, ny), ny))
}

func TestLocationDefinesMidnight(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*3600)
	a := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	b := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(a, b, nil))
	assert.False(t, IsSameDay(a, b, plus5))
	assert.True(t, IsConsecutiveDay(a, b, plus5))
}

func TestDayKey(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), DayKey(at, nil))
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), DayKey(at, plus5))
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, plus5), StartOfDay(at, plus5))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestFixedClock(t *testing.T) {
	c := &FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC), c.Now())
	assert.Equal(t, "2025-01-02", FormatDateStr(c.Now()))
	assert.Equal(t, "20250102", CompactDate(c.Now()))
}
