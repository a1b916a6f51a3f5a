package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay_UsesReferenceZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	// 20:00 UTC on June 4th is already June 5th in UTC+7.
	instant := time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Day(instant, loc))
	assert.Equal(t, time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), Day(instant, time.UTC))
}

func TestNights(t *testing.T) {
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, Nights(start, start.AddDate(0, 0, 2)))
	assert.Equal(t, 0, Nights(start, start))
	assert.Equal(t, -1, Nights(start, start.AddDate(0, 0, -1)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", FormatDate(d))

	_, err = ParseDate("10/06/2025")
	assert.Error(t, err)
}

func TestFixed_Advance(t *testing.T) {
	f := &Fixed{At: time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)}
	f.Advance(90 * time.Minute)

	assert.Equal(t, 10, f.Now().Hour())
	assert.Equal(t, 30, f.Now().Minute())
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), Today(f))
}
