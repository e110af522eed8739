package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Guayaquil")
	assert.NoError(t, err)

	ts := time.Date(2026, 3, 10, 17, 42, 13, 500, loc)
	got := StartOfDay(ts)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location(), "midnight must stay in the input's zone")
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired(UTCNow().Add(-time.Minute)))
	assert.False(t, IsExpired(UTCNow().Add(time.Minute)))

	assert.False(t, IsExpiredPtr(nil))
	assert.True(t, IsExpiredPtr(ToPtr(UTCNow().Add(-time.Minute))))
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.True(t, IsTrue(ToPtr(true)))
}

func TestUTCNowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, UTCNow().Location())
	assert.Equal(t, time.UTC, TimeToUTC(time.Now()).Location())
}
