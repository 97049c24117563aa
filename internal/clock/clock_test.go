package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	c := New(loc, time.Time{})
	tim := time.Date(2024, 3, 1, 14, 5, 59, 0, time.UTC)
	assert.Equal(t, "Fri 03/01 09:05 AM", c.Label(tim))
	assert.Equal(t, LabelError, c.Label(time.Unix(120, 0)))
}

func TestStamp(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	boot := time.Unix(10, 0)
	c := New(loc, boot)
	assert.Equal(t, "2024-03-01T09:05:59-0500", c.Stamp(time.Date(2024, 3, 1, 14, 5, 59, 0, time.UTC)))
	assert.Equal(t, "1500", c.Stamp(boot.Add(1500*time.Millisecond)))
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestMinuteTicker(t *testing.T) {
	t.Parallel()

	var mt MinuteTicker
	t0 := time.Date(2024, 3, 1, 9, 0, 10, 0, time.UTC)
	assert.True(t, mt.Due(t0))
	assert.False(t, mt.Due(t0.Add(40*time.Second)))
	assert.True(t, mt.Due(t0.Add(50*time.Second)))
	assert.True(t, mt.Due(time.Unix(5, 0)), "switch to unsynced")
	assert.False(t, mt.Due(time.Unix(200, 0)))
}
