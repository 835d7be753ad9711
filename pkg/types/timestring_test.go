package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeStringFromString(t *testing.T) {
	ts, err := NewTimeStringFromString("21:30")
	require.NoError(t, err)
	assert.Equal(t, 21*60+30, ts.Minutes())
	assert.Equal(t, "21:30", ts.String())

	_, err = NewTimeStringFromString("25:00")
	assert.ErrorIs(t, err, ErrInvalidTimeString)

	_, err = NewTimeStringFromString("9pm")
	assert.ErrorIs(t, err, ErrInvalidTimeString)
}

func TestMinutesOfDay(t *testing.T) {
	at := time.Date(2025, 3, 1, 4, 59, 0, 0, time.UTC)
	assert.Equal(t, 4*60+59, MinutesOfDay(at))
	assert.Equal(t, TimeString("04:59"), NewTimeString(at))
}
