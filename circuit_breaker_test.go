package homeworks

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerSettings(t *testing.T) {
	settings := NewCircuitBreakerSettings("tcp://10.0.0.5:4003", 3, time.Minute)
	assert.Equal(t, "tcp://10.0.0.5:4003", settings.Name)
	assert.Equal(t, time.Minute, settings.Timeout)

	assert.False(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 2}))
	assert.True(t, settings.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: 3}))
}

func TestDialBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	settings := NewCircuitBreakerSettings("test", 2, time.Hour)
	cb := newDialBreaker(&settings)
	require.NotNil(t, cb)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	calls := 0
	dial := func() (*puddle.Resource[*Connection], error) {
		calls++
		return nil, errors.New("connection refused")
	}

	for range 2 {
		_, err := cb.Execute(dial)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Open: the dial is not attempted
	_, err := cb.Execute(dial)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestDialBreaker_Disabled(t *testing.T) {
	assert.Nil(t, newDialBreaker(nil))
}
