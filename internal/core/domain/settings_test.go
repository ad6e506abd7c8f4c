package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 30*time.Minute, s.Cache.FrameworkListTTL.Std())
	assert.Equal(t, time.Hour, s.Cache.DocumentTTL.Std())
	assert.Equal(t, 15*time.Minute, s.Cache.SearchTTL.Std())
	assert.Equal(t, 5, s.Breaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, s.Breaker.Cooldown.Std())
	assert.Equal(t, 3, s.Breaker.MaxAttempts)
	assert.Equal(t, 10*time.Second, s.Breaker.CallTimeout.Std())
	assert.Equal(t, 10, s.Search.DefaultLimit)
	assert.Equal(t, 20, s.Search.MaxLimit)
	assert.Equal(t, DefaultThresholds(), s.Mapper.Thresholds)
}

func TestRateLimitSettings_Budget(t *testing.T) {
	s := DefaultSettings().RateLimit
	assert.Equal(t, 50, s.Budget(ClassSearch))
	assert.Equal(t, 200, s.Budget(ClassGet))
	assert.Equal(t, 30, s.Budget(ClassAdmin))
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.ErrorIs(t, d.UnmarshalText([]byte("soon")), ErrInvalidInput)
}
