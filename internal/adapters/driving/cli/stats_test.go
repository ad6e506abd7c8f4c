package cli

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

func TestStatsCmd_Text(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.cache = domain.CacheStats{Hits: 3, Misses: 1, HitRate: 0.75, Entries: 4, Coalesced: 2, SizeEstimate: 2048}
	mock.breakers = []domain.BreakerStats{
		{Source: "github", State: "open", ConsecutiveFailures: 5,
			LastTransition: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)},
	}

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Entries:   4 (~2048 bytes)")
	assert.Contains(t, out, "Hit rate:  75.0%")
	assert.Contains(t, out, "Coalesced: 2")
	assert.Contains(t, out, "failures=5 since=2026-10-01T12:00:00Z")
}

func TestStatsCmd_NoBreakers(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "No live sources configured.")
}

func TestStatsCmd_JSON(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.cache = domain.CacheStats{Hits: 7}

	out, err := execute(t, "stats", "--json")
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "cache")
	assert.JSONEq(t, "[]", string(got["breakers"]))
}

func TestStatsCmd_Error(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.err = errors.New("boom")

	_, err := execute(t, "stats")

	assert.Error(t, err)
}

func TestRefreshCmd_All(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.lastID = "unset"

	out, err := execute(t, "refresh")

	require.NoError(t, err)
	assert.Empty(t, mock.lastID)
	assert.Contains(t, out, "Refreshed all.")
}

func TestRefreshCmd_One(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "refresh", "owasp-llm", "--json")

	require.NoError(t, err)
	assert.Equal(t, "owasp-llm", mock.lastID)
	assert.JSONEq(t, `{"refreshed": "owasp-llm"}`, out)
}

func TestRefreshCmd_NotFound(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.err = &domain.NotFoundError{Kind: "framework", ID: "nope"}

	_, err := execute(t, "refresh", "nope")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "refresh failed")
}
