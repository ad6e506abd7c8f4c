package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestNewConfigStore_MissingFileUsesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "absent.toml")
	store, err := NewConfigStore(p)
	require.NoError(t, err)

	assert.Equal(t, p, store.Path())
	assert.False(t, store.Loaded())
	assert.Equal(t, domain.DefaultSettings(), store.Settings())
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".govlens", "config.toml"), store.Path())
}

func TestNewConfigStore_MergesOverDefaults(t *testing.T) {
	p := writeConfig(t, `
[cache]
capacity = 64
search_ttl = "5m"

[breaker]
cooldown = "45s"

[ratelimit]
search_per_window = 10

[mapper.thresholds]
equivalent = 0.9
related = 0.6
complementary = 0.3

[sources.github]
enabled = true
token_env = "GOVLENS_GH"
mounts = { owasp-llm = "OWASP/top10-llm@main:2_0_vulns" }

[[frameworks]]
id = "internal-policy"
name = "Internal AI Policy"
kind = "framework"
source = "filesystem"
resources = ["internal-policy/policy.md"]
`)
	store, err := NewConfigStore(p)
	require.NoError(t, err)
	assert.True(t, store.Loaded())

	s := store.Settings()
	defaults := domain.DefaultSettings()

	assert.Equal(t, 64, s.Cache.Capacity)
	assert.Equal(t, 5*time.Minute, s.Cache.SearchTTL.Std())
	assert.Equal(t, defaults.Cache.DocumentTTL, s.Cache.DocumentTTL, "unset keys keep defaults")
	assert.Equal(t, 45*time.Second, s.Breaker.Cooldown.Std())
	assert.Equal(t, defaults.Breaker.FailureThreshold, s.Breaker.FailureThreshold)
	assert.Equal(t, 10, s.RateLimit.SearchPerWindow)
	assert.True(t, s.RateLimit.Enabled)
	assert.InDelta(t, 0.9, s.Mapper.Thresholds.Equivalent, 1e-9)

	assert.True(t, s.Sources.GitHub.Enabled)
	assert.Equal(t, "GOVLENS_GH", s.Sources.GitHub.TokenEnv)
	assert.Equal(t, "OWASP/top10-llm@main:2_0_vulns", s.Sources.GitHub.Mounts["owasp-llm"])

	require.Len(t, s.Frameworks, 1)
	assert.Equal(t, "internal-policy", s.Frameworks[0].ID)
	assert.Equal(t, domain.KindFramework, s.Frameworks[0].Kind)
	assert.Equal(t, []string{"internal-policy/policy.md"}, s.Frameworks[0].Resources)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[cache\ncapacity = 1"},
		{"unknown key", "[cache]\ncapacityy = 10"},
		{"bad duration", "[cache]\nsearch_ttl = \"soon\""},
		{"zero capacity", "[cache]\ncapacity = 0"},
		{"default above max", "[search]\ndefault_limit = 30\nmax_limit = 20"},
		{"thresholds out of order", "[mapper.thresholds]\nequivalent = 0.4\nrelated = 0.5\ncomplementary = 0.2"},
		{"filesystem without root", "[sources.filesystem]\nenabled = true"},
		{"framework without resources", "[[frameworks]]\nid = \"x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestNewConfigStore_InvalidFile(t *testing.T) {
	p := writeConfig(t, "[cache]\ncapacity = -1")
	_, err := NewConfigStore(p)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), p)
}

func TestConfigStore_SaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.toml")
	store, err := NewConfigStore(p)
	require.NoError(t, err)

	s := store.Settings()
	s.Cache.Capacity = 99
	s.Warmer.Interval = domain.Duration(2 * time.Minute)
	require.NoError(t, store.Save(s))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := NewConfigStore(p)
	require.NoError(t, err)
	assert.Equal(t, 99, reloaded.Settings().Cache.Capacity)
	assert.Equal(t, 2*time.Minute, reloaded.Settings().Warmer.Interval.Std())

	s.Cache.Capacity = 0
	assert.ErrorIs(t, store.Save(s), domain.ErrInvalidInput)
}
