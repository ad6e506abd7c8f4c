package domain

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes as "30s" style strings.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidInput, text, err)
	}
	*d = Duration(v)
	return nil
}

// Settings is the complete runtime configuration.
type Settings struct {
	Cache      CacheSettings         `toml:"cache"`
	Breaker    BreakerSettings       `toml:"breaker"`
	RateLimit  RateLimitSettings     `toml:"ratelimit"`
	Search     SearchSettings        `toml:"search"`
	Mapper     MapperSettings        `toml:"mapper"`
	Warmer     WarmerSettings        `toml:"warmer"`
	Snapshot   SnapshotSettings      `toml:"snapshot"`
	Sources    SourceSettings        `toml:"sources"`
	Frameworks []FrameworkDescriptor `toml:"frameworks" validate:"dive"`
}

// CacheSettings configures the coalescing cache.
type CacheSettings struct {
	Capacity         int      `toml:"capacity" validate:"gt=0"`
	FrameworkListTTL Duration `toml:"framework_list_ttl" validate:"gt=0"`
	DocumentTTL      Duration `toml:"document_ttl" validate:"gt=0"`
	SearchTTL        Duration `toml:"search_ttl" validate:"gt=0"`

	// ServeStale returns an expired value when its reload fails transiently.
	ServeStale bool `toml:"serve_stale"`
}

// BreakerSettings configures the per-source circuit breakers and retries.
type BreakerSettings struct {
	FailureThreshold int      `toml:"failure_threshold" validate:"gt=0"`
	Cooldown         Duration `toml:"cooldown" validate:"gt=0"`
	MaxAttempts      int      `toml:"max_attempts" validate:"gt=0,lte=10"`
	BackoffBase      Duration `toml:"backoff_base" validate:"gte=0"`
	CallTimeout      Duration `toml:"call_timeout" validate:"gt=0"`
}

// RateLimitSettings configures per-caller admission budgets.
type RateLimitSettings struct {
	Enabled         bool     `toml:"enabled"`
	Window          Duration `toml:"window" validate:"gt=0"`
	SearchPerWindow int      `toml:"search_per_window" validate:"gt=0"`
	GetPerWindow    int      `toml:"get_per_window" validate:"gt=0"`
	AdminPerWindow  int      `toml:"admin_per_window" validate:"gt=0"`
}

// Budget returns the budget for an operation class.
func (s RateLimitSettings) Budget(class OperationClass) int {
	switch class {
	case ClassGet:
		return s.GetPerWindow
	case ClassAdmin:
		return s.AdminPerWindow
	default:
		return s.SearchPerWindow
	}
}

// SearchSettings configures result limits.
type SearchSettings struct {
	DefaultLimit int `toml:"default_limit" validate:"gt=0,ltefield=MaxLimit"`
	MaxLimit     int `toml:"max_limit" validate:"gt=0"`
	SnippetWidth int `toml:"snippet_width" validate:"gte=40"`
}

// MapperSettings configures correlation thresholds.
type MapperSettings struct {
	Thresholds Thresholds `toml:"thresholds"`
}

// WarmerSettings configures background cache warming.
type WarmerSettings struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval" validate:"gt=0"`
}

// SnapshotSettings configures the persisted last-known-good snapshot.
type SnapshotSettings struct {
	Enabled bool `toml:"enabled"`

	// Dir holds snapshot.db. Empty means ~/.govlens/data.
	Dir string `toml:"dir"`
}

// SourceSettings configures the live sources.
type SourceSettings struct {
	GitHub     GitHubSettings     `toml:"github"`
	Filesystem FilesystemSettings `toml:"filesystem"`
}

// GitHubSettings configures the GitHub loader.
type GitHubSettings struct {
	Enabled bool `toml:"enabled"`

	// TokenEnv names the environment variable holding an access token.
	TokenEnv string `toml:"token_env"`

	// Mounts maps framework IDs to "owner/repo@ref:path".
	Mounts map[string]string `toml:"mounts"`

	// RequestsPerSecond throttles outbound calls.
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

// FilesystemSettings configures the local directory loader.
type FilesystemSettings struct {
	Enabled bool   `toml:"enabled"`
	Root    string `toml:"root" validate:"required_if=Enabled true"`
	Watch   bool   `toml:"watch"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Cache: CacheSettings{
			Capacity:         512,
			FrameworkListTTL: Duration(30 * time.Minute),
			DocumentTTL:      Duration(60 * time.Minute),
			SearchTTL:        Duration(15 * time.Minute),
			ServeStale:       true,
		},
		Breaker: BreakerSettings{
			FailureThreshold: 5,
			Cooldown:         Duration(30 * time.Second),
			MaxAttempts:      3,
			BackoffBase:      Duration(200 * time.Millisecond),
			CallTimeout:      Duration(10 * time.Second),
		},
		RateLimit: RateLimitSettings{
			Enabled:         true,
			Window:          Duration(time.Minute),
			SearchPerWindow: 50,
			GetPerWindow:    200,
			AdminPerWindow:  30,
		},
		Search: SearchSettings{
			DefaultLimit: 10,
			MaxLimit:     20,
			SnippetWidth: 160,
		},
		Mapper: MapperSettings{Thresholds: DefaultThresholds()},
		Warmer: WarmerSettings{
			Enabled:  true,
			Interval: Duration(10 * time.Minute),
		},
		Snapshot: SnapshotSettings{Enabled: true},
		Sources: SourceSettings{
			GitHub: GitHubSettings{
				TokenEnv:          "GITHUB_TOKEN",
				RequestsPerSecond: 1.2,
			},
		},
	}
}
