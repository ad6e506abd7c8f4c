package driven

import "github.com/custodia-labs/govlens/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and validation.
type ConfigStore interface {
	// Settings returns the current settings, defaults included.
	Settings() domain.Settings

	// Loaded reports whether the settings came from storage.
	// False means the defaults are in effect.
	Loaded() bool

	// Load reads configuration from storage over the defaults.
	Load() error

	// Save validates and persists settings.
	Save(settings domain.Settings) error

	// Path returns the configuration file path.
	Path() string
}
