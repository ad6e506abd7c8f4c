package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultFileName is the configuration file name inside the config directory.
const DefaultFileName = "config.toml"

// ConfigStore loads and persists govlens settings as TOML.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	settings domain.Settings
	loaded   bool
}

// DefaultPath returns ~/.govlens/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".govlens", DefaultFileName), nil
}

// NewConfigStore creates a store for the file at path and loads it.
// If path is empty, defaults to ~/.govlens/config.toml. A missing file
// yields the default settings.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s := &ConfigStore{
		filePath: path,
		settings: domain.DefaultSettings(),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns the current settings.
func (s *ConfigStore) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Loaded reports whether a file was read.
func (s *ConfigStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load reads the configuration file over the defaults.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, use defaults
			s.mu.Lock()
			s.settings = domain.DefaultSettings()
			s.loaded = false
			s.mu.Unlock()
			return nil
		}
		return err
	}

	settings, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", s.filePath, err)
	}

	s.mu.Lock()
	s.settings = settings
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Save writes settings to the file after validating them.
func (s *ConfigStore) Save(settings domain.Settings) error {
	if err := Validate(settings); err != nil {
		return err
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return err
	}
	// Write with restricted permissions
	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Parse decodes TOML over the default settings and validates the result.
func Parse(data []byte) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return domain.Settings{}, fmt.Errorf("%w: unknown configuration keys:\n%s", domain.ErrInvalidInput, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return domain.Settings{}, fmt.Errorf("%w: line %d column %d: %v", domain.ErrInvalidInput, row, col, decodeErr)
		}
		return domain.Settings{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if err := Validate(settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks settings against their constraints.
func Validate(settings domain.Settings) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", strings.TrimPrefix(fe.Namespace(), "Settings."), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}
