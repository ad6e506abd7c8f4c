package github

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

// Mount locates a framework's resources inside a repository.
type Mount struct {
	Owner string
	Repo  string

	// Ref is a branch, tag or commit. Empty means the default branch.
	Ref string

	// Path is the directory holding the framework's files.
	Path string
}

// String renders the mount as "owner/repo@ref:path".
func (m Mount) String() string {
	s := m.Owner + "/" + m.Repo
	if m.Ref != "" {
		s += "@" + m.Ref
	}
	if m.Path != "" {
		s += ":" + m.Path
	}
	return s
}

// ParseMount parses "owner/repo[@ref][:path]".
func ParseMount(s string) (Mount, error) {
	var m Mount
	rest := strings.TrimSpace(s)

	if i := strings.Index(rest, ":"); i >= 0 {
		m.Path = strings.Trim(rest[i+1:], "/")
		rest = rest[:i]
	}
	if i := strings.Index(rest, "@"); i >= 0 {
		m.Ref = rest[i+1:]
		rest = rest[:i]
	}
	owner, repo, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Mount{}, fmt.Errorf("%w: github mount %q must be owner/repo[@ref][:path]", domain.ErrInvalidInput, s)
	}
	m.Owner, m.Repo = owner, repo
	return m, nil
}

// Config holds the parsed configuration for the GitHub loader.
type Config struct {
	// Token is an optional access token. Anonymous access is heavily rate limited.
	Token string

	// Mounts maps framework IDs to their repository location.
	Mounts map[string]Mount

	// RequestsPerSecond is the proactive throttle rate.
	RequestsPerSecond float64
}

// ConfigFromSettings builds a Config, reading the token from the configured
// environment variable.
func ConfigFromSettings(s domain.GitHubSettings) (*Config, error) {
	cfg := &Config{
		Mounts:            make(map[string]Mount, len(s.Mounts)),
		RequestsPerSecond: s.RequestsPerSecond,
	}
	if s.TokenEnv != "" {
		cfg.Token = os.Getenv(s.TokenEnv)
	}

	ids := make([]string, 0, len(s.Mounts))
	for id := range s.Mounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m, err := ParseMount(s.Mounts[id])
		if err != nil {
			return nil, fmt.Errorf("framework %s: %w", id, err)
		}
		cfg.Mounts[id] = m
	}
	return cfg, nil
}
