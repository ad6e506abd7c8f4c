package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/app"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
)

// MockQueryService implements driving.QueryService and records the last call.
type MockQueryService struct {
	frameworks []domain.Framework
	detail     *driving.FrameworkDetail
	reference  *domain.Reference
	hits       []domain.SearchHit
	mappings   []domain.CorrelationMapping
	gaps       []domain.Gap
	cache      domain.CacheStats
	breakers   []domain.BreakerStats
	err        error

	lastCaller    string
	lastQuery     string
	lastFilters   domain.SearchFilters
	lastLimit     int
	lastKey       domain.ReferenceKey
	lastTarget    string
	lastTargets   []string
	lastThreshold domain.Severity
	lastID        string
}

func (m *MockQueryService) record(ctx context.Context) {
	m.lastCaller = domain.CallerFrom(ctx)
}

func (m *MockQueryService) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	m.record(ctx)
	return m.frameworks, m.err
}

func (m *MockQueryService) GetFramework(ctx context.Context, id string) (*driving.FrameworkDetail, error) {
	m.record(ctx)
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

func (m *MockQueryService) GetReference(
	ctx context.Context, frameworkID, referenceID string,
) (*domain.Reference, error) {
	m.record(ctx)
	m.lastKey = domain.ReferenceKey{FrameworkID: frameworkID, ReferenceID: referenceID}
	if m.err != nil {
		return nil, m.err
	}
	return m.reference, nil
}

func (m *MockQueryService) Search(
	ctx context.Context, query string, filters domain.SearchFilters, limit int,
) ([]domain.SearchHit, error) {
	m.record(ctx)
	m.lastQuery, m.lastFilters, m.lastLimit = query, filters, limit
	return m.hits, m.err
}

func (m *MockQueryService) Correlate(
	ctx context.Context, key domain.ReferenceKey, target string,
) ([]domain.CorrelationMapping, error) {
	m.record(ctx)
	m.lastKey, m.lastTarget = key, target
	return m.mappings, m.err
}

func (m *MockQueryService) FindGaps(
	ctx context.Context, source string, targets []string, threshold domain.Severity,
) ([]domain.Gap, error) {
	m.record(ctx)
	m.lastID, m.lastTargets, m.lastThreshold = source, targets, threshold
	return m.gaps, m.err
}

func (m *MockQueryService) Refresh(ctx context.Context, id string) error {
	m.record(ctx)
	m.lastID = id
	return m.err
}

func (m *MockQueryService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	m.record(ctx)
	return m.cache, m.err
}

func (m *MockQueryService) BreakerStats(ctx context.Context) ([]domain.BreakerStats, error) {
	m.record(ctx)
	return m.breakers, m.err
}

// setupTestServices installs a mock query service and returns a cleanup
// function restoring the previous state.
func setupTestServices() (*MockQueryService, func()) {
	mock := &MockQueryService{}
	oldQuery, oldMetrics, oldApp := queryService, metricsHandler, application
	queryService = mock
	return mock, func() {
		queryService, metricsHandler, application = oldQuery, oldMetrics, oldApp
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd(t *testing.T) {
	assert.Equal(t, "govlens", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestRootCmd_HasCommands(t *testing.T) {
	want := []string{"serve", "search", "get", "framework", "correlate", "gaps", "stats", "refresh", "tui", "version", "config"}

	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "missing command %s", name)
	}
}

func TestRootCmd_JSONFlagOnDataCommands(t *testing.T) {
	for _, c := range []*cobra.Command{searchCmd, getCmd, frameworkCmd, correlateCmd, gapsCmd, statsCmd, refreshCmd} {
		assert.NotNil(t, c.Flags().Lookup("json"), c.Name())
	}
}

func TestSetupApp_BuildsFromConfig(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	settings := domain.DefaultSettings()
	settings.Warmer.Enabled = false
	settings.Snapshot.Enabled = false

	var gotPath string
	oldNewApp := newApp
	newApp = func(ctx context.Context, path string) (*app.App, error) {
		gotPath = path
		return app.Build(ctx, settings)
	}
	defer func() { newApp = oldNewApp }()

	out, err := execute(t, "--config", "/tmp/govlens-test.toml", "framework")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/govlens-test.toml", gotPath)
	assert.Contains(t, out, "owasp-llm")
	assert.Nil(t, application, "closed after the command")
	assert.Nil(t, queryService)
}

func TestSetupApp_Error(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	oldNewApp := newApp
	newApp = func(context.Context, string) (*app.App, error) {
		return nil, errors.New("bad config")
	}
	defer func() { newApp = oldNewApp }()

	_, err := execute(t, "stats")

	assert.EqualError(t, err, "bad config")
}

func TestSetupApp_SkippedForVersion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil

	oldNewApp := newApp
	newApp = func(context.Context, string) (*app.App, error) {
		t.Fatal("version must not build the application")
		return nil, nil
	}
	defer func() { newApp = oldNewApp }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "govlens version")
}

func TestCallerIsCLI(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Equal(t, callerID, mock.lastCaller)
}

func TestExecute_SetsVersion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	oldVersion := version
	defer func() { version = oldVersion; rootCmd.Version = "" }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute("1.2.3"))
	assert.Equal(t, "1.2.3", rootCmd.Version)
	assert.Contains(t, buf.String(), "govlens version 1.2.3")
}

func TestPrintJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, printJSON(cmd, domain.BreakerStats{Source: "github", LastTransition: time.Time{}}))
	assert.Contains(t, buf.String(), `"source": "github"`)
}
