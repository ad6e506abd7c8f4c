package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui"
)

func stubTerminal(t *testing.T, terminal bool, run func(*tui.App) error) func() {
	t.Helper()
	oldTerm, oldRun := isTerminal, runProgram
	isTerminal = func() bool { return terminal }
	runProgram = run
	return func() { isTerminal, runProgram = oldTerm, oldRun }
}

func TestTUICmd_Use(t *testing.T) {
	assert.Equal(t, "tui", tuiCmd.Use)
	assert.NotEmpty(t, tuiCmd.Short)
}

func TestTUICmd_RequiresTerminal(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer stubTerminal(t, false, func(*tui.App) error {
		t.Fatal("program must not run without a terminal")
		return nil
	})()

	_, err := execute(t, "tui")

	assert.ErrorIs(t, err, ErrNotTerminal)
}

func TestTUICmd_Runs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	var got *tui.App
	defer stubTerminal(t, true, func(app *tui.App) error {
		got = app
		return nil
	})()

	_, err := execute(t, "tui")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Query())
}

func TestTUICmd_ProgramError(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer stubTerminal(t, true, func(*tui.App) error {
		return errors.New("tty lost")
	})()

	_, err := execute(t, "tui")

	assert.EqualError(t, err, "TUI error: tty lost")
}

func TestTUICmd_RecoversPanic(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer stubTerminal(t, true, func(*tui.App) error {
		panic("render")
	})()

	_, err := execute(t, "tui")

	assert.EqualError(t, err, "TUI panic: render")
}

func TestTUICmd_NoService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	queryService = nil
	defer stubTerminal(t, true, func(*tui.App) error { return nil })()

	err := runTUI(tuiCmd, nil)

	assert.EqualError(t, err, "query service not configured")
}
