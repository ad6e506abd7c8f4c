package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/govlens/internal/adapters/driving/tui"
	"github.com/custodia-labs/govlens/internal/core/domain"
)

// ErrNotTerminal is returned when the TUI is started without a terminal.
var ErrNotTerminal = errors.New("the TUI needs an interactive terminal")

// isTerminal reports whether stdin is a terminal. Tests replace it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// runProgram runs the TUI app. Tests replace it.
var runProgram = func(app *tui.App) error {
	return app.Run()
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for govlens.

The TUI searches framework references with a live preview pane and browses
frameworks reference by reference, showing related references in the other
frameworks.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Search / Open
  n        - New search
  Esc      - Back
  ctrl+c   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Report panics with a stack trace instead of leaving the terminal raw.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if !isTerminal() {
		return ErrNotTerminal
	}
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	// The TUI is long-running, so warming and watching run alongside it.
	if application != nil {
		application.Start(cmd.Context())
	}

	app, err := tui.NewApp(&tui.Ports{Query: svc})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(domain.WithCaller(cmd.Context(), "tui"))

	if err := runProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
