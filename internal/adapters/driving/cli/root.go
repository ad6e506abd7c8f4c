// Package cli provides the govlens command line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/app"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driving"
	"github.com/custodia-labs/govlens/internal/logger"
)

// callerID identifies CLI invocations to the rate limiter.
const callerID = "cli"

// skipAppAnnotation marks commands that run without the application.
const skipAppAnnotation = "govlens/skip-app"

var (
	version = "dev"

	configPath string
	verbose    bool

	// queryService is built from the configuration on first use unless a
	// test has set it.
	queryService   driving.QueryService
	metricsHandler http.Handler
	application    *app.App

	newApp = app.New
)

var rootCmd = &cobra.Command{
	Use:   "govlens",
	Short: "Search and cross-reference AI governance frameworks",
	Long: `govlens gives read-only, queryable access to AI governance frameworks
such as the OWASP Top 10 for LLM Applications, the NIST AI RMF and the EU AI Act.

Frameworks are loaded from a bundled snapshot, a local directory or GitHub,
searched by keyword and correlated with each other.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.govlens/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command. The application is closed even when the
// command fails.
func Execute(v string) error {
	version = v
	rootCmd.Version = v
	err := rootCmd.Execute()
	if cerr := closeApp(rootCmd, nil); err == nil {
		err = cerr
	}
	return err
}

func setupApp(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[skipAppAnnotation] == "true" || queryService != nil {
		return nil
	}

	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	application = a
	queryService = a.Query
	metricsHandler = a.Metrics
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	queryService = nil
	metricsHandler = nil
	return err
}

// callerContext tags ctx with the CLI caller identity.
func callerContext(cmd *cobra.Command) context.Context {
	return domain.WithCaller(cmd.Context(), callerID)
}

// requireQuery returns the query service or an error when none is wired.
func requireQuery() (driving.QueryService, error) {
	if queryService == nil {
		return nil, fmt.Errorf("query service not configured")
	}
	return queryService, nil
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
