package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/adapters/driven/config/file"
	"github.com/custodia-labs/govlens/internal/core/domain"
	"github.com/custodia-labs/govlens/internal/core/ports/driven"
)

var configForce bool

// openConfigStore opens the settings file named by --config.
var openConfigStore = func(path string) (driven.ConfigStore, error) {
	return file.NewConfigStore(path)
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage the configuration file",
	Annotations: map[string]string{skipAppAnnotation: "true"},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the built-in default settings to the configuration file
(~/.govlens/config.toml unless --config is given). An existing file is
kept unless --force is set.`,
	Annotations: map[string]string{skipAppAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE:        runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the configuration file path",
	Annotations: map[string]string{skipAppAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openConfigStore(configPath)
		if err != nil {
			return err
		}
		state := "not found, using defaults"
		if store.Loaded() {
			state = "loaded"
		}
		cmd.Printf("%s (%s)\n", store.Path(), state)
		return nil
	},
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore(configPath)
	if err != nil {
		return err
	}
	if store.Loaded() && !configForce {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", domain.ErrInvalidInput, store.Path())
	}
	if err := store.Save(domain.DefaultSettings()); err != nil {
		return fmt.Errorf("writing %s: %w", store.Path(), err)
	}
	cmd.Printf("Wrote default configuration to %s\n", store.Path())
	return nil
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
