package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

var (
	statsJSON   bool
	refreshJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and circuit breaker statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [framework-id]",
	Short: "Reload a framework from its source",
	Long: `Drops cached data for one framework, or every framework when no ID is
given, and reloads it. When the reload fails the previous copy keeps being
served.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

// statsOutput is the JSON shape of the stats command.
type statsOutput struct {
	Cache    domain.CacheStats     `json:"cache"`
	Breakers []domain.BreakerStats `json:"breakers"`
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd, refreshCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}
	ctx := callerContext(cmd)

	cache, err := svc.CacheStats(ctx)
	if err != nil {
		return err
	}
	breakers, err := svc.BreakerStats(ctx)
	if err != nil {
		return err
	}
	if breakers == nil {
		breakers = []domain.BreakerStats{}
	}

	if statsJSON {
		return printJSON(cmd, statsOutput{Cache: cache, Breakers: breakers})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Cache:")
	fmt.Fprintf(out, "  Entries:   %d (~%d bytes)\n", cache.Entries, cache.SizeEstimate)
	fmt.Fprintf(out, "  Hits:      %d\n", cache.Hits)
	fmt.Fprintf(out, "  Misses:    %d\n", cache.Misses)
	fmt.Fprintf(out, "  Hit rate:  %.1f%%\n", cache.HitRate*100)
	fmt.Fprintf(out, "  Coalesced: %d\n", cache.Coalesced)
	fmt.Fprintf(out, "  Evictions: %d\n", cache.Evictions)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Breakers:")
	if len(breakers) == 0 {
		fmt.Fprintln(out, "  No live sources configured.")
		return nil
	}
	for _, b := range breakers {
		since := "never"
		if !b.LastTransition.IsZero() {
			since = b.LastTransition.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "  %-12s %-10s failures=%d since=%s\n", b.Source, b.State, b.ConsecutiveFailures, since)
	}
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	if err := svc.Refresh(callerContext(cmd), id); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	target := id
	if target == "" {
		target = "all"
	}
	if refreshJSON {
		return printJSON(cmd, map[string]any{"refreshed": target})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s.\n", target)
	return nil
}
