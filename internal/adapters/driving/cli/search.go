package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchSeverities []string
	searchFrameworks []string
	searchStatuses   []string
	searchCategories []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search framework references",
	Long: `Runs a keyword search across the references of every framework.
Hits are ranked by term frequency with a boost for title matches and can be
filtered by severity, framework, status and category.`,
	Example: `  govlens search "prompt injection"
  govlens search bias --severity critical,high --framework nist-ai-rmf -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results (1-20)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchSeverities, "severity", nil, "only these severities (critical, high, medium, low)")
	searchCmd.Flags().StringSliceVar(&searchFrameworks, "framework", nil, "only these framework IDs")
	searchCmd.Flags().StringSliceVar(&searchStatuses, "status", nil, "only these compliance statuses")
	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "only these categories")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	filters := domain.SearchFilters{
		FrameworkIDs: searchFrameworks,
		Statuses:     searchStatuses,
		Categories:   searchCategories,
	}
	for _, s := range searchSeverities {
		sev, err := domain.ParseSeverity(s)
		if err != nil {
			return err
		}
		filters.Severities = append(filters.Severities, sev)
	}

	hits, err := svc.Search(callerContext(cmd), args[0], filters, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if hits == nil {
			hits = []domain.SearchHit{}
		}
		return printJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintln(out, "Results:")
	fmt.Fprintln(out)
	for i := range hits {
		// Format: [N] key  Title (Score) [severity]
		fmt.Fprintf(out, "  [%d] %s  %s (%.2f)", i+1, hits[i].Key, hits[i].Title, hits[i].Score)
		if hits[i].Severity != "" {
			fmt.Fprintf(out, " [%s]", hits[i].Severity)
		}
		fmt.Fprintln(out)
		if snippet := strings.Join(strings.Fields(hits[i].Snippet), " "); snippet != "" {
			fmt.Fprintf(out, "      %s\n", snippet)
		}
		fmt.Fprintln(out)
	}
	return nil
}
