package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/govlens/internal/core/domain"
)

var (
	getJSON       bool
	frameworkJSON bool
	correlateJSON bool
	correlateAll  bool
	gapsJSON      bool
	gapsThreshold string
)

var getCmd = &cobra.Command{
	Use:   "get [framework:reference]",
	Short: "Show one reference",
	Example: `  govlens get owasp-llm:LLM01
  govlens get eu-ai-act:Art-9 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var frameworkCmd = &cobra.Command{
	Use:     "framework [id]",
	Aliases: []string{"frameworks"},
	Short:   "List frameworks or show one framework",
	Long: `Without an argument, lists every configured framework with its origin and
reference count. With an ID, loads the framework and lists its references.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFramework,
}

var correlateCmd = &cobra.Command{
	Use:   "correlate [framework:reference] [target-framework]",
	Short: "Map a reference onto another framework",
	Long: `Scores how strongly a reference relates to every reference of the target
framework. Curated mappings take precedence over term overlap.`,
	Example: `  govlens correlate owasp-llm:LLM01 nist-ai-rmf`,
	Args:    cobra.ExactArgs(2),
	RunE:    runCorrelate,
}

var gapsCmd = &cobra.Command{
	Use:   "gaps [source-framework] [target-framework...]",
	Short: "Find references without coverage in other frameworks",
	Long: `Lists the references of the source framework that have no related or
equivalent mapping in each target framework. --threshold keeps only references
at or above the given severity.`,
	Example: `  govlens gaps owasp-llm nist-ai-rmf eu-ai-act --threshold high`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runGaps,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output as JSON")
	frameworkCmd.Flags().BoolVar(&frameworkJSON, "json", false, "output as JSON")
	correlateCmd.Flags().BoolVar(&correlateJSON, "json", false, "output as JSON")
	correlateCmd.Flags().BoolVar(&correlateAll, "all", false, "include mappings labelled none")
	gapsCmd.Flags().BoolVar(&gapsJSON, "json", false, "output as JSON")
	gapsCmd.Flags().StringVar(&gapsThreshold, "threshold", "", "minimum severity (critical, high, medium, low)")

	rootCmd.AddCommand(getCmd, frameworkCmd, correlateCmd, gapsCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}
	key, err := domain.ParseReferenceKey(args[0])
	if err != nil {
		return err
	}

	ref, err := svc.GetReference(callerContext(cmd), key.FrameworkID, key.ReferenceID)
	if err != nil {
		return err
	}
	if getJSON {
		return printJSON(cmd, ref)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", key, ref.Title)
	if meta := referenceMeta(ref); meta != "" {
		fmt.Fprintf(out, "%s\n", meta)
	}
	if len(ref.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(ref.Tags, ", "))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.TrimSpace(ref.Content))
	return nil
}

func referenceMeta(ref *domain.Reference) string {
	parts := make([]string, 0, 3)
	if ref.Severity != "" {
		parts = append(parts, "Severity: "+string(ref.Severity))
	}
	if ref.Category != "" {
		parts = append(parts, "Category: "+ref.Category)
	}
	if ref.Status != "" {
		parts = append(parts, "Status: "+ref.Status)
	}
	return strings.Join(parts, "  ")
}

func runFramework(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}
	ctx := callerContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		frameworks, err := svc.ListFrameworks(ctx)
		if err != nil {
			return err
		}
		if frameworkJSON {
			if frameworks == nil {
				frameworks = []domain.Framework{}
			}
			return printJSON(cmd, frameworks)
		}
		if len(frameworks) == 0 {
			fmt.Fprintln(out, "No frameworks configured.")
			return nil
		}
		for i := range frameworks {
			fw := &frameworks[i]
			fmt.Fprintf(out, "  %-16s %-40s %-12s %-7s %d refs\n",
				fw.ID, fw.Name, fw.Kind, fw.Origin, len(fw.ReferenceIDs))
		}
		return nil
	}

	detail, err := svc.GetFramework(ctx, args[0])
	if err != nil {
		return err
	}
	if frameworkJSON {
		return printJSON(cmd, detail)
	}

	fw := &detail.Framework
	fmt.Fprintf(out, "%s", fw.Name)
	if fw.Version != "" {
		fmt.Fprintf(out, " (%s)", fw.Version)
	}
	fmt.Fprintf(out, "\nID: %s  Kind: %s  Origin: %s\n", fw.ID, fw.Kind, fw.Origin)
	if len(fw.FailedReferences) > 0 {
		fmt.Fprintf(out, "Failed: %s\n", strings.Join(fw.FailedReferences, ", "))
	}
	fmt.Fprintln(out)
	for i := range detail.References {
		ref := &detail.References[i]
		fmt.Fprintf(out, "  %-14s %s", ref.ID, ref.Title)
		if ref.Severity != "" {
			fmt.Fprintf(out, " [%s]", ref.Severity)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}
	key, err := domain.ParseReferenceKey(args[0])
	if err != nil {
		return err
	}

	mappings, err := svc.Correlate(callerContext(cmd), key, args[1])
	if err != nil {
		return err
	}
	if !correlateAll {
		kept := mappings[:0:0]
		for _, m := range mappings {
			if m.Label != domain.LabelNone {
				kept = append(kept, m)
			}
		}
		mappings = kept
	}

	if correlateJSON {
		if mappings == nil {
			mappings = []domain.CorrelationMapping{}
		}
		return printJSON(cmd, mappings)
	}

	out := cmd.OutOrStdout()
	if len(mappings) == 0 {
		fmt.Fprintf(out, "No related references in %s.\n", args[1])
		return nil
	}
	for _, m := range mappings {
		fmt.Fprintf(out, "  %-28s %-14s %.2f  %s (%s)\n", m.Target, m.Label, m.Strength, m.Title, m.Basis)
	}
	return nil
}

func runGaps(cmd *cobra.Command, args []string) error {
	svc, err := requireQuery()
	if err != nil {
		return err
	}

	var threshold domain.Severity
	if gapsThreshold != "" {
		if threshold, err = domain.ParseSeverity(gapsThreshold); err != nil {
			return err
		}
	}

	gaps, err := svc.FindGaps(callerContext(cmd), args[0], args[1:], threshold)
	if err != nil {
		return err
	}
	if gapsJSON {
		if gaps == nil {
			gaps = []domain.Gap{}
		}
		return printJSON(cmd, gaps)
	}

	out := cmd.OutOrStdout()
	if len(gaps) == 0 {
		fmt.Fprintln(out, "No gaps found.")
		return nil
	}
	for _, g := range gaps {
		best := "-"
		if g.BestMatch != nil {
			best = fmt.Sprintf("%s (%.2f)", g.BestMatch, g.BestStrength)
		}
		fmt.Fprintf(out, "  %-24s %-10s %-14s best: %s  %s\n",
			g.Source, g.Severity, g.TargetFramework, best, g.SourceTitle)
	}
	return nil
}
