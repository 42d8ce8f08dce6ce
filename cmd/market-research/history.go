// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/report"
	"github.com/pdiddy/market-research/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived research runs",
	Long: `History reads the run archive in <data_dir>/market-research.db. Runs are
recorded by the research command and the HTTP server.

Use subcommands to list, show, search, export, or delete runs.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openArchive(loadConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunsOutput(runs, jsonOutput)
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search archived topics and narratives",
	Long: `Search matches the query against run topics and report narratives.
When the binary is built with the sqlite_fts5 tag the query uses FTS5 syntax
and results are ranked by relevance; otherwise it is a substring match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := openArchive(loadConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunsOutput(runs, jsonOutput)
}

func formatRunsOutput(runs []archive.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-16s  %-40s  %s\n",
		"ID", "Created", "Outcome", "Topic", "Sources")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 130))

	for _, r := range runs {
		topic := truncate(r.Topic, 40)
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-16s  %-40s  %d/%d\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, topic, r.Extracted, r.Discovered)
	}

	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openArchive(loadConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	r := reportFromRun(run)
	if r == nil {
		if format == string(report.FormatJSON) {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		fmt.Fprintln(os.Stdout, run.Message)
		return nil
	}
	return report.Write(r, report.Format(format), os.Stdout)
}

// reportFromRun rebuilds the report of an archived run, or returns nil
// when the run ended before a report was produced.
func reportFromRun(run *archive.Run) *types.ResearchReport {
	if run.Narrative == "" && len(run.Citations) == 0 {
		return nil
	}
	return &types.ResearchReport{
		Topic:           run.Topic,
		Narrative:       run.Narrative,
		Citations:       run.Citations,
		SourcesAnalyzed: run.SourcesAnalyzed,
		SummariesUsed:   run.SummariesUsed,
		Degraded:        run.Degraded,
		Strategy:        run.Strategy,
		GeneratedAt:     run.CreatedAt,
	}
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every archived run to a YAML file",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openArchive(loadConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	output, _ := cmd.Flags().GetString("output")
	if err := store.ExportYAML(cmd.Context(), output); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported runs to %s\n", output)
	return nil
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete an archived run and its citations",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openArchive(loadConfig().Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Deleted run %s\n", args[0])
	return nil
}

func init() {
	historyListCmd.Flags().Int("limit", 0, "Maximum runs to list (default archive.max_results)")
	historyListCmd.Flags().Bool("json", false, "Output as JSON")

	historySearchCmd.Flags().Int("limit", 0, "Maximum runs to return (default archive.max_results)")
	historySearchCmd.Flags().Bool("json", false, "Output as JSON")

	historyShowCmd.Flags().String("format", "text", "Output format: text, json, yaml")

	historyExportCmd.Flags().String("output", "data/export/runs.yaml", "Output file path")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
