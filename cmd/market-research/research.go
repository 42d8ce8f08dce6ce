// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/internal/report"
	"github.com/pdiddy/market-research/internal/secrets"
	"github.com/pdiddy/market-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic...>",
	Short: "Produce a market research report for a topic",
	Long: `Research plans search queries for the topic, discovers and fetches
candidate pages, ranks the sources by credibility, and summarizes them into
one report written to stdout. Progress is logged to stderr.

When the archive is enabled (archive.enabled, default true) the run is
recorded in <data_dir>/market-research.db for the history command.

Interrupting the command (Ctrl-C) cancels the run; the pipeline reports
how far it got.`,
	Args: cobra.ArbitraryArgs,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := readConfig()
	if err := applyResearchFlags(cmd, &cfg); err != nil {
		return err
	}
	secrets.Apply(&cfg, loadedSecrets)
	format, _ := cmd.Flags().GetString("format")
	switch report.Format(format) {
	case report.FormatText, report.FormatJSON, report.FormatYAML:
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	p, closeCache, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	out := p.Run(ctx, strings.Join(args, " "))

	if cfg.Archive.Enabled && out.Kind != types.OutcomeInvalidTopic {
		saveRun(out, cfg.Archive)
	}

	return writeOutcome(out, report.Format(format))
}

// applyResearchFlags overrides config values with flags the user set.
func applyResearchFlags(cmd *cobra.Command, cfg *types.PipelineConfig) error {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		s, _ := flags.GetString("strategy")
		cfg.Summarize.Strategy = types.SummaryStrategy(s)
	}
	if flags.Changed("provider") {
		s, _ := flags.GetString("provider")
		cfg.Discovery.Provider = types.SearchProviderKind(s)
	}
	if flags.Changed("ai-provider") {
		s, _ := flags.GetString("ai-provider")
		cfg.Summarize.Provider = types.AIProviderKind(s)
	}
	if flags.Changed("model") {
		cfg.Summarize.Model, _ = flags.GetString("model")
	}
	if flags.Changed("extractor") {
		s, _ := flags.GetString("extractor")
		cfg.Fetch.Extractor = types.ExtractorKind(s)
	}
	if flags.Changed("no-archive") {
		off, _ := flags.GetBool("no-archive")
		cfg.Archive.Enabled = !off
	}

	switch cfg.Summarize.Strategy {
	case types.StrategyMapReduce, types.StrategyWeighted, "":
	default:
		return fmt.Errorf("unknown strategy %q (want map_reduce or weighted)", cfg.Summarize.Strategy)
	}
	return nil
}

// saveRun records out in the archive. Archive failures are logged and do
// not change the command result.
func saveRun(out types.Outcome, cfg types.ArchiveConfig) {
	store, err := openArchive(cfg)
	if err != nil {
		logger.Warn("run not archived", zap.Error(err))
		return
	}
	defer store.Close()

	id, err := store.Save(context.Background(), out)
	if err != nil {
		logger.Warn("run not archived", zap.Error(err))
		return
	}
	logger.Info("run archived", zap.String("run_id", id))
}

// writeOutcome prints the report in the requested format, or the outcome
// message when the run produced no report.
func writeOutcome(out types.Outcome, format report.Format) error {
	if !out.HasReport() || format == report.FormatText || format == "" {
		fmt.Fprintln(os.Stdout, out.Message)
		return nil
	}
	return report.Write(out.Report, format, os.Stdout)
}

func init() {
	researchCmd.Flags().String("format", "text", "Output format: text, json, yaml")
	researchCmd.Flags().String("strategy", "", "Summarization strategy: map_reduce or weighted")
	researchCmd.Flags().String("provider", "", "Search provider: duckduckgo or searxng")
	researchCmd.Flags().String("ai-provider", "", "Generation provider: openai or claude")
	researchCmd.Flags().String("model", "", "Generation model identifier")
	researchCmd.Flags().String("extractor", "", "Main-content extractor: selectors or readability")
	researchCmd.Flags().Bool("no-archive", false, "Do not record the run in the archive")

	rootCmd.AddCommand(researchCmd)
}
