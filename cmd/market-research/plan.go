// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/market-research/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan <topic...>",
	Short: "Print the search queries planned for a topic",
	Long: `Plan shows the queries the research command would send to the search
provider, without any network access. Topics of four or more words are
searched as-is plus analysis, news, and discussion variants. Shorter topics
get trend, funding, application, research, and adoption angles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	topic := planner.Normalize(strings.Join(args, " "))
	if topic == "" {
		return fmt.Errorf("empty topic")
	}
	queries := planner.PlanQueries(topic)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(queries)
	}
	for i, q := range queries {
		fmt.Fprintf(os.Stdout, "%d. %s\n", i+1, q)
	}
	return nil
}

func init() {
	planCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(planCmd)
}
