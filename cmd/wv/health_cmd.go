package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/health"
	"github.com/weave-dev/weave/internal/persistence"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	GroupID: "diagnostics",
	Short:   "Compute and log the graph health score",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		historyFlag := cmd.Flags().Lookup("history")

		report, err := health.Compute(rootCtx, app.Store)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if err := health.LogEntry(app.RT, report); err != nil {
			warn("writing health.log failed: %v", err)
		}

		if historyFlag != nil && historyFlag.Changed {
			n, _ := cmd.Flags().GetInt("history")
			entries, err := health.History(app.RT, n)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if jsonOutput {
				outputJSON(entries)
				return
			}
			for _, e := range entries {
				fmt.Printf("%s\t%d\t%d nodes\t%d edges\n", e.Timestamp, e.Score, e.Nodes, e.Edges)
			}
			return
		}

		if jsonOutput {
			outputJSON(report)
			return
		}
		fmt.Println(ui.RenderMarkdown(health.Digest(report)))
		if verbose {
			for _, a := range report.Alerts {
				fmt.Printf("  - %s\n", a)
			}
		}
	},
}

var digestCmd = &cobra.Command{
	Use:     "digest",
	GroupID: "diagnostics",
	Short:   "One-line health digest",
	Run: func(cmd *cobra.Command, args []string) {
		report, err := health.Compute(rootCtx, app.Store)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(report)
			return
		}
		fmt.Println(ui.RenderMarkdown(health.Digest(report)))
	},
}

var overviewCmd = &cobra.Command{
	Use:     "overview",
	GroupID: "diagnostics",
	Short:   "One-screen combination of ready/health/blocked+active counts for agent onboarding",
	Run: func(cmd *cobra.Command, args []string) {
		report, err := health.Compute(rootCtx, app.Store)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		ready, err := app.Graph.Ready(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if len(ready) > 5 {
			ready = ready[:5]
		}
		blockedNodes, err := app.Store.ListNodes(rootCtx, storage.NodeFilter{Status: types.StatusBlocked})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		activeNodes, err := app.Store.ListNodes(rootCtx, storage.NodeFilter{Status: types.StatusActive})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		blocked, active := len(blockedNodes), len(activeNodes)

		out := map[string]interface{}{
			"health":  report,
			"ready":   ready,
			"blocked": blocked,
			"active":  active,
		}
		if jsonOutput {
			outputJSON(out)
			return
		}
		fmt.Println(ui.RenderMarkdown(health.Digest(report)))
		fmt.Printf("%d ready, %d blocked, %d active\n", len(ready), blocked, active)
		for _, n := range ready {
			fmt.Printf("  %s %s\n", n.ID, n.Text)
		}
	},
}

var sessionSummaryCmd = &cobra.Command{
	Use:     "session-summary",
	GroupID: "diagnostics",
	Short:   "Diff live counts against the snapshot taken at the last load",
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := readSessionSnapshot(app.RT.HotZone)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		summary, err := health.Summarize(rootCtx, app.Store, snap)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(summary)
			return
		}
		fmt.Printf("session: %s, %d created, %d completed, %d new learnings\n",
			summary.Duration.Round(1e9), summary.NodesCreated, summary.NodesCompleted, summary.NewLearnings)
	},
}

func readSessionSnapshot(hotZone string) (persistence.SessionSnapshot, error) {
	var snap persistence.SessionSnapshot
	data, err := os.ReadFile(hotZone + "/.session_snapshot.json")
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

func init() {
	healthCmd.Flags().Bool("verbose", false, "print every alert")
	healthCmd.Flags().Int("history", 0, "after computing and logging the score, print the last N health.log entries instead of the report")
	rootCmd.AddCommand(healthCmd)

	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(sessionSummaryCmd)
}
