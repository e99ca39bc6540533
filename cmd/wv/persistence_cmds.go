package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/ui"
	"github.com/weave-dev/weave/internal/workflow"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "persistence",
	Short:   "Dump state.sql/nodes.jsonl/edges.jsonl and commit .weave/",
	Run: func(cmd *cobra.Command, args []string) {
		gh, _ := cmd.Flags().GetBool("gh")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			if jsonOutput {
				outputJSON(map[string]bool{"dry_run": true})
				return
			}
			fmt.Println("dry run: would write state.sql, nodes.jsonl, edges.jsonl and commit .weave/")
			return
		}
		if err := app.Persist.Sync(rootCtx, gh); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"synced": true})
			return
		}
		fmt.Println("synced")
	},
}

var loadCmd = &cobra.Command{
	Use:     "load",
	GroupID: "persistence",
	Short:   "Restore the hot DB from .weave/state.sql",
	Run: func(cmd *cobra.Command, args []string) {
		warnings, err := app.Persist.Load(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"loaded": true, "warnings": warnings})
			return
		}
		fmt.Println("loaded")
		for _, w := range warnings {
			warn("%s", w)
		}
	},
}

var pruneCmd = &cobra.Command{
	Use:     "prune",
	GroupID: "persistence",
	Short:   "Archive then delete done nodes older than --age",
	Run: func(cmd *cobra.Command, args []string) {
		ageStr, _ := cmd.Flags().GetString("age")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		age, err := workflow.ParseAge(ageStr)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		result, err := app.Persist.Prune(rootCtx, age, dryRun)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		verb := "pruned"
		if result.DryRun {
			verb = "would prune"
		}
		fmt.Printf("%s %d node(s)\n", verb, len(result.Pruned))
		for _, n := range result.Pruned {
			fmt.Printf("  %s %s\n", n.ID, n.Text)
		}
	},
}

var cleanGhostsCmd = &cobra.Command{
	Use:     "clean-ghosts",
	GroupID: "persistence",
	Short:   "Remove edges whose endpoints no longer exist",
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ghosts, err := app.Persist.CleanGhosts(rootCtx, dryRun)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"ghosts": ghosts, "dry_run": dryRun})
			return
		}
		verb := "removed"
		if dryRun {
			verb = "would remove"
		}
		fmt.Printf("%s %d ghost edge(s)\n", verb, len(ghosts))
	},
}

var recoverCmd = &cobra.Command{
	Use:     "recover",
	GroupID: "persistence",
	Short:   "Report any incomplete journaled operation left by a crash",
	Run: func(cmd *cobra.Command, args []string) {
		incomplete, err := app.Persist.Recover(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(incomplete)
			return
		}
		if incomplete == nil {
			fmt.Println("no incomplete operation")
			return
		}
		fmt.Printf("incomplete %s (op_id=%s), completed through step %d, pending action: %s\n",
			incomplete.Op, incomplete.OpID, incomplete.CompletedStep, incomplete.PendingAction)
	},
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: "diagnostics",
	Short:   "Run integrity checks: ghost edges, orphans, journal state, health",
	Run: func(cmd *cobra.Command, args []string) {
		report, err := doctorChecks()
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(report)
			return
		}
		var md strings.Builder
		md.WriteString("# doctor\n\n")
		for k, v := range report {
			fmt.Fprintf(&md, "- **%s**: %v\n", k, v)
		}
		fmt.Println(ui.RenderMarkdown(md.String()))
	},
}

var selftestCmd = &cobra.Command{
	Use:     "selftest",
	GroupID: "diagnostics",
	Short:   "Exercise round-trip write/read/delete against the hot store",
	Run: func(cmd *cobra.Command, args []string) {
		ok, err := runSelftest()
		if jsonOutput {
			outputJSON(map[string]interface{}{"ok": ok, "error": errString(err)})
			return
		}
		if err != nil {
			FatalErrorRespectJSON("selftest failed: %v", err)
		}
		fmt.Println("selftest ok")
	},
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func doctorChecks() (map[string]interface{}, error) {
	ghosts, err := app.Store.GhostEdges(rootCtx)
	if err != nil {
		return nil, err
	}
	orphans, err := app.Store.OrphanNodes(rootCtx)
	if err != nil {
		return nil, err
	}
	incomplete, err := app.Persist.Recover(rootCtx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"ghost_edges":        len(ghosts),
		"orphans":            len(orphans),
		"incomplete_journal": incomplete != nil,
	}, nil
}

func runSelftest() (bool, error) {
	n, err := app.Graph.Add(rootCtx, "selftest probe node", graph.AddOptions{})
	if err != nil {
		return false, err
	}
	got, err := app.Store.GetNode(rootCtx, n.ID)
	if err != nil {
		return false, err
	}
	if got.Text != n.Text {
		return false, fmt.Errorf("round-trip mismatch")
	}
	if _, err := app.Graph.Delete(rootCtx, n.ID, true, false); err != nil {
		return false, err
	}
	return true, nil
}

func init() {
	syncCmd.Flags().Bool("gh", false, "force a GitHub sync pass during this sync")
	syncCmd.Flags().Bool("dry-run", false, "print what would be written without writing it")
	rootCmd.AddCommand(syncCmd)

	rootCmd.AddCommand(loadCmd)

	pruneCmd.Flags().String("age", "30d", "minimum age of a done node to prune, e.g. 30d, 12h")
	pruneCmd.Flags().Bool("dry-run", false, "list candidates without deleting")
	rootCmd.AddCommand(pruneCmd)

	cleanGhostsCmd.Flags().Bool("dry-run", false, "list ghost edges without deleting")
	rootCmd.AddCommand(cleanGhostsCmd)

	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(selftestCmd)
}
