package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/workflow"
)

var workCmd = &cobra.Command{
	Use:     "work ID",
	GroupID: "core",
	Short:   "Claim a node (status=active)",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		quiet, _ := cmd.Flags().GetBool("quiet")
		n, err := app.Workflow.Work(rootCtx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(n)
			return
		}
		if !quiet {
			fmt.Printf("working on %s: %s\n", n.ID, n.Text)
		}
	},
}

var doneCmd = &cobra.Command{
	Use:     "done ID",
	GroupID: "core",
	Short:   "Close a node; auto-unblocks dependents",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		learning, _ := cmd.Flags().GetString("learning")
		noWarn, _ := cmd.Flags().GetBool("no-warn")
		skipVerify, _ := cmd.Flags().GetBool("skip-verification")

		result, err := app.Workflow.Done(rootCtx, args[0], workflow.DoneOptions{
			Learning:         learning,
			SkipVerification: skipVerify,
			NoWarn:           noWarn || app.RT.Cfg.NoWarn,
		})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("done %s\n", result.Node.ID)
		if len(result.Unblocked) > 0 {
			fmt.Printf("unblocked: %v\n", result.Unblocked)
		}
		if result.NextReady != "" {
			fmt.Printf("next ready: %s\n", result.NextReady)
		}
		for _, h := range result.Hints {
			warn("%s", h.Message)
		}
	},
}

var batchDoneCmd = &cobra.Command{
	Use:     "batch-done IDS...",
	GroupID: "core",
	Short:   "Close several nodes with the same learning text",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		learning, _ := cmd.Flags().GetString("learning")
		results, err := app.Workflow.BatchDone(rootCtx, args, learning)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(results)
			return
		}
		for _, r := range results {
			fmt.Printf("done %s\n", r.Node.ID)
		}
	},
}

var bulkUpdateCmd = &cobra.Command{
	Use:     "bulk-update",
	GroupID: "core",
	Short:   "Apply a JSON array of updates read from stdin; all-or-nothing id resolution",
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			FatalErrorRespectJSON("reading stdin: %v", err)
		}
		var entries []workflow.BulkUpdateEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			FatalErrorRespectJSON("%v", id.ParseJSONShape("bulk-update payload", err))
		}
		nodes, err := app.Workflow.BulkUpdate(rootCtx, entries, dryRun)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(nodes)
			return
		}
		for _, n := range nodes {
			fmt.Printf("%s: %s\n", n.ID, n.Status)
		}
	},
}

var quickCmd = &cobra.Command{
	Use:     "quick TEXT",
	GroupID: "core",
	Short:   "Atomically create and close a trivial node, forcing an immediate sync",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		learning, _ := cmd.Flags().GetString("learning")
		result, err := app.Workflow.Quick(rootCtx, args[0], learning)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Println(result.Node.ID)
	},
}

var shipCmd = &cobra.Command{
	Use:     "ship ID",
	GroupID: "core",
	Short:   "done -> sync(gh) -> commit .weave/ -> push, as one journaled op",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		learning, _ := cmd.Flags().GetString("learning")
		gh, _ := cmd.Flags().GetString("gh")
		result, err := app.Workflow.Ship(rootCtx, args[0], workflow.ShipOptions{Learning: learning, GH: gh})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("shipped %s (synced=%v pushed=%v)\n", result.Done.Node.ID, result.Synced, result.Pushed)
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "core",
	Short:   "Print the node currently marked active (WV_ACTIVE), if any",
	Run: func(cmd *cobra.Command, args []string) {
		if app.RT.Cfg.Active == "" {
			if jsonOutput {
				outputJSON(map[string]interface{}{"active": nil})
				return
			}
			fmt.Println("no active node")
			return
		}
		n, err := app.Store.GetNode(rootCtx, app.RT.Cfg.Active)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(n)
			return
		}
		fmt.Printf("%s [%s] %s\n", n.ID, n.Status, n.Text)
	},
}

func init() {
	workCmd.Flags().Bool("quiet", false, "suppress the confirmation line")
	rootCmd.AddCommand(workCmd)

	doneCmd.Flags().String("learning", "", "learning text to record on this node")
	doneCmd.Flags().Bool("no-warn", false, "suppress write-time hints")
	doneCmd.Flags().Bool("skip-verification", false, "skip learning_quality scoring")
	rootCmd.AddCommand(doneCmd)

	batchDoneCmd.Flags().String("learning", "", "learning text applied to every node")
	rootCmd.AddCommand(batchDoneCmd)

	bulkUpdateCmd.Flags().Bool("dry-run", false, "validate without writing")
	rootCmd.AddCommand(bulkUpdateCmd)

	quickCmd.Flags().String("learning", "", "learning text to record")
	rootCmd.AddCommand(quickCmd)

	shipCmd.Flags().String("learning", "", "learning text to record")
	shipCmd.Flags().String("gh", "", "'auto' (default) or 'forced' to force a gh sync, 'skip' to suppress it")
	rootCmd.AddCommand(shipCmd)

	rootCmd.AddCommand(statusCmd)
}
