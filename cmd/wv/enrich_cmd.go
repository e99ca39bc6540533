package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/enrich"
)

var enrichTopologyCmd = &cobra.Command{
	Use:     "enrich-topology SPEC",
	GroupID: "graph",
	Short:   "Apply a batch of edges described by a JSON spec file in one pass",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		syncGH, _ := cmd.Flags().GetBool("sync-gh")

		data, err := os.ReadFile(args[0])
		if err != nil {
			FatalErrorRespectJSON("reading %s: %v", args[0], err)
		}
		specs, err := enrich.ParseSpec(data)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		result, err := enrich.Apply(rootCtx, app.Graph, app.Workflow.Bridge, specs, dryRun, syncGH)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		verb := "applied"
		if dryRun {
			verb = "would apply"
		}
		fmt.Printf("%s %d edge(s), %d failed\n", verb, len(result.Applied), len(result.Failed))
		for _, f := range result.Failed {
			fmt.Printf("  FAILED %s --%s--> %s: %s\n", f.Spec.From, f.Spec.Type, f.Spec.To, f.Error)
		}
	},
}

func init() {
	enrichTopologyCmd.Flags().Bool("dry-run", false, "show what would be applied without writing")
	enrichTopologyCmd.Flags().Bool("sync-gh", false, "refresh touched parents' GitHub issue bodies")
	rootCmd.AddCommand(enrichTopologyCmd)
}
