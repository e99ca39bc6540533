package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/learning"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
)

var learningsCmd = &cobra.Command{
	Use:     "learnings",
	GroupID: "diagnostics",
	Short:   "Query recorded decisions/patterns/pitfalls/learnings",
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")
		grep, _ := cmd.Flags().GetString("grep")
		recent, _ := cmd.Flags().GetInt("recent")
		minQuality, _ := cmd.Flags().GetInt("min-quality")
		dedup, _ := cmd.Flags().GetBool("dedup")

		nodes, err := learning.List(rootCtx, app.Store, learning.Filter{
			Category: category, Grep: grep, Recent: recent, MinQuality: minQuality, Dedup: dedup,
		})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			if nodes == nil {
				nodes = []*types.Node{}
			}
			outputJSON(nodes)
			return
		}
		for _, n := range nodes {
			fmt.Printf("%s: %s\n", n.ID, learning.CombinedText(n.Metadata))
		}
	},
}

var auditPitfallsCmd = &cobra.Command{
	Use:     "audit-pitfalls",
	GroupID: "diagnostics",
	Short:   "List nodes carrying a recorded pitfall",
	Run: func(cmd *cobra.Command, args []string) {
		onlyUnaddressed, _ := cmd.Flags().GetBool("only-unaddressed")
		onlyAddressed, _ := cmd.Flags().GetBool("only-addressed")

		all, err := app.Store.ListNodes(rootCtx, storage.NodeFilter{All: true})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		var out []*types.Node
		for _, n := range all {
			if n.Metadata.Pitfall == "" {
				continue
			}
			addressed, err := pitfallAddressed(n.ID)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if onlyUnaddressed && addressed {
				continue
			}
			if onlyAddressed && !addressed {
				continue
			}
			out = append(out, n)
		}
		if jsonOutput {
			if out == nil {
				out = []*types.Node{}
			}
			outputJSON(out)
			return
		}
		for _, n := range out {
			fmt.Printf("%s: %s\n", n.ID, n.Metadata.Pitfall)
		}
	},
}

// pitfallAddressed reports whether any node has an `addresses` edge
// pointing at nodeID.
func pitfallAddressed(nodeID string) (bool, error) {
	edges, err := app.Store.EdgesTo(rootCtx, nodeID, types.EdgeAddresses)
	if err != nil {
		return false, err
	}
	return len(edges) > 0, nil
}

func init() {
	learningsCmd.Flags().String("category", "", "decision | pattern | pitfall | learning")
	learningsCmd.Flags().String("grep", "", "substring filter over the combined learning text")
	learningsCmd.Flags().Int("recent", 0, "keep only the N most recently updated")
	learningsCmd.Flags().Int("min-quality", 0, "minimum learning_quality score")
	learningsCmd.Flags().Bool("dedup", false, "drop near-duplicate entries")
	rootCmd.AddCommand(learningsCmd)

	auditPitfallsCmd.Flags().Bool("only-unaddressed", false, "show only pitfalls with no addresses edge")
	auditPitfallsCmd.Flags().Bool("only-addressed", false, "show only pitfalls with an addresses edge")
	rootCmd.AddCommand(auditPitfallsCmd)
}
