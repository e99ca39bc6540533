package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/types"
)

var searchCmd = &cobra.Command{
	Use:     "search QUERY",
	GroupID: "graph",
	Short:   "Full-text search over node text, BM25-ranked",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		if limit <= 0 {
			limit = 20
		}
		nodes, err := app.Store.Search(rootCtx, args[0], limit, types.Status(status))
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
			fmt.Printf("%s [%s] %s\n", n.ID, n.Status, n.Text)
		}
	},
}

var reindexCmd = &cobra.Command{
	Use:     "reindex",
	GroupID: "graph",
	Short:   "Rebuild the full-text index",
	Run: func(cmd *cobra.Command, args []string) {
		if err := app.Store.Reindex(rootCtx); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"reindexed": true})
			return
		}
		fmt.Println("reindexed")
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "maximum results")
	searchCmd.Flags().String("status", "", "filter by status")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reindexCmd)
}
