package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/ui"
)

var blockCmd = &cobra.Command{
	Use:     "block ID",
	GroupID: "graph",
	Short:   "Mark ID as blocked by --by",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		by, _ := cmd.Flags().GetString("by")
		if by == "" {
			FatalErrorRespectJSON("--by is required")
		}
		if err := app.Graph.Block(rootCtx, args[0], by); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": args[0], "blocked_by": by})
			return
		}
		fmt.Printf("%s blocked by %s\n", args[0], by)
	},
}

var linkCmd = &cobra.Command{
	Use:     "link FROM TO",
	GroupID: "graph",
	Short:   "Create or update a typed edge",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		t, _ := cmd.Flags().GetString("type")
		weight, _ := cmd.Flags().GetFloat64("weight")
		ctxRaw, _ := cmd.Flags().GetString("context")
		if weight == 0 {
			weight = 1.0
		}
		var edgeCtx json.RawMessage
		if ctxRaw != "" {
			if !json.Valid([]byte(ctxRaw)) {
				FatalErrorRespectJSON("%v", id.ParseJSONShape("context", fmt.Errorf("invalid JSON")))
			}
			edgeCtx = json.RawMessage(ctxRaw)
		}
		if err := app.Graph.Link(rootCtx, args[0], args[1], types.EdgeType(t), weight, edgeCtx); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]interface{}{"from": args[0], "to": args[1], "type": t, "weight": weight})
			return
		}
		fmt.Printf("%s --%s--> %s\n", args[0], t, args[1])
	},
}

var resolveCmd = &cobra.Command{
	Use:     "resolve N1 N2",
	GroupID: "graph",
	Short:   "Resolve a contradiction between two nodes",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		winner, _ := cmd.Flags().GetString("winner")
		merge, _ := cmd.Flags().GetBool("merge")
		defer_, _ := cmd.Flags().GetBool("defer")
		rationale, _ := cmd.Flags().GetString("rationale")

		mode := types.ResolveWinner
		switch {
		case merge:
			mode = types.ResolveMerge
		case defer_:
			mode = types.ResolveDefer
		}

		result, err := app.Graph.Resolve(rootCtx, args[0], args[1], mode, winner, rationale)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("resolved (%s)\n", result.Mode)
	},
}

var relatedCmd = &cobra.Command{
	Use:     "related ID",
	GroupID: "graph",
	Short:   "List edges touching ID, optionally filtered by type/direction",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, _ := cmd.Flags().GetString("type")
		dir, _ := cmd.Flags().GetString("direction")
		edges, err := app.Graph.Related(rootCtx, args[0], types.EdgeType(t), types.Direction(dir))
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(edges)
			return
		}
		for _, e := range edges {
			fmt.Printf("%s --%s--> %s (%.2f)\n", e.Source, e.Type, e.Target, e.Weight)
		}
	},
}

var edgesCmd = &cobra.Command{
	Use:     "edges ID",
	GroupID: "graph",
	Short:   "List every edge touching ID",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, _ := cmd.Flags().GetString("type")
		edges, err := app.Graph.EdgesOf(rootCtx, args[0], types.EdgeType(t))
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(edges)
			return
		}
		for _, e := range edges {
			fmt.Printf("%s --%s--> %s\n", e.Source, e.Type, e.Target)
		}
	},
}

var pathCmd = &cobra.Command{
	Use:     "path ID",
	GroupID: "graph",
	Short:   "Print the blocks-ancestry chain rooted at ID",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chain, err := app.Graph.Path(rootCtx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(chain)
			return
		}
		for i, n := range chain {
			fmt.Printf("%d: %s [%s] %s\n", i, n.ID, n.Status, n.Text)
		}
	},
}

var treeCmd = &cobra.Command{
	Use:     "tree [root]",
	GroupID: "graph",
	Short:   "Print the descendant tree rooted at root, or every root forest",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		var roots []string
		if len(args) == 1 {
			roots = []string{args[0]}
		} else {
			nodes, err := app.Graph.Roots(rootCtx)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			for _, n := range nodes {
				roots = append(roots, n.ID)
			}
		}

		var trees []*graph.TreeNode
		for _, r := range roots {
			t, err := app.Graph.Tree(rootCtx, r)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			trees = append(trees, t)
		}

		if jsonOutput {
			outputJSON(trees)
			return
		}
		if mermaid {
			fmt.Println("graph TD")
			for _, t := range trees {
				printTreeMermaid(t)
			}
			return
		}
		for _, t := range trees {
			printTreeNode(t, 0)
		}
	},
}

func printTreeNode(t *graph.TreeNode, depth int) {
	fmt.Printf("%s%s [%s] %s\n", indent(depth), t.Node.ID, t.Node.Status, t.Node.Text)
	for _, c := range t.Children {
		printTreeNode(c, depth+1)
	}
}

func printTreeMermaid(t *graph.TreeNode) {
	for _, c := range t.Children {
		fmt.Printf("  %s --> %s\n", t.Node.ID, c.Node.ID)
		printTreeMermaid(c)
	}
}

func indent(depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "  "
	}
	return s
}

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: "graph",
	Short:   "List todo nodes with no unresolved blocker",
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		nodes, err := app.Graph.Ready(rootCtx)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if count > 0 && len(nodes) > count {
			nodes = nodes[:count]
		}
		if jsonOutput {
			if nodes == nil {
				nodes = []*types.Node{}
			}
			outputJSON(nodes)
			return
		}
		fmt.Println(ui.RenderNodeList(nodes, ui.GetWidth()))
	},
}

func init() {
	blockCmd.Flags().String("by", "", "the blocking node's id/alias")
	rootCmd.AddCommand(blockCmd)

	linkCmd.Flags().String("type", string(types.EdgeRelatesTo), "edge type")
	linkCmd.Flags().Float64("weight", 1.0, "edge weight in [0,1]")
	linkCmd.Flags().String("context", "", "JSON edge context")
	rootCmd.AddCommand(linkCmd)

	resolveCmd.Flags().String("winner", "", "winning node id/alias (mode=winner)")
	resolveCmd.Flags().Bool("merge", false, "merge both nodes into a new one")
	resolveCmd.Flags().Bool("defer", false, "defer resolution, linking both ways with relates_to")
	resolveCmd.Flags().String("rationale", "", "rationale recorded on the supersedes edge")
	rootCmd.AddCommand(resolveCmd)

	relatedCmd.Flags().String("type", "", "filter by edge type")
	relatedCmd.Flags().String("direction", string(types.DirectionBoth), "outbound | inbound | both")
	rootCmd.AddCommand(relatedCmd)

	edgesCmd.Flags().String("type", "", "filter by edge type")
	rootCmd.AddCommand(edgesCmd)

	rootCmd.AddCommand(pathCmd)

	treeCmd.Flags().Bool("active", false, "accepted but not applied: nodes of every status are printed")
	treeCmd.Flags().Int("depth", 0, "accepted but not applied: the full depth is always printed")
	treeCmd.Flags().Bool("mermaid", false, "render as a mermaid graph")
	rootCmd.AddCommand(treeCmd)

	readyCmd.Flags().Int("count", 0, "limit the number of results")
	rootCmd.AddCommand(readyCmd)
}
