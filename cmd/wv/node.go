package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/graph"
	"github.com/weave-dev/weave/internal/id"
	"github.com/weave-dev/weave/internal/storage"
	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/ui"
	"github.com/weave-dev/weave/internal/workflow"
)

func parseMetadataFlag(raw string) (types.Metadata, error) {
	var m types.Metadata
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, id.ParseJSONShape("metadata", err)
	}
	return m, nil
}

var addCmd = &cobra.Command{
	Use:     "add TEXT",
	GroupID: "core",
	Short:   "Create a node; prints its id on stdout",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		metaRaw, _ := cmd.Flags().GetString("metadata")
		alias, _ := cmd.Flags().GetString("alias")
		parent, _ := cmd.Flags().GetString("parent")
		gh, _ := cmd.Flags().GetBool("gh")
		force, _ := cmd.Flags().GetBool("force")

		meta, err := parseMetadataFlag(metaRaw)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		n, err := app.Graph.Add(rootCtx, args[0], graph.AddOptions{
			Status:   types.Status(status),
			Metadata: meta,
			Alias:    alias,
			Parent:   parent,
			Force:    force,
		})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if gh {
			num, err := app.Workflow.Bridge.CreateIssue(rootCtx, n.Text, nil, "")
			if err != nil {
				warn("gh issue create failed: %v", err)
			} else if num != nil {
				n.Metadata.GHIssue = num
				_ = app.Store.UpdateNode(rootCtx, n)
			}
		}

		hints := emitWriteHints(n)
		if jsonOutput {
			outputJSON(map[string]interface{}{"node": n, "hints": hints})
		} else {
			fmt.Println(n.ID)
		}
	},
}

var updateCmd = &cobra.Command{
	Use:     "update ID",
	GroupID: "core",
	Short:   "Modify a node; metadata is merged shallowly",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := graph.UpdateOptions{}
		if cmd.Flags().Changed("status") {
			s, _ := cmd.Flags().GetString("status")
			st := types.Status(s)
			opts.Status = &st
		}
		if cmd.Flags().Changed("text") {
			t, _ := cmd.Flags().GetString("text")
			opts.Text = &t
		}
		if cmd.Flags().Changed("alias") {
			a, _ := cmd.Flags().GetString("alias")
			opts.Alias = &a
		}
		if cmd.Flags().Changed("metadata") {
			raw, _ := cmd.Flags().GetString("metadata")
			m, err := parseMetadataFlag(raw)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			opts.Metadata = m
			opts.HasMeta = true
		}
		if cmd.Flags().Changed("remove-key") {
			opts.RemoveKey, _ = cmd.Flags().GetString("remove-key")
		}

		n, err := app.Graph.Update(rootCtx, args[0], opts)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		hints := emitWriteHints(n)
		if jsonOutput {
			outputJSON(map[string]interface{}{"node": n, "hints": hints})
		} else {
			fmt.Printf("updated %s\n", n.ID)
		}
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete ID",
	GroupID: "core",
	Short:   "Delete a node",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noGH, _ := cmd.Flags().GetBool("no-gh")

		var ghNumber *int
		if !noGH && !dryRun {
			if nodeID, err := app.Graph.ResolveID(rootCtx, args[0]); err == nil {
				if n, err := app.Store.GetNode(rootCtx, nodeID); err == nil {
					ghNumber = n.Metadata.GHIssue
				}
			}
		}

		if !dryRun {
			app.Graph.Archiver = app.Persist.ArchiveNode
		}
		result, err := app.Graph.Delete(rootCtx, args[0], force, dryRun)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if ghNumber != nil {
			if err := app.Workflow.Bridge.CloseIssue(rootCtx, *ghNumber, "Deleted via weave."); err != nil {
				warn("gh issue close failed: %v", err)
			}
		}
		if jsonOutput {
			outputJSON(result)
		} else if dryRun {
			fmt.Printf("would delete %s (%d edges, %d children)\n", result.ID, result.EdgesRemoved, len(result.Children))
		} else {
			fmt.Printf("deleted %s\n", result.ID)
		}
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "core",
	Short:   "List nodes",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		typ, _ := cmd.Flags().GetString("type")
		all, _ := cmd.Flags().GetBool("all")
		priority, _ := cmd.Flags().GetInt("priority")

		filter := storage.NodeFilter{Status: types.Status(status), Type: typ, All: all}
		if cmd.Flags().Changed("priority") {
			filter.Priority = &priority
		}
		nodes, err := app.Store.ListNodes(rootCtx, filter)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(nodes)
			return
		}
		fmt.Println(ui.RenderNodeList(nodes, ui.GetWidth()))
	},
}

var showCmd = &cobra.Command{
	Use:     "show ID",
	GroupID: "core",
	Short:   "Show a single node",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		nodeID, err := app.Graph.ResolveID(rootCtx, args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		n, err := app.Store.GetNode(rootCtx, nodeID)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON([]*types.Node{n})
			return
		}
		fmt.Printf("%s [%s] %s\n", n.ID, n.Status, n.Text)
		if n.Alias != "" {
			fmt.Printf("alias: %s\n", n.Alias)
		}
		if n.Metadata.Learning != "" {
			fmt.Printf("learning: %s\n", n.Metadata.Learning)
		}
	},
}

func init() {
	addCmd.Flags().String("status", "", "initial status (default todo)")
	addCmd.Flags().String("metadata", "", "JSON metadata object")
	addCmd.Flags().String("alias", "", "human-friendly alias")
	addCmd.Flags().String("parent", "", "parent id/alias (adds an implements edge)")
	addCmd.Flags().Bool("gh", false, "create a linked GitHub issue")
	addCmd.Flags().Bool("force", false, "skip the near-duplicate check")
	rootCmd.AddCommand(addCmd)

	updateCmd.Flags().String("status", "", "new status")
	updateCmd.Flags().String("text", "", "new text")
	updateCmd.Flags().String("metadata", "", "JSON metadata object, merged shallowly")
	updateCmd.Flags().String("alias", "", "new alias")
	updateCmd.Flags().String("remove-key", "", "delete a single metadata key")
	rootCmd.AddCommand(updateCmd)

	deleteCmd.Flags().Bool("force", false, "delete despite having children")
	deleteCmd.Flags().Bool("dry-run", false, "report what would be deleted")
	deleteCmd.Flags().Bool("no-gh", false, "skip closing any linked GitHub issue")
	rootCmd.AddCommand(deleteCmd)

	listCmd.Flags().String("status", "", "filter by status")
	listCmd.Flags().String("type", "", "filter by metadata.type")
	listCmd.Flags().Int("priority", 0, "filter by metadata.priority")
	listCmd.Flags().Bool("all", false, "include done nodes")
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(showCmd)
}

// emitWriteHints surfaces workflow.Hints at every write site add/update
// share (spec 4.E step 10), printed to stderr off-JSON.
func emitWriteHints(n *types.Node) []workflow.Hint {
	hints := writeHints(n)
	if !jsonOutput {
		for _, h := range hints {
			warn("%s", h.Message)
		}
	}
	return hints
}
