package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/importer"
)

var importCmd = &cobra.Command{
	Use:     "import FILE",
	GroupID: "core",
	Short:   "Create nodes from a markdown checklist/outline plan",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filterFlag, _ := cmd.Flags().GetStringArray("filter")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		data, err := os.ReadFile(args[0])
		if err != nil {
			FatalErrorRespectJSON("reading %s: %v", args[0], err)
		}
		items, err := importer.Parse(data)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		filter := map[string]string{}
		for _, kv := range filterFlag {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				FatalErrorRespectJSON("--filter must be KEY=VALUE, got %q", kv)
			}
			filter[k] = v
		}

		result, err := importer.Import(rootCtx, app.Graph, items, importer.Options{Filter: filter, DryRun: dryRun})
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		verb := "created"
		if dryRun {
			verb = "would create"
		}
		fmt.Printf("%s %d node(s), skipped %d\n", verb, result.Planned, result.Skipped)
	},
}

var planCmd = &cobra.Command{
	Use:     "plan FILE",
	GroupID: "core",
	Short:   "Import a plan file scoped to one sprint",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sprintStr, _ := cmd.Flags().GetString("sprint")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if sprintStr == "" {
			FatalErrorRespectJSON("--sprint is required")
		}
		sprint, err := strconv.Atoi(sprintStr)
		if err != nil {
			FatalErrorRespectJSON("--sprint must be an integer, got %q", sprintStr)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			FatalErrorRespectJSON("reading %s: %v", args[0], err)
		}

		result, err := importer.Plan(rootCtx, app.Graph, data, sprint, dryRun)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		verb := "created"
		if dryRun {
			verb = "would create"
		}
		fmt.Printf("sprint %d: %s %d node(s), skipped %d\n", sprint, verb, result.Planned, result.Skipped)
	},
}

func init() {
	importCmd.Flags().StringArray("filter", nil, "only import items matching KEY=VALUE (repeatable)")
	importCmd.Flags().Bool("dry-run", false, "show what would be created without writing")
	rootCmd.AddCommand(importCmd)

	planCmd.Flags().String("sprint", "", "sprint number to import (required)")
	planCmd.Flags().Bool("dry-run", false, "show what would be created without writing")
	planCmd.Flags().Bool("gh", false, "accepted but not applied: no GitHub issues are created")
	planCmd.Flags().Bool("template", false, "accepted but not applied: no template is printed and --sprint is still required")
	rootCmd.AddCommand(planCmd)
}
