package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/ctxpack"
)

var contextCmd = &cobra.Command{
	Use:     "context [ID]",
	GroupID: "graph",
	Short:   "Build the context pack for a node (blockers, ancestry, related, pitfalls)",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := app.RT.Cfg.Active
		if len(args) == 1 {
			ref = args[0]
		}
		if ref == "" {
			FatalErrorRespectJSON("no node id given and WV_ACTIVE is unset")
		}

		builder := ctxpack.New(app.Graph, app.Store, app.Cache)
		pack, err := builder.Build(rootCtx, ref)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(pack)
			return
		}
		fmt.Printf("%s [%s] %s\n", pack.Node.ID, pack.Node.Status, pack.Node.Text)
		if len(pack.Blockers) > 0 {
			fmt.Println("blockers:")
			for _, b := range pack.Blockers {
				fmt.Printf("  %s [%s] %s\n", b.ID, b.Status, b.Text)
			}
		}
		if len(pack.Ancestors) > 0 {
			fmt.Println("ancestry:")
			for _, a := range pack.Ancestors {
				fmt.Printf("  %s %s\n", a.Node.ID, a.Node.Text)
			}
		}
		if len(pack.Pitfalls) > 0 {
			fmt.Println("pitfalls:")
			for _, p := range pack.Pitfalls {
				fmt.Printf("  %s: %s\n", p.ID, p.Metadata.Pitfall)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(contextCmd)
}
