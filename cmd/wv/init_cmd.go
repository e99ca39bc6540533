package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "core",
	Short:   "Create the hot DB, recovering from .weave/state.sql if present",
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		recovered, err := app.Persist.Init(rootCtx, force)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"recovered": recovered})
			return
		}
		if recovered {
			fmt.Println("recovered hot DB from .weave/state.sql")
			return
		}
		fmt.Println("initialized")
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "reinitialize even if the hot DB has nodes")
	rootCmd.AddCommand(initCmd)
}
