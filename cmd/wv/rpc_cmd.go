package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/rpc"
)

var rpcCmd = &cobra.Command{
	Use:     "rpc",
	GroupID: "info",
	Short:   "Serve the stdio RPC tool set (session/graph scopes) for IDE agents",
	Run: func(cmd *cobra.Command, args []string) {
		server := rpc.New(app.Store, app.Graph, app.Workflow, app.Persist)
		if err := server.Serve(rootCtx, os.Stdin, os.Stdout); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(rpcCmd)
}
