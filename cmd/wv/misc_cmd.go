package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/types"
	"github.com/weave-dev/weave/internal/ui"
)

var edgeTypesCmd = &cobra.Command{
	Use:         "edge-types",
	GroupID:     "info",
	Short:       "List the valid edge types",
	Annotations: map[string]string{skipStoreAnnotation: "1"},
	Run: func(cmd *cobra.Command, args []string) {
		var kinds []types.EdgeType
		for k := range types.ValidEdgeTypes {
			kinds = append(kinds, k)
		}
		if jsonOutput {
			outputJSON(kinds)
			return
		}
		for _, k := range kinds {
			fmt.Println(k)
		}
	},
}

var guideTopics = map[string]string{
	"ids": `# Node ids

Ids are ` + "`wv-`" + ` plus 4-6 hex characters, assigned on create and never
reused. An alias (` + "`--alias`" + `) is an optional human-friendly second
name you can pass anywhere an id is accepted.`,
	"edges": `# Edge types

` + "`blocks`" + `, ` + "`relates_to`" + `, ` + "`implements`" + `, ` + "`contradicts`" + `, ` + "`supersedes`" + `,
` + "`references`" + `, ` + "`obsoletes`" + `, ` + "`addresses`" + `.

` + "`implements`" + ` is the parent/child relation walked by ` + "`tree`" + `;
` + "`blocks`" + ` is what gates readiness and what ` + "`path`" + ` follows.`,
	"status": `# Status

` + "`todo`" + ` -> ` + "`active`" + ` -> ` + "`done`" + `, with ` + "`blocked`" + ` and
` + "`blocked-external`" + ` as side states a blocking edge or an external
issue can push a node into.`,
	"ship": `# Shipping work

` + "`wv ship ID --learning=\"...\"`" + ` composes ` + "`done`" + ` -> ` + "`sync`" + ` -> commit
` + "`.weave/`" + ` -> push as one journaled, resumable operation.`,
	"context": `# Context packs

` + "`wv context ID --json`" + ` assembles a node's blockers, ancestry,
related edges, and nearby pitfalls into one payload sized for an
agent's prompt.`,
}

var guideCmd = &cobra.Command{
	Use:         "guide",
	GroupID:     "info",
	Short:       "Print a short orientation guide for an AI agent",
	Annotations: map[string]string{skipStoreAnnotation: "1"},
	Run: func(cmd *cobra.Command, args []string) {
		topic, _ := cmd.Flags().GetString("topic")
		if topic == "" {
			if jsonOutput {
				var names []string
				for k := range guideTopics {
					names = append(names, k)
				}
				outputJSON(map[string]interface{}{"topics": names})
				return
			}
			fmt.Println(ui.RenderMarkdown("wv tracks work as a typed graph of nodes and edges.\n\nTopics: ids, edges, status, ship, context. Use --topic=NAME for detail."))
			return
		}
		text, ok := guideTopics[topic]
		if !ok {
			FatalErrorRespectJSON("unknown guide topic %q", topic)
		}
		if jsonOutput {
			outputJSON(map[string]string{"topic": topic, "text": text})
			return
		}
		fmt.Println(ui.RenderMarkdown(text))
	},
}

var mcpStatusCmd = &cobra.Command{
	Use:         "mcp-status",
	GroupID:     "info",
	Short:       "Report whether the MCP/RPC tool surface is reachable",
	Annotations: map[string]string{skipStoreAnnotation: "1"},
	Run: func(cmd *cobra.Command, args []string) {
		status := map[string]interface{}{
			"rpc_available": true,
			"scopes":        []string{"session", "graph"},
		}
		if jsonOutput {
			outputJSON(status)
			return
		}
		fmt.Println("rpc: available (scopes: session, graph)")
	},
}

func init() {
	rootCmd.AddCommand(edgeTypesCmd)

	guideCmd.Flags().String("topic", "", "ids | edges | status | ship | context")
	rootCmd.AddCommand(guideCmd)

	rootCmd.AddCommand(mcpStatusCmd)
}
