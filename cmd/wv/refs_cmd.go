package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weave-dev/weave/internal/refs"
)

var refsCmd = &cobra.Command{
	Use:     "refs [FILE]",
	GroupID: "graph",
	Short:   "Extract file/code/url/markdown-link references from text",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, _ := cmd.Flags().GetString("text")
		max, _ := cmd.Flags().GetInt("max")
		link, _ := cmd.Flags().GetBool("link")
		from, _ := cmd.Flags().GetString("from")

		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				FatalErrorRespectJSON("reading %s: %v", args[0], err)
			}
			text = string(data)
		}
		if text == "" {
			FatalErrorRespectJSON("pass a FILE argument or -t/--text")
		}

		references := refs.Extract(text, max)

		if link {
			if from == "" {
				FatalErrorRespectJSON("--link requires --from ID")
			}
			results, err := refs.Link(rootCtx, app.Graph, from, references)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if jsonOutput {
				outputJSON(results)
				return
			}
			for _, r := range results {
				if r.LinkedID != "" {
					fmt.Printf("%s: %s -> %s\n", r.Reference.Kind, r.Reference.Value, r.LinkedID)
				} else {
					fmt.Printf("%s: %s (no match)\n", r.Reference.Kind, r.Reference.Value)
				}
			}
			return
		}

		if jsonOutput {
			if references == nil {
				references = []refs.Reference{}
			}
			outputJSON(references)
			return
		}
		fmt.Print(refs.Summary(references))
	},
}

func init() {
	refsCmd.Flags().StringP("text", "t", "", "text to scan instead of a file")
	refsCmd.Flags().Int("max", 0, "maximum number of references to extract (0 = unlimited)")
	refsCmd.Flags().Bool("link", false, "create references edges from --from to matched nodes")
	refsCmd.Flags().String("from", "", "source node id for --link")
	refsCmd.Flags().Bool("interactive", false, "accepted but not applied: links are created without prompting")
	rootCmd.AddCommand(refsCmd)
}
