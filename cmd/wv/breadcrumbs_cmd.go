package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var breadcrumbsCmd = &cobra.Command{
	Use:     "breadcrumbs [show|save|clear]",
	GroupID: "info",
	Short:   "Read, append to, or clear the session breadcrumb trail",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sub := "show"
		if len(args) == 1 {
			sub = args[0]
		}
		path := app.RT.BreadcrumbsPath()

		switch sub {
		case "show":
			data, err := os.ReadFile(path)
			if os.IsNotExist(err) {
				data = nil
			} else if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if jsonOutput {
				outputJSON(map[string]string{"breadcrumbs": string(data)})
				return
			}
			fmt.Print(string(data))

		case "save":
			message, _ := cmd.Flags().GetString("message")
			if message == "" {
				FatalErrorRespectJSON("--message is required for `breadcrumbs save`")
			}
			line := fmt.Sprintf("- %s: %s\n", time.Now().UTC().Format(time.RFC3339), message)
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			defer f.Close()
			if _, err := f.WriteString(line); err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if jsonOutput {
				outputJSON(map[string]bool{"saved": true})
				return
			}
			fmt.Println("saved")

		case "clear":
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			if jsonOutput {
				outputJSON(map[string]bool{"cleared": true})
				return
			}
			fmt.Println("cleared")

		default:
			FatalErrorRespectJSON("unknown breadcrumbs subcommand %q: expected show, save, or clear", sub)
		}
	},
}

func init() {
	breadcrumbsCmd.Flags().String("message", "", "breadcrumb line for `breadcrumbs save`")
	rootCmd.AddCommand(breadcrumbsCmd)
}
