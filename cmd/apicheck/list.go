package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aichatbot/chatbot-api/internal/smoke"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suites and their checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suites := smoke.Suites()
			out := cmd.OutOrStdout()

			if opts.json {
				listing := make(map[string][]string, len(suites))
				for _, s := range suites {
					for _, c := range s.Checks {
						listing[s.Name] = append(listing[s.Name], c.Name)
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}

			for _, s := range suites {
				fmt.Fprintln(out, s.Name)
				for _, c := range s.Checks {
					fmt.Fprintf(out, "  %s\n", c.Name)
				}
			}
			return nil
		},
	}
}
