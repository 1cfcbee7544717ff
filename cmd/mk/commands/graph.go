package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/mk/internal/app"
)

func (c *CLI) newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [NAME=value ...] [target ...]",
		Short: "Print the resolved dependency graph without building anything",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			assigns, targets := splitArgs(args)

			g, err := c.app.Plan(cmd.Context(), app.RunOptions{
				File:        file,
				Targets:     targets,
				Env:         snapshotEnv(),
				Assignments: assigns,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for node := range g.Walk() {
				state := "fresh"
				if node.Stale {
					state = "stale"
				}

				line := fmt.Sprintf("%s [%s]", node.Name.String(), state)
				if len(node.Prereqs) > 0 {
					names := make([]string, len(node.Prereqs))
					for i, req := range node.Prereqs {
						names[i] = req.Name.String()
					}
					line += " <- " + strings.Join(names, " ")
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
