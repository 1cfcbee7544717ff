// Package commands implements the CLI commands for the mk build tool.
package commands

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/mk/internal/adapters/mkfile"
	"go.trai.ch/mk/internal/app"
	"go.trai.ch/mk/internal/build"
)

// CLI represents the command line interface for mk.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	c := &CLI{app: a}

	rootCmd := &cobra.Command{
		Use:           "mk [flags] [NAME=value ...] [target ...]",
		Short:         "A rule-driven build runner",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("directory")
			if dir == "" {
				return nil
			}
			return os.Chdir(dir)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			jobs, _ := cmd.Flags().GetInt("jobs")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			assigns, targets := splitArgs(args)

			return c.app.Run(cmd.Context(), app.RunOptions{
				File:        file,
				Targets:     targets,
				Jobs:        jobs,
				DryRun:      dryRun,
				Env:         snapshotEnv(),
				Assignments: assigns,
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("file", "f", mkfile.DefaultFilename, "Rule file to read")
	rootCmd.PersistentFlags().StringP("directory", "C", "", "Change to directory before reading the rule file")
	rootCmd.Flags().IntP("jobs", "j", 1, "Number of recipes to run at once")
	rootCmd.Flags().BoolP("dry-run", "n", false, "Echo commands without executing them")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newGraphCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects the command output streams. Used for testing.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
}

// splitArgs separates NAME=value assignments from target names. Anything
// with an equals sign past the first character is an assignment, split at
// the first one; everything else is a target.
func splitArgs(args []string) (map[string]string, []string) {
	assigns := make(map[string]string)
	var targets []string
	for _, arg := range args {
		if i := strings.Index(arg, "="); i > 0 {
			assigns[arg[:i]] = arg[i+1:]
			continue
		}
		targets = append(targets, arg)
	}
	return assigns, targets
}

// snapshotEnv captures the process environment once, at the CLI boundary.
// Everything below receives it as an explicit value.
func snapshotEnv() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.Index(kv, "="); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
