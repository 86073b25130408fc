package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	quiet      bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tsmaterialise",
		Short: "Reify TypeScript types into runtime values at build time",
		Long: `tsmaterialise rewrites calls to functions marked as type-reifying so that
each call receives an encoded description of its type argument.

A call such as describe<User>(x) is emitted as describe("<encoded User>", x),
and the runtime decodes the string back into a type graph.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cwd != "" {
				return nil
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get working directory: %w", err)
			}
			a.cwd = cwd
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is ./tsmaterialise.config.json or .yaml)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress progress output and warnings")

	root.AddCommand(
		newBuildCmd(a),
		newRewriteCmd(a),
		newInspectCmd(a),
		newRuntimeCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, "tsmaterialise", version)
		},
	}
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
