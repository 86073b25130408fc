package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"

	"github.com/tsmaterialise/tsmaterialise/internal/codec"
	"github.com/tsmaterialise/tsmaterialise/internal/flatted"
	"github.com/tsmaterialise/tsmaterialise/internal/render"
	"github.com/tsmaterialise/tsmaterialise/reify"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		format   string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <encoded | @file | @->",
		Short: "Decode an encoded type and print it",
		Long: `Decode the encoded type a rewritten call receives and print the type graph.

The argument is the encoded text itself, or @file to read it from a file, or
@- to read stdin. A quoted string literal, as it appears in emitted
JavaScript, is unquoted first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := a.readEncoded(args[0])
			if err != nil {
				return err
			}
			t, err := codec.DecodeType(encoded)
			if err != nil {
				return err
			}
			if validate {
				if err := reify.Validate(t); err != nil {
					return err
				}
			}

			switch format {
			case "summary":
				fmt.Fprint(a.stdout, render.Summary(t))
			case "yaml":
				out, err := render.YAML(t)
				if err != nil {
					return err
				}
				a.stdout.Write(out)
			case "json":
				out, err := flatted.Indent(encoded)
				if err != nil {
					return err
				}
				fmt.Fprint(a.stdout, out)
			default:
				return fmt.Errorf("unknown format %q (want summary, yaml or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "summary", "output format: summary, yaml or json")
	cmd.Flags().BoolVar(&validate, "validate", false, "check every node of the graph, not only the root")
	return cmd
}

// readEncoded resolves the inspect argument to the encoded text.
func (a *app) readEncoded(arg string) (string, error) {
	text := arg
	switch {
	case arg == "@-":
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(a.abs(arg[1:]))
		if err != nil {
			return "", err
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return "", fmt.Errorf("invalid string literal: %w", err)
		}
		text = s
	}
	return text, nil
}
