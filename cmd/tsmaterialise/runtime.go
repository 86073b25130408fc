package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsmaterialise/tsmaterialise/internal/codegen"
)

func newRuntimeCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
		strict bool
		dts    bool
	)
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Generate the JavaScript runtime module",
		Long: `Generate the runtime module that rewritten calls import: a decoder for the
encoded types and the withType and materialise entry points.

With --out the module and its declaration file are written next to each
other; otherwise the module is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			f, err := codegen.ParseFormat(format)
			if err != nil {
				return err
			}
			opts := codegen.RuntimeOptions{
				Format:         f,
				MarkerProperty: cfg.MarkerProperty,
				Strict:         strict || cfg.Runtime.StrictValidation,
			}

			if out == "" {
				if dts {
					fmt.Fprint(a.stdout, codegen.RuntimeDeclarations(opts))
				} else {
					fmt.Fprint(a.stdout, codegen.RuntimeModule(opts))
				}
				return nil
			}
			for _, file := range codegen.RuntimeFiles(a.abs(out), opts) {
				if err := writeFile(file.Path, file.Content); err != nil {
					return err
				}
				a.logf("wrote %s", a.rel(file.Path))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "esm", "module format: esm or cjs")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output .js path (default is stdout)")
	cmd.Flags().BoolVar(&strict, "strict", false, "validate every node of decoded types")
	cmd.Flags().BoolVar(&dts, "dts", false, "print the declaration file instead of the module")
	return cmd
}
