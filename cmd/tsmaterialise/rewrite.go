package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tsmaterialise/tsmaterialise/internal/compiler"
	"github.com/tsmaterialise/tsmaterialise/internal/diagnostic"
	"github.com/tsmaterialise/tsmaterialise/internal/rewrite"
)

func newRewriteCmd(a *app) *cobra.Command {
	var (
		project string
		outDir  string
		stdout  bool
	)
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Write rewritten TypeScript sources instead of compiling",
		Long: `Scan the project and write each selected source file with its reifying
calls rewritten, for use with another compiler or bundler. Files keep their
layout relative to rootDir (or the tsconfig directory).

The rewritten calls pass one more argument than the runtime declarations
allow, so the output does not type-check with tsc. Feed it to a compiler or
bundler that strips types without checking them (esbuild, swc, Babel), and
keep type-checking the original sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.SourceOut
			}
			if outDir == "" && !stdout {
				return errors.New("no output directory: pass --out or set sourceOut in the config")
			}

			timing := &TimingReport{}
			p, err := a.loadProject(project, timing)
			if err != nil {
				return err
			}
			if a.reportTSDiagnostics(compiler.GatherDiagnostics(p.Program, true)) {
				return errReported
			}

			diags := diagnostic.NewCollector(a.quiet)
			results := a.scan(p, cfg, diags)
			if diags.HasErrors() {
				a.reportDiagnostics(diags)
				return errReported
			}

			base := p.RootDir
			if base == "" {
				base = p.Dir
			}
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			slices.Sort(names)

			relPath := func(name string) string {
				rel, err := filepath.Rel(base, name)
				if err != nil || strings.HasPrefix(rel, "..") {
					return filepath.Base(name)
				}
				return rel
			}

			if stdout {
				for _, name := range names {
					if fr := results[name]; fr.HasInjections() {
						fmt.Fprintf(a.stdout, "// %s\n%s", filepath.ToSlash(relPath(name)), fr.RewriteSource())
					}
				}
			} else {
				var g errgroup.Group
				g.SetLimit(runtime.NumCPU())
				for _, name := range names {
					g.Go(func() error {
						return writeFile(filepath.Join(a.abs(outDir), relPath(name)), results[name].RewriteSource())
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
			}

			if !a.quiet {
				calls, files := countInjections(results)
				pr := message.NewPrinter(language.English)
				pr.Fprintf(a.stderr, "rewrote %d call(s) in %d file(s)\n", calls, files)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "tsconfig.json", "path to tsconfig.json")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default is sourceOut from the config)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print rewritten files to stdout instead of writing them")
	return cmd
}
