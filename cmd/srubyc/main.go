// srubyc is the command line front end of the transpiler: it checks
// contracts, emits target code and prints ABI documents.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/s6ruby/srubyc"
	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/internal/naming"
	"github.com/s6ruby/srubyc/lang/parser"
	"github.com/s6ruby/srubyc/options"
	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/project"
	"github.com/s6ruby/srubyc/targets/abi"
	"github.com/s6ruby/srubyc/targets/types"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "srubyc: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "srubyc",
		Usage: "transpile sruby contracts to Solidity, Vyper or Yul",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "warn",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "suppress all logging",
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			buildCommand(),
			abiCommand(),
			targetsCommand(),
		},
	}
}

func logHandler(c *cli.Context) (slog.Handler, error) {
	if c.Bool("quiet") {
		return slog.NewTextHandler(io.Discard, nil), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
	}
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}), nil
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "parse and check contracts, printing diagnostics",
		ArgsUsage: "[files...]",
		Action: func(c *cli.Context) error {
			handler, err := logHandler(c)
			if err != nil {
				return err
			}
			files, err := sourceArgs(c)
			if err != nil {
				return err
			}

			failed := false
			for _, path := range files {
				if err := checkFile(handler, path); err != nil {
					fmt.Fprintf(c.App.ErrWriter, "%s:\n%v\n", path, err)
					failed = true
					continue
				}
				fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
			}
			if failed {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func checkFile(handler slog.Handler, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contract, err := parser.Parse(source)
	if err != nil {
		return err
	}
	checker, err := analysis.NewChecker(analysis.WithLogHandler(handler))
	if err != nil {
		return err
	}
	if _, diags := checker.Check(contract); len(diags) > 0 {
		return diags
	}
	return nil
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "transpile contracts; with no file arguments, builds the sruby.yaml project",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "target language to emit, repeatable",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output directory",
			},
		},
		Action: func(c *cli.Context) error {
			handler, err := logHandler(c)
			if err != nil {
				return err
			}

			if c.Args().Len() == 0 {
				return buildProject(c, handler)
			}

			targetList, err := parseTargets(c.StringSlice("target"))
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				out = "build"
			}

			for _, path := range c.Args().Slice() {
				name := contractNameFor(path)
				if err := buildFile(c, handler, path, name, targetList, out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func buildProject(c *cli.Context, handler slog.Handler) error {
	manifest, err := project.Load(project.DefaultFile)
	if err != nil {
		return err
	}
	sources, err := manifest.Sources(".")
	if err != nil {
		return err
	}

	targetList := manifest.Targets
	if flagged := c.StringSlice("target"); len(flagged) > 0 {
		if targetList, err = parseTargets(flagged); err != nil {
			return err
		}
	}
	out := c.String("out")
	if out == "" {
		out = manifest.Out
	}

	for _, path := range sources {
		name := manifest.ContractName(path)
		if err := buildFile(c, handler, path, name, targetList, out); err != nil {
			return err
		}
	}
	return nil
}

func buildFile(
	c *cli.Context,
	handler slog.Handler,
	path string,
	contractName string,
	targetList []types.Type,
	out string,
) error {
	l, err := loader.NewFromDisk(path)
	if err != nil {
		return err
	}

	for _, target := range targetList {
		tr, err := srubyc.NewTranspiler(target,
			options.WithLoader(l),
			options.WithLogger(handler),
			options.WithContractName(contractName),
		)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		artifact, err := tr.Transpile(c.Context)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		outPath := filepath.Join(out, contractName+target.Ext())
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(outPath, []byte(artifact.GetCode()), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s -> %s\n", path, outPath)
	}
	return nil
}

func abiCommand() *cli.Command {
	return &cli.Command{
		Name:      "abi",
		Usage:     "print the contract ABI as JSON",
		ArgsUsage: "[file]",
		Action: func(c *cli.Context) error {
			handler, err := logHandler(c)
			if err != nil {
				return err
			}
			if c.Args().Len() != 1 {
				return fmt.Errorf("abi expects exactly one file argument")
			}
			path := c.Args().First()

			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			contract, err := parser.Parse(source)
			if err != nil {
				return err
			}
			checker, err := analysis.NewChecker(analysis.WithLogHandler(handler))
			if err != nil {
				return err
			}
			table, diags := checker.Check(contract)
			if len(diags) > 0 {
				return diags
			}

			entries, err := abi.FromTable(table, nil)
			if err != nil {
				return err
			}
			doc, err := abi.JSON(entries)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, doc)
			return nil
		},
	}
}

func targetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "targets",
		Usage: "list the supported targets",
		Action: func(c *cli.Context) error {
			for _, target := range types.All() {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", target, target.Ext())
			}
			return nil
		},
	}
}

func sourceArgs(c *cli.Context) ([]string, error) {
	if c.Args().Len() > 0 {
		return c.Args().Slice(), nil
	}
	manifest, err := project.Load(project.DefaultFile)
	if err != nil {
		return nil, err
	}
	return manifest.Sources(".")
}

func parseTargets(names []string) ([]types.Type, error) {
	if len(names) == 0 {
		return types.All(), nil
	}
	out := make([]types.Type, 0, len(names))
	for _, name := range names {
		target, err := types.Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, nil
}

func contractNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return naming.Pascal(base)
}
