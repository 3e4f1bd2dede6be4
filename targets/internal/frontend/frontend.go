// Package frontend runs the target-independent half of the pipeline:
// parsing and semantic checking. Every target compiler funnels source
// through here before emitting code.
package frontend

import (
	"fmt"
	"log/slog"

	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/parser"
)

// Compile parses and checks contract source. The returned table carries
// the inferred signatures and expression types the emitters rely on.
func Compile(handler slog.Handler, source []byte) (*ast.Contract, *analysis.Table, error) {
	contract, err := parser.Parse(source)
	if err != nil {
		return nil, nil, fmt.Errorf("parse failed: %w", err)
	}

	var opts []analysis.FunctionalOption
	if handler != nil {
		opts = append(opts, analysis.WithLogHandler(handler))
	}
	checker, err := analysis.NewChecker(opts...)
	if err != nil {
		return nil, nil, err
	}

	table, diags := checker.Check(contract)
	if len(diags) > 0 {
		return nil, nil, fmt.Errorf("%w:\n%w", analysis.ErrCheckFailed, diags)
	}

	if len(table.MethodOrder) == 0 {
		return nil, nil, analysis.ErrNoMethods
	}

	return contract, table, nil
}
