// Package targets provides a factory for creating target-specific
// compilers from a target type value.
package targets

import (
	"fmt"
	"log/slog"

	"github.com/s6ruby/srubyc/platform/contract"
	"github.com/s6ruby/srubyc/targets/solidity"
	"github.com/s6ruby/srubyc/targets/types"
	"github.com/s6ruby/srubyc/targets/vyper"
	"github.com/s6ruby/srubyc/targets/yul"
)

// NewCompiler creates a compiler for the given target. compilerOptions
// carries target-specific functional options ([]solidity.FunctionalOption
// for the Solidity target, and so on); pass nil for defaults.
func NewCompiler(
	handler slog.Handler,
	targetType types.Type,
	contractName string,
	compilerOptions any,
) (contract.Compiler, error) {
	switch targetType {
	case types.Solidity:
		opts := []solidity.FunctionalOption{}
		if handler != nil {
			opts = append(opts, solidity.WithLogHandler(handler))
		}
		if contractName != "" {
			opts = append(opts, solidity.WithContractName(contractName))
		}
		extra, err := extraOptions[solidity.FunctionalOption](compilerOptions)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", targetType, err)
		}
		return solidity.NewCompiler(append(opts, extra...)...)
	case types.Vyper:
		opts := []vyper.FunctionalOption{}
		if handler != nil {
			opts = append(opts, vyper.WithLogHandler(handler))
		}
		if contractName != "" {
			opts = append(opts, vyper.WithContractName(contractName))
		}
		extra, err := extraOptions[vyper.FunctionalOption](compilerOptions)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", targetType, err)
		}
		return vyper.NewCompiler(append(opts, extra...)...)
	case types.Yul:
		opts := []yul.FunctionalOption{}
		if handler != nil {
			opts = append(opts, yul.WithLogHandler(handler))
		}
		if contractName != "" {
			opts = append(opts, yul.WithContractName(contractName))
		}
		extra, err := extraOptions[yul.FunctionalOption](compilerOptions)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", targetType, err)
		}
		return yul.NewCompiler(append(opts, extra...)...)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidType, targetType)
	}
}

// extraOptions unpacks the untyped compilerOptions value into the
// target's option slice.
func extraOptions[T any](compilerOptions any) ([]T, error) {
	if compilerOptions == nil {
		return nil, nil
	}
	opts, ok := compilerOptions.([]T)
	if !ok {
		return nil, fmt.Errorf("unexpected compiler options type %T", compilerOptions)
	}
	return opts, nil
}
