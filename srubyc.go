// Package srubyc transpiles contracts written in a restricted Ruby
// dialect to Solidity, Vyper or Yul. The top-level constructors tie a
// source loader, a target compiler and the shared configuration together
// and return a ready-to-use Transpiler.
package srubyc

import (
	"fmt"

	"github.com/s6ruby/srubyc/options"
	"github.com/s6ruby/srubyc/platform"
	"github.com/s6ruby/srubyc/platform/contract"
	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/targets"
	"github.com/s6ruby/srubyc/targets/types"
)

// NewSolidityTranspiler creates a new transpiler emitting Solidity
func NewSolidityTranspiler(opts ...options.Option) (platform.Transpiler, error) {
	return newTranspiler(types.Solidity, opts...)
}

// NewVyperTranspiler creates a new transpiler emitting Vyper
func NewVyperTranspiler(opts ...options.Option) (platform.Transpiler, error) {
	return newTranspiler(types.Vyper, opts...)
}

// NewYulTranspiler creates a new transpiler emitting Yul
func NewYulTranspiler(opts ...options.Option) (platform.Transpiler, error) {
	return newTranspiler(types.Yul, opts...)
}

// NewTranspiler creates a new transpiler for any supported target
func NewTranspiler(targetType types.Type, opts ...options.Option) (platform.Transpiler, error) {
	if _, err := types.Parse(string(targetType)); err != nil {
		return nil, err
	}
	return newTranspiler(targetType, opts...)
}

func newTranspiler(targetType types.Type, opts ...options.Option) (platform.Transpiler, error) {
	// Initialize with target defaults
	cfg := options.DefaultConfig(targetType)

	// Apply all options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}

	// Apply defaults option as final step to fill in any missing values
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return createTranspiler(cfg)
}

// createTranspiler is a helper function to create a transpiler from a config
func createTranspiler(cfg *options.Config) (platform.Transpiler, error) {
	compiler, err := targets.NewCompiler(
		cfg.GetHandler(),
		cfg.GetTargetType(),
		cfg.GetContractName(),
		cfg.GetCompilerOptions(),
	)
	if err != nil {
		return nil, err
	}

	// Derive the unit ID from the source URL
	unitID := ""
	sourceURL := cfg.GetLoader().GetSourceURL()
	if sourceURL != nil {
		unitID = sourceURL.String()
	}

	// Create the contract unit (this compiles the source internally)
	unit, err := contract.NewUnit(
		cfg.GetHandler(),
		unitID,
		cfg.GetLoader(),
		compiler,
	)
	if err != nil {
		return nil, err
	}

	// Wrap the unit to expose the Transpiler interface
	return NewTranspilerWrapper(unit), nil
}

// FromSolidityString creates a Solidity transpiler from a contract source string
func FromSolidityString(content string, opts ...options.Option) (platform.Transpiler, error) {
	return fromString(types.Solidity, content, opts...)
}

// FromVyperString creates a Vyper transpiler from a contract source string
func FromVyperString(content string, opts ...options.Option) (platform.Transpiler, error) {
	return fromString(types.Vyper, content, opts...)
}

// FromYulString creates a Yul transpiler from a contract source string
func FromYulString(content string, opts ...options.Option) (platform.Transpiler, error) {
	return fromString(types.Yul, content, opts...)
}

func fromString(targetType types.Type, content string, opts ...options.Option) (platform.Transpiler, error) {
	l, err := loader.NewFromString(content)
	if err != nil {
		return nil, err
	}

	allOpts := append([]options.Option{options.WithLoader(l)}, opts...)

	return newTranspiler(targetType, allOpts...)
}

// FromFile creates a transpiler from a contract source file on disk
func FromFile(targetType types.Type, filePath string, opts ...options.Option) (platform.Transpiler, error) {
	l, err := loader.NewFromDisk(filePath)
	if err != nil {
		return nil, err
	}

	allOpts := append([]options.Option{options.WithLoader(l)}, opts...)

	return NewTranspiler(targetType, allOpts...)
}
