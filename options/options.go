// Package options holds the shared configuration consumed by the
// top-level transpiler constructors.
package options

import (
	"fmt"
	"log/slog"

	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/targets/types"
)

// Config holds all configuration for creating a transpiler
type Config struct {
	// Logger for the transpiler
	handler slog.Handler
	// Target language to emit (solidity, vyper, yul)
	targetType types.Type
	// Loader for the contract source
	loader loader.Loader
	// Contract name recorded on the artifact
	contractName string
	// Target-specific options
	compilerOptions any
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogger sets the logger for the transpiler
func WithLogger(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler != nil {
			c.handler = handler
		}
		return nil
	}
}

// WithLoader sets the contract source loader
func WithLoader(l loader.Loader) Option {
	return func(c *Config) error {
		if l != nil {
			c.loader = l
		}
		return nil
	}
}

// WithContractName sets the contract name recorded on the artifact
func WithContractName(name string) Option {
	return func(c *Config) error {
		if name != "" {
			c.contractName = name
		}
		return nil
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.loader == nil {
		return fmt.Errorf("no loader specified")
	}
	if c.targetType == "" {
		return fmt.Errorf("no target type specified")
	}
	return nil
}

// GetHandler returns the configured logger
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// SetHandler sets the logger
func (c *Config) SetHandler(handler slog.Handler) {
	c.handler = handler
}

// GetTargetType returns the configured target type
func (c *Config) GetTargetType() types.Type {
	return c.targetType
}

// SetTargetType sets the target type
func (c *Config) SetTargetType(targetType types.Type) {
	c.targetType = targetType
}

// GetLoader returns the configured loader
func (c *Config) GetLoader() loader.Loader {
	return c.loader
}

// GetContractName returns the configured contract name
func (c *Config) GetContractName() string {
	return c.contractName
}

// SetContractName sets the contract name
func (c *Config) SetContractName(name string) {
	c.contractName = name
}

// GetCompilerOptions returns the target-specific compiler options
func (c *Config) GetCompilerOptions() any {
	return c.compilerOptions
}

// SetCompilerOptions sets the target-specific compiler options
func (c *Config) SetCompilerOptions(options any) {
	c.compilerOptions = options
}
