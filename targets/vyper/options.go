package vyper

import (
	"fmt"
	"log/slog"
)

const defaultContractName = "Contract"

// FunctionalOption is a function that configures a Compiler instance.
type FunctionalOption func(*Compiler) error

// WithContractName sets the contract name recorded on the artifact. Vyper
// files carry no contract name, so this only affects output file naming.
func WithContractName(name string) FunctionalOption {
	return func(c *Compiler) error {
		if name == "" {
			return fmt.Errorf("contract name cannot be empty")
		}
		c.name = name
		return nil
	}
}

// WithVersion overrides the vyper version pragma of the emitted file.
func WithVersion(version string) FunctionalOption {
	return func(c *Compiler) error {
		if version == "" {
			return fmt.Errorf("version cannot be empty")
		}
		c.version = version
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the
// compiler. This is the preferred option for logging configuration as it
// provides more flexibility through the slog.Handler interface.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Compiler) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		c.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the compiler.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *Compiler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		c.logHandler = nil
		return nil
	}
}
