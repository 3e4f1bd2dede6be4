package solidity

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const defaultContractName = "Contract"

// FunctionalOption is a function that configures a Compiler instance.
type FunctionalOption func(*Compiler) error

// WithContractName sets the name of the emitted contract. It is converted
// to PascalCase in the output.
func WithContractName(name string) FunctionalOption {
	return func(c *Compiler) error {
		if name == "" {
			return fmt.Errorf("contract name cannot be empty")
		}
		c.name = name
		return nil
	}
}

// WithPragma overrides the solidity version pragma of the emitted file.
// Versions below 0.8 are rejected: the emitted code relies on built-in
// checked arithmetic.
func WithPragma(pragma string) FunctionalOption {
	return func(c *Compiler) error {
		if pragma == "" {
			return fmt.Errorf("pragma cannot be empty")
		}
		major, minor, ok := pragmaVersion(pragma)
		if !ok {
			return fmt.Errorf("pragma %q has no version number", pragma)
		}
		if major == 0 && minor < 8 {
			return fmt.Errorf("pragma %q is below 0.8, which checked arithmetic requires", pragma)
		}
		c.pragma = pragma
		return nil
	}
}

// pragmaVersion extracts the leading major.minor pair from a version
// constraint such as "^0.8.24" or ">=0.8.0 <0.9.0".
func pragmaVersion(pragma string) (major, minor int, ok bool) {
	i := strings.IndexFunc(pragma, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return 0, 0, false
	}
	rest := pragma[i:]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(rest[:dot])
	if err != nil {
		return 0, 0, false
	}
	rest = rest[dot+1:]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(rest)
	}
	minor, err = strconv.Atoi(rest[:end])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
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
