// Package vyper compiles contracts to Vyper ^0.3 source.
package vyper

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/s6ruby/srubyc/internal/helpers"
	"github.com/s6ruby/srubyc/platform"
	"github.com/s6ruby/srubyc/targets/internal/frontend"
	"github.com/s6ruby/srubyc/targets/vyper/internal/gen"
)

const defaultVersion = "^0.3.10"

// Compiler implements contract.Compiler for the Vyper target.
type Compiler struct {
	name       string
	version    string
	logHandler slog.Handler
	logger     *slog.Logger
}

// NewCompiler creates a new Vyper compiler with the provided options.
func NewCompiler(opts ...FunctionalOption) (*Compiler, error) {
	c := &Compiler{
		name:    defaultContractName,
		version: defaultVersion,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "vyper", "Compiler")
	}

	return c, nil
}

func (c *Compiler) String() string {
	return "vyper.Compiler"
}

// Compile runs the frontend over the source and emits Vyper code.
func (c *Compiler) Compile(reader io.ReadCloser) (platform.Artifact, error) {
	if reader == nil {
		return nil, ErrContentNil
	}

	source, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if err := reader.Close(); err != nil {
		return nil, fmt.Errorf("failed to close reader: %w", err)
	}

	return c.compile(source)
}

func (c *Compiler) compile(source []byte) (*artifact, error) {
	logger := c.logger.WithGroup("compile")

	if len(strings.TrimSpace(string(source))) == 0 {
		return nil, ErrContentNil
	}

	contract, table, err := frontend.Compile(c.logHandler, source)
	if err != nil {
		logger.Warn("Frontend rejected contract", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	code, err := gen.Emit(contract, table, c.version)
	if err != nil {
		logger.Warn("Emission failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEmitFailed, err)
	}

	logger.Debug("Compilation successful",
		"contract", c.name, "methods", len(table.MethodOrder))
	return newArtifact(string(source), code, c.name), nil
}
