package srubyc

import (
	"context"
	"fmt"

	"github.com/s6ruby/srubyc/platform"
	"github.com/s6ruby/srubyc/platform/contract"
)

// TranspilerWrapper wraps a compiled contract.Unit behind the
// platform.Transpiler interface. The unit holds the artifact of the
// initial compilation; each Transpile call re-reads the source through
// the unit's loader, so edits to on-disk sources are picked up.
type TranspilerWrapper struct {
	unit *contract.Unit
}

// NewTranspilerWrapper creates a new transpiler wrapper
func NewTranspilerWrapper(unit *contract.Unit) platform.Transpiler {
	return &TranspilerWrapper{
		unit: unit,
	}
}

// Transpile implements the platform.Transpiler interface. It reloads the
// source and runs the unit's compiler over it.
func (t *TranspilerWrapper) Transpile(ctx context.Context) (platform.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := t.unit.GetLoader().GetReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get reader from loader: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = reader.Close()
		return nil, err
	}

	artifact, err := t.unit.GetCompiler().Compile(reader)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// GetUnit returns the stored contract unit
// This is useful for examining the initial compilation and its ID
func (t *TranspilerWrapper) GetUnit() *contract.Unit {
	return t.unit
}
