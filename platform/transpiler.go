// Package platform defines the target-neutral interfaces of the
// transpilation pipeline. Target implementations live under targets/ and
// produce Artifacts; the platform/contract package turns loaded source
// into compiled units.
package platform

import (
	"context"

	"github.com/s6ruby/srubyc/targets/types"
)

// Artifact is the result of transpiling one contract for one target:
// the original source, the emitted target code, and enough metadata to
// write the output file.
type Artifact interface {
	// GetSource returns the original contract source that was compiled.
	GetSource() string

	// GetCode returns the emitted target-language code.
	GetCode() string

	// GetTarget returns the target this artifact was emitted for.
	GetTarget() types.Type

	// GetContractName returns the contract name used in the emitted code.
	GetContractName() string
}

// Transpiler compiles its configured contract for its configured target.
//
// The compile work happens on each Transpile call, so a Transpiler backed
// by a disk loader picks up source changes between calls.
type Transpiler interface {
	Transpile(ctx context.Context) (Artifact, error)
}
