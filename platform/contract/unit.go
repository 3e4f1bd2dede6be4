// Package contract holds the compiled form of one contract: the Unit ties
// a source loader, a target compiler and the resulting artifact together.
package contract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/s6ruby/srubyc/internal/helpers"
	"github.com/s6ruby/srubyc/platform"
	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/targets/types"
)

const checksumLength = 12

// Unit is a specific version of a contract compiled for one target.
type Unit struct {
	// ID uniquely identifies this unit, derived from a hash of the source
	// unless a version was given explicitly.
	ID string

	// CreatedAt records when this unit was compiled.
	CreatedAt time.Time

	// SourceLoader loads the contract source (file, string, reader).
	SourceLoader loader.Loader

	// Compiler is the target compiler that produced this unit.
	Compiler Compiler

	// Artifact holds the emitted target code.
	Artifact platform.Artifact

	logHandler slog.Handler
	logger     *slog.Logger
}

// NewUnit loads the contract source and compiles it. An empty versionID
// is filled in from the source checksum.
func NewUnit(
	handler slog.Handler,
	versionID string,
	sourceLoader loader.Loader,
	compiler Compiler,
) (*Unit, error) {
	handler, logger := helpers.SetupLogger(handler, "contract", "Unit")

	if compiler == nil {
		return nil, ErrCompilerNil
	}
	if sourceLoader == nil {
		return nil, ErrLoaderNil
	}

	reader, err := sourceLoader.GetReader()
	if err != nil {
		return nil, fmt.Errorf("failed to get reader from loader: %w", err)
	}

	artifact, err := compiler.Compile(reader)
	if err != nil {
		return nil, fmt.Errorf("compiler failed: %w", err)
	}

	if versionID == "" {
		versionID = helpers.SHA256(artifact.GetSource())
		if len(versionID) > checksumLength {
			versionID = versionID[:checksumLength]
		}
	}

	return &Unit{
		ID:           versionID,
		CreatedAt:    time.Now(),
		SourceLoader: sourceLoader,
		Compiler:     compiler,
		Artifact:     artifact,
		logHandler:   handler,
		logger:       logger.With("ID", versionID),
	}, nil
}

func (u *Unit) String() string {
	return fmt.Sprintf("contract.Unit{ID: %s, Target: %s, Loader: %s}",
		u.ID, u.GetTarget(), u.SourceLoader)
}

// GetID returns the unique identifier of this contract version.
func (u *Unit) GetID() string {
	return u.ID
}

// GetCreatedAt returns when this unit was compiled.
func (u *Unit) GetCreatedAt() time.Time {
	return u.CreatedAt
}

// GetArtifact returns the emitted target code and its metadata.
func (u *Unit) GetArtifact() platform.Artifact {
	return u.Artifact
}

// GetTarget returns the target this unit was compiled for.
func (u *Unit) GetTarget() types.Type {
	if u.Artifact == nil {
		return ""
	}
	return u.Artifact.GetTarget()
}

// GetCompiler returns the compiler that produced this unit.
func (u *Unit) GetCompiler() Compiler {
	return u.Compiler
}

// GetLoader returns the loader the source came from.
func (u *Unit) GetLoader() loader.Loader {
	return u.SourceLoader
}
