package contract

import (
	"io"

	"github.com/s6ruby/srubyc/platform"
)

// Compiler turns contract source into a target artifact. Implementations
// run the full frontend (lex, parse, semantic checks) and then emit code
// for their target; a source that violates the dialect's safety rules is
// rejected with the collected diagnostics.
type Compiler interface {
	Compile(reader io.ReadCloser) (platform.Artifact, error)
}
