package analysis

import (
	"fmt"
	"strings"

	"github.com/s6ruby/srubyc/lang/token"
)

// Diagnostic codes, stable identifiers for tooling.
const (
	CodeType        = "type"
	CodeUndefined   = "undefined"
	CodeArity       = "arity"
	CodeUnassigned  = "unassigned"
	CodeState       = "state"
	CodeRecursion   = "recursion"
	CodeReentrancy  = "reentrancy"
	CodeNegative    = "negative"
	CodeOverflowLit = "overflow-literal"
	CodeRedeclared  = "redeclared"
	CodeExample     = "example"
	CodeReturn      = "return"
)

// Diagnostic is a single semantic finding with its source position.
type Diagnostic struct {
	Pos  token.Pos
	Code string
	Msg  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s [%s]", d.Pos, d.Msg, d.Code)
}

// Diagnostics is an ordered list of findings. It satisfies error so the
// whole batch can be returned as one failure.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// HasCode reports whether any diagnostic carries the given code.
func (ds Diagnostics) HasCode(code string) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}
