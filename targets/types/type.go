// Package types defines the identifiers of the supported transpilation
// targets. It exists as its own package so both the platform interfaces
// and the target implementations can share it without import cycles.
package types

import (
	"fmt"
	"strings"
)

// Type identifies one transpilation target language.
type Type string

const (
	// Solidity emits Solidity ^0.8 contract source.
	Solidity Type = "solidity"

	// Vyper emits Vyper ^0.3 contract source.
	Vyper Type = "vyper"

	// Yul emits a Yul object with a hand-rolled selector dispatcher.
	Yul Type = "yul"
)

// ErrInvalidType is wrapped by Parse for unknown target names.
var ErrInvalidType = fmt.Errorf("invalid target type")

func (t Type) String() string {
	return string(t)
}

// Ext returns the conventional file extension of the target, dot included.
func (t Type) Ext() string {
	switch t {
	case Solidity:
		return ".sol"
	case Vyper:
		return ".vy"
	case Yul:
		return ".yul"
	default:
		return ""
	}
}

// All returns every supported target, in stable order.
func All() []Type {
	return []Type{Solidity, Vyper, Yul}
}

// Parse converts a target name into a Type. Matching is case-insensitive
// and accepts the common file extensions as aliases.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "solidity", "sol", ".sol":
		return Solidity, nil
	case "vyper", "vy", ".vy":
		return Vyper, nil
	case "yul", ".yul":
		return Yul, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, name)
	}
}
