package yul

import (
	"errors"

	"github.com/s6ruby/srubyc/targets/yul/internal/gen"
)

var (
	ErrContentNil       = errors.New("content is nil")
	ErrValidationFailed = errors.New("contract validation error")
	ErrEmitFailed       = errors.New("unable to emit yul code")

	// ErrUnsupportedByTarget wraps contracts that use features outside the
	// Yul backend's word-sized subset (strings, arrays, structs,
	// constructor arguments).
	ErrUnsupportedByTarget = gen.ErrUnsupported
)
