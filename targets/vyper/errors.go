package vyper

import "errors"

var (
	ErrContentNil       = errors.New("content is nil")
	ErrValidationFailed = errors.New("contract validation error")
	ErrEmitFailed       = errors.New("unable to emit vyper code")
)
