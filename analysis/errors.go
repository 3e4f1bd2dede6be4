package analysis

import "errors"

var (
	ErrContractNil = errors.New("contract is nil")
	ErrNoMethods   = errors.New("contract defines no methods")
	ErrCheckFailed = errors.New("contract failed semantic checks")
)
