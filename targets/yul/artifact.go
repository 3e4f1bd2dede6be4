package yul

import (
	"github.com/s6ruby/srubyc/targets/types"
)

type artifact struct {
	source string
	code   string
	name   string
}

func newArtifact(source, code, name string) *artifact {
	return &artifact{source: source, code: code, name: name}
}

func (a *artifact) GetSource() string {
	return a.source
}

func (a *artifact) GetCode() string {
	return a.code
}

func (a *artifact) GetTarget() types.Type {
	return types.Yul
}

func (a *artifact) GetContractName() string {
	return a.name
}
