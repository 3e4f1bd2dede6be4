package srubyc_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc"
	"github.com/s6ruby/srubyc/options"
	"github.com/s6ruby/srubyc/platform"
	"github.com/s6ruby/srubyc/platform/contract/loader"
	"github.com/s6ruby/srubyc/targets/types"
)

const counterSource = `
def setup()
  @counter = 0
end

def increment()
  @counter += 1
  @counter
end

def counter()
  @counter
end
`

func getLogger() slog.Handler {
	return slog.NewTextHandler(os.Stdout, nil)
}

func transpile(t *testing.T, tr platform.Transpiler) platform.Artifact {
	t.Helper()
	artifact, err := tr.Transpile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, artifact)
	return artifact
}

func TestNewTranspilers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		create     func(...options.Option) (platform.Transpiler, error)
		targetType types.Type
		want       string
	}{
		{
			name:       "solidity",
			create:     srubyc.NewSolidityTranspiler,
			targetType: types.Solidity,
			want:       "function increment() public returns (uint256) {",
		},
		{
			name:       "vyper",
			create:     srubyc.NewVyperTranspiler,
			targetType: types.Vyper,
			want:       "def increment() -> uint256:",
		},
		{
			name:       "yul",
			create:     srubyc.NewYulTranspiler,
			targetType: types.Yul,
			want:       "function fn_increment() -> ret {",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := loader.NewFromString(counterSource)
			require.NoError(t, err)

			tr, err := tt.create(
				options.WithLoader(l),
				options.WithLogger(getLogger()),
				options.WithContractName("Counter"),
			)
			require.NoError(t, err)

			artifact := transpile(t, tr)
			assert.Equal(t, tt.targetType, artifact.GetTarget())
			assert.Equal(t, "Counter", artifact.GetContractName())
			assert.Contains(t, artifact.GetCode(), tt.want)
		})
	}
}

func TestFromStringHelpers(t *testing.T) {
	t.Parallel()

	t.Run("solidity", func(t *testing.T) {
		t.Parallel()
		tr, err := srubyc.FromSolidityString(counterSource)
		require.NoError(t, err)
		artifact := transpile(t, tr)
		assert.Contains(t, artifact.GetCode(), "pragma solidity")
	})

	t.Run("vyper", func(t *testing.T) {
		t.Parallel()
		tr, err := srubyc.FromVyperString(counterSource)
		require.NoError(t, err)
		artifact := transpile(t, tr)
		assert.Contains(t, artifact.GetCode(), "# @version")
	})

	t.Run("yul", func(t *testing.T) {
		t.Parallel()
		tr, err := srubyc.FromYulString(counterSource)
		require.NoError(t, err)
		artifact := transpile(t, tr)
		assert.Contains(t, artifact.GetCode(), `object "Contract" {`)
	})

	t.Run("invalid source", func(t *testing.T) {
		t.Parallel()
		_, err := srubyc.FromSolidityString("def broken(\n")
		require.Error(t, err)
	})

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()
		_, err := srubyc.FromSolidityString("")
		require.Error(t, err)
	})
}

func TestFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "counter.rb")
	require.NoError(t, os.WriteFile(path, []byte(counterSource), 0o644))

	tr, err := srubyc.FromFile(types.Solidity, path, options.WithContractName("Counter"))
	require.NoError(t, err)

	artifact := transpile(t, tr)
	assert.Contains(t, artifact.GetCode(), "contract Counter {")

	// a disk-backed transpiler picks up source edits on the next run
	edited := strings.Replace(counterSource, "@counter += 1", "@counter += 2", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	artifact = transpile(t, tr)
	assert.Contains(t, artifact.GetCode(), "_counter += 2")
}

func TestFromFileDerivesContractName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "my_token.rb")
	require.NoError(t, os.WriteFile(path, []byte(counterSource), 0o644))

	tr, err := srubyc.FromFile(types.Solidity, path)
	require.NoError(t, err)

	artifact := transpile(t, tr)
	assert.Equal(t, "my_token", artifact.GetContractName(),
		"the name defaults to the source file stem")
	assert.Contains(t, artifact.GetCode(), "contract MyToken {")
}

func TestNewTranspilerValidation(t *testing.T) {
	t.Parallel()

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()
		l, err := loader.NewFromString(counterSource)
		require.NoError(t, err)
		_, err = srubyc.NewTranspiler(types.Type("brainfuck"), options.WithLoader(l))
		require.ErrorIs(t, err, types.ErrInvalidType)
	})

	t.Run("missing loader", func(t *testing.T) {
		t.Parallel()
		_, err := srubyc.NewSolidityTranspiler()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no loader specified")
	})
}

func TestTranspilerWrapperUnit(t *testing.T) {
	t.Parallel()

	l, err := loader.NewFromString(counterSource)
	require.NoError(t, err)

	tr, err := srubyc.NewVyperTranspiler(options.WithLoader(l))
	require.NoError(t, err)

	wrapper, ok := tr.(*srubyc.TranspilerWrapper)
	require.True(t, ok)

	unit := wrapper.GetUnit()
	require.NotNil(t, unit)
	assert.NotEmpty(t, unit.GetID())
	assert.Equal(t, types.Vyper, unit.GetTarget())
	assert.Equal(t, l, unit.GetLoader())
}

func TestTranspileContextCancelled(t *testing.T) {
	t.Parallel()

	tr, err := srubyc.FromSolidityString(counterSource)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = tr.Transpile(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
