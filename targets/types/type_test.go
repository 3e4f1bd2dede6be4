package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{input: "solidity", want: Solidity},
		{input: "Solidity", want: Solidity},
		{input: "sol", want: Solidity},
		{input: ".sol", want: Solidity},
		{input: "vyper", want: Vyper},
		{input: "vy", want: Vyper},
		{input: "yul", want: Yul},
		{input: " yul ", want: Yul},
		{input: "liquidity", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".sol", Solidity.Ext())
	assert.Equal(t, ".vy", Vyper.Ext())
	assert.Equal(t, ".yul", Yul.Ext())
	assert.Equal(t, "", Type("liquidity").Ext())
}

func TestAll(t *testing.T) {
	t.Parallel()

	all := All()
	require.Len(t, all, 3)
	for _, target := range all {
		parsed, err := Parse(target.String())
		require.NoError(t, err)
		assert.Equal(t, target, parsed)
	}
}
