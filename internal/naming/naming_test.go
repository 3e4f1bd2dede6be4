package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCamel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"total_supply": "totalSupply",
		"greeting":     "greeting",
		"valid_vote?":  "validVote",
		"a_b_c":        "aBC",
		"__weird__":    "weird",
	}
	for in, want := range tests {
		assert.Equal(t, want, Camel(in), "Camel(%q)", in)
	}
}

func TestPascal(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"my_token":   "MyToken",
		"greeter":    "Greeter",
		"winner?":    "Winner",
		"erc20_like": "Erc20Like",
	}
	for in, want := range tests {
		assert.Equal(t, want, Pascal(in), "Pascal(%q)", in)
	}
}

func TestSnake(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "valid_vote", Snake("valid_vote?"))
	assert.Equal(t, "total_supply", Snake("total_supply"))
}
