package solidity

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc/targets/types"
)

func compileSource(t *testing.T, src string, opts ...FunctionalOption) string {
	t.Helper()
	c, err := NewCompiler(opts...)
	require.NoError(t, err)

	artifact, err := c.Compile(io.NopCloser(strings.NewReader(src)))
	require.NoError(t, err)
	require.Equal(t, types.Solidity, artifact.GetTarget())
	require.Equal(t, src, artifact.GetSource())
	return artifact.GetCode()
}

func TestCompileToken(t *testing.T) {
	t.Parallel()

	src := `
event :Transfer, from: Address, to: Address, value: Integer

def setup( initial_supply = 0 )
  @total_supply = initial_supply
  @balances = Mapping.of( Address => Integer )
  @balances[msg.sender] = initial_supply
end

def total_supply()
  @total_supply
end

def transfer( to = Address(0), value = 0 )
  require @balances[msg.sender] >= value, "insufficient balance"
  @balances[msg.sender] -= value
  @balances[to] += value
  log Transfer( msg.sender, to, value )
  true
end
`
	code := compileSource(t, src, WithContractName("my_token"))

	assert.Contains(t, code, "pragma solidity ^0.8.24;")
	assert.Contains(t, code, "contract MyToken {")
	assert.Contains(t, code, "event Transfer(address from, address to, uint256 value);")
	assert.Contains(t, code, "uint256 internal _totalSupply;")
	assert.Contains(t, code, "mapping(address => uint256) internal _balances;")
	assert.Contains(t, code, "constructor(uint256 initialSupply) {")
	assert.Contains(t, code, "_totalSupply = initialSupply;")
	assert.NotContains(t, code, "Mapping.of", "type examples must not reach the output")

	assert.Contains(t, code, "function totalSupply() public view returns (uint256) {")
	assert.Contains(t, code, "return _totalSupply;")

	assert.Contains(t, code, "function transfer(address to, uint256 value) public returns (bool) {")
	assert.Contains(t, code, `require(_balances[msg.sender] >= value, "insufficient balance");`)
	assert.Contains(t, code, "_balances[to] += value;")
	assert.Contains(t, code, "emit Transfer(msg.sender, to, value);")
	assert.Contains(t, code, "return true;")
}

func TestCompileCrowdfund(t *testing.T) {
	t.Parallel()

	src := `
enum :State, :fundraising, :successful

def setup()
  @state = State.fundraising
  @funds = Mapping.of( Address => Integer )
  @raised = 0
end

def pledge()
  require @state == State.fundraising, "campaign closed"
  @funds[msg.sender] += msg.value
  @raised += msg.value
end

def refund()
  amount = @funds[msg.sender]
  require amount > 0, "nothing to refund"
  @funds[msg.sender] = 0
  msg.sender.transfer( amount )
end
`
	code := compileSource(t, src, WithContractName("crowdfund"))

	assert.Contains(t, code, "enum State { Fundraising, Successful }")
	assert.Contains(t, code, "State internal _state;")
	assert.Contains(t, code, "_state = State.Fundraising;")
	assert.Contains(t, code, "function pledge() public payable {")
	assert.Contains(t, code, "_funds[msg.sender] += msg.value;")
	assert.Contains(t, code, "uint256 amount;")
	assert.Contains(t, code, "payable(msg.sender).transfer(amount);")
}

func TestCompileControlFlow(t *testing.T) {
	t.Parallel()

	src := `
def setup()
  @counter = 0
end

def classify( n = 0 )
  if n > 100
    label = "large"
  elsif n > 10
    label = "medium"
  else
    label = "small"
  end
  label
end

def count_to( n = 0 )
  i = 0
  while i < n
    @counter += 1
    i += 1
  end
  i
end
`
	code := compileSource(t, src)

	assert.Contains(t, code, "string memory label;")
	assert.Contains(t, code, "} else if (n > 10) {")
	assert.Contains(t, code, "} else {")
	assert.Contains(t, code, "function classify(uint256 n) public view")
	assert.Contains(t, code, "while (i < n) {")
	assert.Contains(t, code, "return i;")
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil reader", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompiler()
		require.NoError(t, err)
		_, err = c.Compile(nil)
		require.ErrorIs(t, err, ErrContentNil)
	})

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompiler()
		require.NoError(t, err)
		_, err = c.Compile(io.NopCloser(strings.NewReader("  \n ")))
		require.ErrorIs(t, err, ErrContentNil)
	})

	t.Run("invalid contract", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompiler()
		require.NoError(t, err)
		_, err = c.Compile(io.NopCloser(strings.NewReader("def spin()\n  spin()\nend\n")))
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "recursion")
	})

	t.Run("bad options", func(t *testing.T) {
		t.Parallel()
		_, err := NewCompiler(WithContractName(""))
		require.Error(t, err)
		_, err = NewCompiler(WithLogHandler(nil))
		require.Error(t, err)
	})
}

func TestWithPragmaVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pragma string
		ok     bool
	}{
		{"^0.8.24", true},
		{">=0.8.0 <0.9.0", true},
		{"1.0.0", true},
		{"0.8", true},
		{"^0.7.6", false},
		{"0.4.26", false},
		{"latest", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.pragma, func(t *testing.T) {
			t.Parallel()
			_, err := NewCompiler(WithPragma(tt.pragma))
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
