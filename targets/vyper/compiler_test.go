package vyper

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
	require.Equal(t, types.Vyper, artifact.GetTarget())
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

	assert.Contains(t, code, "# @version ^0.3.10")
	assert.Contains(t, code, "event Transfer:")
	assert.Contains(t, code, "from_: address", "reserved words gain a trailing underscore")
	assert.Contains(t, code, "_total_supply: uint256")
	assert.Contains(t, code, "_balances: HashMap[address, uint256]")
	assert.Contains(t, code, "def __init__(initial_supply: uint256):")
	assert.Contains(t, code, "self._total_supply = initial_supply")

	assert.Contains(t, code, "@view")
	assert.Contains(t, code, "def total_supply() -> uint256:")
	assert.Contains(t, code, "return self._total_supply")

	assert.Contains(t, code, "def transfer(to: address, value: uint256) -> bool:")
	assert.Contains(t, code, `assert self._balances[msg.sender] >= value, "insufficient balance"`)
	assert.Contains(t, code, "log Transfer(msg.sender, to, value)")
	assert.Contains(t, code, "return True")
}

func TestCompileLoopsAndLocals(t *testing.T) {
	t.Parallel()

	src := `
def setup()
  @counter = 0
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

	assert.Contains(t, code, "MAX_LOOP_ITERATIONS: constant(uint256) = 1024")
	assert.Contains(t, code, "i: uint256 = empty(uint256)")
	assert.Contains(t, code, "for _loop_0 in range(MAX_LOOP_ITERATIONS):")
	assert.Contains(t, code, "if not (i < n):")
	assert.Contains(t, code, "break")
	assert.Contains(t, code, "self._counter += 1")
	assert.Contains(t, code, "return i")
}

func TestCompileMutatedParam(t *testing.T) {
	t.Parallel()

	src := `
def halve( n = 0 )
  n = n / 2
  n
end
`
	code := compileSource(t, src)

	assert.Contains(t, code, "def halve(n_in: uint256) -> uint256:",
		"mutated parameters are renamed, Vyper arguments are immutable")
	assert.Contains(t, code, "n: uint256 = n_in")
	assert.Contains(t, code, "n = n / 2")
}

func TestCompileInternalCalls(t *testing.T) {
	t.Parallel()

	src := `
def double( n = 0 )
  n * 2
end

def quadruple( n = 0 )
  double( double( n ) )
end
`
	code := compileSource(t, src)

	assert.Contains(t, code, "@internal")
	assert.Contains(t, code, "def _double(n: uint256) -> uint256:")
	assert.Contains(t, code, "self._double(self._double(n))")
	assert.Contains(t, code, "def double(n: uint256) -> uint256:",
		"called methods keep an external wrapper")
	assert.Contains(t, code, "return self._double(n)")
}

func TestCompileEnumsAndTransfer(t *testing.T) {
	t.Parallel()

	src := `
enum :State, :open, :closed

def setup()
  @state = State.open
  @pot = 0
end

def close_and_pay( to = Address(0) )
  require @state == State.open, "already closed"
  amount = @pot
  @pot = 0
  @state = State.closed
  to.transfer( amount )
end
`
	code := compileSource(t, src)

	assert.Contains(t, code, "enum State:")
	assert.Contains(t, code, "    OPEN")
	assert.Contains(t, code, "self._state = State.OPEN")
	assert.Contains(t, code, "send(to, amount)")
}

func TestCompileSendResult(t *testing.T) {
	t.Parallel()

	src := `
def setup()
  @pot = 0
end

def payout( to = Address(0), amount = 0 )
  ok = to.send( amount )
  if ok
    @pot = 0
  end
  ok
end
`
	code := compileSource(t, src)

	// send() is a reverting statement in Vyper; the Bool result form
	// needs raw_call with revert_on_failure turned off
	assert.Contains(t, code, `ok = raw_call(to, b"", value=amount, revert_on_failure=False)`)
	assert.NotContains(t, code, "ok = send(")
	assert.Contains(t, code, "def payout(to: address, amount: uint256) -> bool:")
	assert.Contains(t, code, "return ok")
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

	t.Run("invalid contract", func(t *testing.T) {
		t.Parallel()
		c, err := NewCompiler()
		require.NoError(t, err)
		_, err = c.Compile(io.NopCloser(strings.NewReader("def a()\n  @x = 1\nend\ndef a()\nend\n")))
		require.ErrorIs(t, err, ErrValidationFailed)
	})
}
