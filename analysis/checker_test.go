package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc/lang/parser"
	"github.com/s6ruby/srubyc/lang/types"
)

func mustCheck(t *testing.T, src string) (*Table, Diagnostics) {
	t.Helper()
	contract, err := parser.Parse([]byte(src))
	require.NoError(t, err, "source must parse before checking")

	checker, err := NewChecker()
	require.NoError(t, err)
	return checker.Check(contract)
}

const tokenSrc = `
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

def deposit()
  @balances[msg.sender] += msg.value
end
`

func TestCheckTokenContract(t *testing.T) {
	t.Parallel()

	table, diags := mustCheck(t, tokenSrc)
	require.Empty(t, diags, "expected a clean contract, got: %v", diags)

	t.Run("state", func(t *testing.T) {
		require.Len(t, table.StateOrder, 2)
		assert.Equal(t, []string{"total_supply", "balances"}, table.StateOrder)
		assert.True(t, table.State["total_supply"].Type.Equal(types.Integer))
		assert.True(t, table.State["balances"].Type.Equal(
			types.NewMapping(types.Address, types.Integer)))
	})

	t.Run("view method", func(t *testing.T) {
		m := table.Methods["total_supply"]
		require.NotNil(t, m)
		assert.True(t, m.ReadOnly())
		assert.False(t, m.Payable())
		assert.True(t, m.Return.Equal(types.Integer), "tail expression is the return value")
	})

	t.Run("mutating method", func(t *testing.T) {
		m := table.Methods["transfer"]
		require.NotNil(t, m)
		assert.True(t, m.WritesState)
		assert.True(t, m.Emits)
		assert.False(t, m.ReadOnly())
		assert.True(t, m.Return.Equal(types.Bool), "trailing true literal is returned")
		require.Len(t, m.Params, 2)
		assert.True(t, m.Params[0].Type.Equal(types.Address))
		assert.True(t, m.Params[1].Type.Equal(types.Integer))
	})

	t.Run("payable method", func(t *testing.T) {
		m := table.Methods["deposit"]
		require.NotNil(t, m)
		assert.True(t, m.Payable(), "reading msg.value makes a method payable")
		assert.True(t, m.Return.Equal(types.Void))
	})
}

func TestCheckStructsAndEnums(t *testing.T) {
	t.Parallel()

	src := `
struct :Pledge, owner: Address(0), amount: 0

enum :State, :fundraising, :expired, :successful

def setup()
  @state = State.fundraising
  @pledges = Mapping.of( Integer => Pledge )
  @pledge_count = 0
end

def pledge_owner( id = 0 )
  @pledges[id].owner
end

def add_pledge( amount = 0 )
  require @state == State.fundraising, "campaign is closed"
  @pledges[@pledge_count].owner = msg.sender
  @pledges[@pledge_count].amount = amount
  @pledge_count += 1
end

def expire()
  @state = State.expired
end
`
	table, diags := mustCheck(t, src)
	require.Empty(t, diags, "expected a clean contract, got: %v", diags)

	assert.True(t, table.State["state"].Type.Kind() == types.KindEnum)
	assert.True(t, table.Methods["pledge_owner"].Return.Equal(types.Address))
	assert.True(t, table.Methods["pledge_owner"].ReadOnly())
	assert.True(t, table.Methods["add_pledge"].WritesState)
	assert.True(t, table.Methods["expire"].WritesState)
}

func TestCheckDefiniteAssignment(t *testing.T) {
	t.Parallel()

	t.Run("both branches assign", func(t *testing.T) {
		t.Parallel()
		src := `
def guess( n = 0 )
  if n > 3
    won = true
  else
    won = false
  end
  won
end
`
		table, diags := mustCheck(t, src)
		require.Empty(t, diags)
		assert.True(t, table.Methods["guess"].Return.Equal(types.Bool))
	})

	t.Run("one branch misses", func(t *testing.T) {
		t.Parallel()
		src := `
def guess( n = 0 )
  if n > 3
    won = true
  end
  won
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeUnassigned))
	})

	t.Run("loop body does not count", func(t *testing.T) {
		t.Parallel()
		src := `
def scan( n = 0 )
  i = 0
  while i < n
    found = true
    i += 1
  end
  found
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeUnassigned), "loop bodies may not run at all")
	})
}

func TestCheckDiagnostics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		code string
	}{
		{
			name: "state not initialized in setup",
			src: `
def touch()
  @missing = 1
end
`,
			code: CodeState,
		},
		{
			name: "state read before initialization",
			src: `
def peek()
  @missing
end
`,
			code: CodeState,
		},
		{
			name: "negative literal",
			src: `
def negate()
  x = -1
  x
end
`,
			code: CodeNegative,
		},
		{
			name: "literal above 256 bits",
			src: `
def huge()
  x = 0x10000000000000000000000000000000000000000000000000000000000000000
  x
end
`,
			code: CodeOverflowLit,
		},
		{
			name: "unknown event",
			src: `
def announce()
  log Missing( 1 )
end
`,
			code: CodeUndefined,
		},
		{
			name: "wrong argument count",
			src: `
def double( n = 0 )
  n * 2
end

def run()
  double( 1, 2 )
end
`,
			code: CodeArity,
		},
		{
			name: "wrong argument type",
			src: `
def double( n = 0 )
  n * 2
end

def run()
  double( "one" )
end
`,
			code: CodeType,
		},
		{
			name: "conflicting return types",
			src: `
def odd( n = 0 )
  if n > 0
    return true
  end
  return 1
end
`,
			code: CodeReturn,
		},
		{
			name: "mapping key type mismatch",
			src: `
def setup()
  @balances = Mapping.of( Address => Integer )
end

def lookup()
  @balances[1]
end
`,
			code: CodeType,
		},
		{
			name: "method redefined",
			src: `
def ping()
  1
end

def ping()
  2
end
`,
			code: CodeRedeclared,
		},
		{
			name: "boolean condition required",
			src: `
def run( n = 0 )
  if n
    n = 1
  end
end
`,
			code: CodeType,
		},
		{
			name: "reference typed parameter",
			src: `
def absorb( values = Array.of( Integer ) )
end
`,
			code: CodeExample,
		},
		{
			name: "field write through a local copy",
			src: `
struct :Voter, weight: 0, voted: false

def setup()
  @voters = Mapping.of( Address => Voter )
end

def enroll( who = Address(0) )
  v = @voters[who]
  v.weight = 1
end
`,
			code: CodeType,
		},
		{
			name: "element write through a local copy",
			src: `
def setup()
  @scores = Array.of( Integer, 4 )
end

def reset()
  s = @scores
  s[0] = 0
end
`,
			code: CodeType,
		},
		{
			name: "push through a local copy",
			src: `
def setup()
  @log = Array.of( Integer )
end

def note( n = 0 )
  l = @log
  l.push( n )
end
`,
			code: CodeType,
		},
		{
			name: "return in setup",
			src: `
def setup( flag = false )
  @on = flag
  if flag
    return
  end
  @on = false
end

def on()
  @on
end
`,
			code: CodeReturn,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, diags := mustCheck(t, tt.src)
			require.NotEmpty(t, diags)
			assert.True(t, diags.HasCode(tt.code),
				"expected code %q in diagnostics: %v", tt.code, diags)
		})
	}
}

func TestCheckRecursion(t *testing.T) {
	t.Parallel()

	t.Run("direct recursion", func(t *testing.T) {
		t.Parallel()
		src := `
def spin()
  spin()
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeRecursion))
	})

	t.Run("mutual recursion", func(t *testing.T) {
		t.Parallel()
		src := `
def ping()
  pong()
end

def pong()
  ping()
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeRecursion))
	})

	t.Run("call chains resolve in any source order", func(t *testing.T) {
		t.Parallel()
		src := `
def outer()
  inner()
end

def inner()
  true
end
`
		table, diags := mustCheck(t, src)
		require.Empty(t, diags)
		assert.True(t, table.Methods["outer"].Return.Equal(types.Bool),
			"callee return types resolve before callers")
	})
}

func TestCheckReentrancy(t *testing.T) {
	t.Parallel()

	t.Run("state write after transfer", func(t *testing.T) {
		t.Parallel()
		src := `
def setup()
  @balances = Mapping.of( Address => Integer )
end

def withdraw( amount = 0 )
  require @balances[msg.sender] >= amount, "insufficient balance"
  msg.sender.transfer( amount )
  @balances[msg.sender] -= amount
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeReentrancy))
	})

	t.Run("effects before interaction pass", func(t *testing.T) {
		t.Parallel()
		src := `
def setup()
  @balances = Mapping.of( Address => Integer )
end

def withdraw( amount = 0 )
  require @balances[msg.sender] >= amount, "insufficient balance"
  @balances[msg.sender] -= amount
  msg.sender.transfer( amount )
end
`
		table, diags := mustCheck(t, src)
		require.Empty(t, diags, "checks-effects-interactions ordering is fine: %v", diags)
		assert.True(t, table.Methods["withdraw"].Sends)
	})

	t.Run("write after sending callee", func(t *testing.T) {
		t.Parallel()
		src := `
def setup()
  @pot = 0
end

def pay_out( amount = 0 )
  msg.sender.transfer( amount )
end

def finish()
  pay_out( @pot )
  @pot = 0
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeReentrancy),
			"interaction through a callee counts")
	})

	t.Run("transfer inside loop", func(t *testing.T) {
		t.Parallel()
		src := `
def setup()
  @winners = Array.of( Address )
  @prize = 0
end

def distribute()
  i = 0
  while i < @winners.size
    @winners[i].transfer( @prize )
    i += 1
  end
end
`
		_, diags := mustCheck(t, src)
		assert.True(t, diags.HasCode(CodeReentrancy))
	})
}

func TestCheckerOptions(t *testing.T) {
	t.Parallel()

	t.Run("nil handler rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewChecker(WithLogHandler(nil))
		require.Error(t, err)
	})

	t.Run("nil logger rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewChecker(WithLogger(nil))
		require.Error(t, err)
	})

	t.Run("nil contract", func(t *testing.T) {
		t.Parallel()
		checker, err := NewChecker()
		require.NoError(t, err)
		table, diags := checker.Check(nil)
		assert.Nil(t, table)
		require.NotEmpty(t, diags)
	})
}
