package abi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/internal/naming"
	"github.com/s6ruby/srubyc/lang/parser"
)

func checkSource(t *testing.T, src string) *analysis.Table {
	t.Helper()
	contract, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	checker, err := analysis.NewChecker()
	require.NoError(t, err)
	table, diags := checker.Check(contract)
	require.Empty(t, diags)
	return table
}

func TestSelector(t *testing.T) {
	t.Parallel()

	// the canonical ERC-20 examples
	assert.Equal(t, "a9059cbb", Selector("transfer(address,uint256)"))
	assert.Equal(t, "70a08231", Selector("balanceOf(address)"))
	assert.Equal(t, "18160ddd", Selector("totalSupply()"))
}

func TestEventTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		EventTopic("Transfer(address,address,uint256)"))
}

func TestFromTable(t *testing.T) {
	t.Parallel()

	src := `
event :Transfer, from: Address, to: Address, value: Integer

def setup( initial_supply = 0 )
  @total_supply = initial_supply
  @balances = Mapping.of( Address => Integer )
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
	table := checkSource(t, src)

	entries, err := FromTable(table, naming.Camel)
	require.NoError(t, err)
	require.Len(t, entries, 5, "constructor + event + three functions")

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	t.Run("constructor", func(t *testing.T) {
		ctor := entries[0]
		assert.Equal(t, "constructor", ctor.Type)
		require.Len(t, ctor.Inputs, 1)
		assert.Equal(t, "initialSupply", ctor.Inputs[0].Name)
		assert.Equal(t, "uint256", ctor.Inputs[0].Type)
	})

	t.Run("event", func(t *testing.T) {
		ev, ok := byName["Transfer"]
		require.True(t, ok)
		assert.Equal(t, "event", ev.Type)
		require.NotNil(t, ev.Anonymous)
		assert.False(t, *ev.Anonymous)
		require.Len(t, ev.Inputs, 3)
		assert.Equal(t, "address", ev.Inputs[0].Type)
	})

	t.Run("view function", func(t *testing.T) {
		fn, ok := byName["totalSupply"]
		require.True(t, ok)
		assert.Equal(t, "view", fn.StateMutability)
		require.Len(t, fn.Outputs, 1)
		assert.Equal(t, "uint256", fn.Outputs[0].Type)
	})

	t.Run("mutating function", func(t *testing.T) {
		fn, ok := byName["transfer"]
		require.True(t, ok)
		assert.Equal(t, "nonpayable", fn.StateMutability)
		assert.Equal(t, "a9059cbb", Selector(Signature(fn.Name, fn.Inputs)))
	})

	t.Run("payable function", func(t *testing.T) {
		fn, ok := byName["deposit"]
		require.True(t, ok)
		assert.Equal(t, "payable", fn.StateMutability)
		assert.Empty(t, fn.Outputs)
	})

	t.Run("selector helper agrees", func(t *testing.T) {
		sel, err := MethodSelector(table.Methods["transfer"], naming.Camel)
		require.NoError(t, err)
		assert.Equal(t, "a9059cbb", sel)
	})
}

func TestJSON(t *testing.T) {
	t.Parallel()

	doc, err := JSON([]Entry{{
		Type:            "function",
		Name:            "ping",
		Inputs:          []Param{},
		StateMutability: "view",
	}})
	require.NoError(t, err)

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "ping", parsed[0]["name"])
	assert.NotContains(t, parsed[0], "outputs", "empty outputs are omitted")
}

func TestJSONEmpty(t *testing.T) {
	t.Parallel()

	doc, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", doc)
}
