package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
)

func mustParse(t *testing.T, src string) *ast.Contract {
	t.Helper()
	c, err := Parse([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestParseDeclarations(t *testing.T) {
	t.Parallel()

	t.Run("struct", func(t *testing.T) {
		c := mustParse(t, "struct :Voter, weight: 0, voted: false, delegate: Address(0)\n")
		require.Len(t, c.Structs, 1)
		s := c.Structs[0]
		assert.Equal(t, "Voter", s.Name)
		require.Len(t, s.Fields, 3)
		assert.Equal(t, "weight", s.Fields[0].Name)
		assert.IsType(t, &ast.IntLit{}, s.Fields[0].Example)
		assert.IsType(t, &ast.BoolLit{}, s.Fields[1].Example)
		assert.IsType(t, &ast.CallExpr{}, s.Fields[2].Example)
	})

	t.Run("event", func(t *testing.T) {
		c := mustParse(t, "event :Transfer, from: Address, to: Address, value: Integer\n")
		require.Len(t, c.Events, 1)
		e := c.Events[0]
		assert.Equal(t, "Transfer", e.Name)
		require.Len(t, e.Fields, 3)
		assert.Equal(t, "value", e.Fields[2].Name)
		assert.Equal(t, "Integer", e.Fields[2].Type.Name)
	})

	t.Run("enum", func(t *testing.T) {
		c := mustParse(t, "enum :State, :fundraising, :expired, :successful\n")
		require.Len(t, c.Enums, 1)
		assert.Equal(t, "State", c.Enums[0].Name)
		require.Len(t, c.Enums[0].Members, 3)
		assert.Equal(t, "expired", c.Enums[0].Members[1].Name)
	})

	t.Run("setup is split from methods", func(t *testing.T) {
		c := mustParse(t, "def setup\n  @x = 0\nend\n\ndef get\n  @x\nend\n")
		require.NotNil(t, c.Setup)
		assert.True(t, c.Setup.IsSetup)
		require.Len(t, c.Methods, 1)
		assert.Equal(t, "get", c.Methods[0].Name)
	})
}

func TestParseParams(t *testing.T) {
	t.Parallel()

	t.Run("example defaults", func(t *testing.T) {
		c := mustParse(t, "def transfer( to = Address(0), value = 0 )\nend\n")
		require.Len(t, c.Methods, 1)
		params := c.Methods[0].Params
		require.Len(t, params, 2)
		assert.Equal(t, "to", params[0].Name)
		assert.IsType(t, &ast.CallExpr{}, params[0].Example)
		assert.IsType(t, &ast.IntLit{}, params[1].Example)
	})

	t.Run("missing example is an error", func(t *testing.T) {
		_, err := Parse([]byte("def transfer( to )\nend\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "example default")
	})
}

func TestParseStatements(t *testing.T) {
	t.Parallel()

	src := `def pledge
  require msg.value > 0, "a pledge must send a positive amount"
  @pledges[msg.sender] += msg.value
  if @raised >= @goal
    @state = State.successful
    log GoalReached( @raised )
  elsif @raised == 0
    @state = State.fundraising
  else
    assert @raised < @goal
  end
  while @i < 10 do
    @i += 1
  end
  return true
end
`
	c := mustParse(t, src)
	require.Len(t, c.Methods, 1)
	stmts := c.Methods[0].Body.Stmts
	require.Len(t, stmts, 5)

	req := stmts[0].(*ast.RequireStmt)
	assert.Equal(t, "a pledge must send a positive amount", req.Message)
	assert.False(t, req.Assert)

	add := stmts[1].(*ast.AssignStmt)
	assert.Equal(t, token.PLUS_ASSIGN, add.Op)
	assert.IsType(t, &ast.IndexExpr{}, add.Target)

	ifs := stmts[2].(*ast.IfStmt)
	require.Len(t, ifs.Then.Stmts, 2)
	assert.IsType(t, &ast.LogStmt{}, ifs.Then.Stmts[1])
	elsif, ok := ifs.Else.(*ast.IfStmt)
	require.True(t, ok, "elsif should nest as an IfStmt")
	elseBlock, ok := elsif.Else.(*ast.Block)
	require.True(t, ok)
	require.Len(t, elseBlock.Stmts, 1)
	assert.True(t, elseBlock.Stmts[0].(*ast.RequireStmt).Assert)

	loop := stmts[3].(*ast.WhileStmt)
	require.Len(t, loop.Body.Stmts, 1)

	ret := stmts[4].(*ast.ReturnStmt)
	assert.IsType(t, &ast.BoolLit{}, ret.Value)
}

func TestParseRequireForms(t *testing.T) {
	t.Parallel()

	t.Run("parenthesized call form", func(t *testing.T) {
		c := mustParse(t, "def f\n  require( @a > 0, \"must be positive\" )\nend\n")
		req := c.Methods[0].Body.Stmts[0].(*ast.RequireStmt)
		assert.Equal(t, "must be positive", req.Message)
		assert.IsType(t, &ast.BinaryExpr{}, req.Cond)
	})

	t.Run("grouping parens continue the expression", func(t *testing.T) {
		c := mustParse(t, "def f\n  require (@a + @b) > 0, \"sum\"\nend\n")
		req := c.Methods[0].Body.Stmts[0].(*ast.RequireStmt)
		assert.Equal(t, "sum", req.Message)
		bin, ok := req.Cond.(*ast.BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, token.GT, bin.Op)
	})

	t.Run("assert rejects a message", func(t *testing.T) {
		_, err := Parse([]byte("def f\n  assert @a > 0, \"no\"\nend\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "assert takes no message")
	})
}

func TestParseTypeExamples(t *testing.T) {
	t.Parallel()

	t.Run("mapping", func(t *testing.T) {
		c := mustParse(t, "def setup\n  @balance_of = Mapping.of( Address => Integer )\nend\n")
		assign := c.Setup.Body.Stmts[0].(*ast.AssignStmt)
		m, ok := assign.Value.(*ast.MappingExpr)
		require.True(t, ok)
		assert.Equal(t, "Address", m.Key.(*ast.TypeName).Name)
		assert.Equal(t, "Integer", m.Value.(*ast.TypeName).Name)
	})

	t.Run("nested mapping", func(t *testing.T) {
		c := mustParse(t, "def setup\n  @allowance = Mapping.of( Address => Mapping.of( Address => Integer ) )\nend\n")
		assign := c.Setup.Body.Stmts[0].(*ast.AssignStmt)
		m := assign.Value.(*ast.MappingExpr)
		inner, ok := m.Value.(*ast.MappingExpr)
		require.True(t, ok)
		assert.Equal(t, "Integer", inner.Value.(*ast.TypeName).Name)
	})

	t.Run("fixed array", func(t *testing.T) {
		c := mustParse(t, "def setup\n  @proposals = Array.of( Proposal, 8 )\nend\n")
		assign := c.Setup.Body.Stmts[0].(*ast.AssignStmt)
		a, ok := assign.Value.(*ast.ArrayExpr)
		require.True(t, ok)
		assert.Equal(t, "Proposal", a.Elem.(*ast.TypeName).Name)
		require.NotNil(t, a.Len)
	})

	t.Run("dynamic array", func(t *testing.T) {
		c := mustParse(t, "def setup\n  @log = Array.of( Integer )\nend\n")
		assign := c.Setup.Body.Stmts[0].(*ast.AssignStmt)
		a := assign.Value.(*ast.ArrayExpr)
		assert.Nil(t, a.Len)
	})
}

func TestParsePrecedence(t *testing.T) {
	t.Parallel()

	c := mustParse(t, "def f\n  @x = 1 + 2 * 3 == 7 && !@done\nend\n")
	assign := c.Methods[0].Body.Stmts[0].(*ast.AssignStmt)
	root := assign.Value.(*ast.BinaryExpr)
	assert.Equal(t, token.AND, root.Op)
	eq := root.X.(*ast.BinaryExpr)
	assert.Equal(t, token.EQ, eq.Op)
	sum := eq.X.(*ast.BinaryExpr)
	assert.Equal(t, token.PLUS, sum.Op)
	mul := sum.Y.(*ast.BinaryExpr)
	assert.Equal(t, token.STAR, mul.Op)
	assert.IsType(t, &ast.UnaryExpr{}, root.Y)
}

func TestParseRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "class",
			src:  "class Greeter\nend\n",
			want: "the source file is the contract",
		},
		{
			name: "super",
			src:  "def f\n  super\nend\n",
			want: "no inheritance",
		},
		{
			name: "nil",
			src:  "def f\n  @x = nil\nend\n",
			want: "nil is not supported",
		},
		{
			name: "float literal",
			src:  "def f\n  @x = 1.5\nend\n",
			want: "floating point",
		},
		{
			name: "nested def",
			src:  "def f\n  def g\n  end\nend\n",
			want: "nested method definitions",
		},
		{
			name: "assignment to literal",
			src:  "def f\n  5 = @x\nend\n",
			want: "cannot assign",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRecovery(t *testing.T) {
	t.Parallel()

	// Two independent errors must both be reported.
	src := "def f\n  @x = \n  @y = nil\nend\n"
	_, err := Parse([]byte(src))
	require.Error(t, err)
	var list ErrorList
	require.ErrorAs(t, err, &list)
	require.GreaterOrEqual(t, len(list), 2)
	for _, e := range list {
		assert.True(t, e.Pos.IsValid())
	}
}
