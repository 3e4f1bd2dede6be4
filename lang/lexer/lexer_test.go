package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s6ruby/srubyc/lang/token"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Kind)
	}
	return out
}

func TestScanBasics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{
			name: "assignment",
			src:  "@greeting = greeting\n",
			want: []token.Kind{token.IVAR, token.ASSIGN, token.IDENT, token.NEWLINE, token.EOF},
		},
		{
			name: "method header",
			src:  "def transfer( to = Address(0), value = 0 )\n",
			want: []token.Kind{
				token.DEF, token.IDENT, token.LPAREN, token.IDENT, token.ASSIGN,
				token.IDENT, token.LPAREN, token.INT, token.RPAREN, token.COMMA,
				token.IDENT, token.ASSIGN, token.INT, token.RPAREN,
				token.NEWLINE, token.EOF,
			},
		},
		{
			name: "mapping example",
			src:  "Mapping.of( Address => Integer )",
			want: []token.Kind{
				token.IDENT, token.DOT, token.IDENT, token.LPAREN,
				token.IDENT, token.ARROW, token.IDENT, token.RPAREN, token.EOF,
			},
		},
		{
			name: "symbols and keywords",
			src:  "enum :state, :fundraising\n",
			want: []token.Kind{
				token.ENUM, token.SYMBOL, token.COMMA, token.SYMBOL,
				token.NEWLINE, token.EOF,
			},
		},
		{
			name: "compound assign and comparison",
			src:  "@raised += msg.value if @raised >= @goal\n",
			want: []token.Kind{
				token.IVAR, token.PLUS_ASSIGN, token.IDENT, token.DOT, token.IDENT,
				token.IF, token.IVAR, token.GTE, token.IVAR,
				token.NEWLINE, token.EOF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, errs := Scan([]byte(tt.src))
			require.Empty(t, errs)
			require.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestScanNewlineHandling(t *testing.T) {
	t.Parallel()

	t.Run("blank line runs collapse", func(t *testing.T) {
		tokens, errs := Scan([]byte("a = 1\n\n\n# comment only\n\nb = 2\n"))
		require.Empty(t, errs)
		require.Equal(t, []token.Kind{
			token.IDENT, token.ASSIGN, token.INT, token.NEWLINE,
			token.IDENT, token.ASSIGN, token.INT, token.NEWLINE, token.EOF,
		}, kinds(tokens))
	})

	t.Run("newlines inside parens are suppressed", func(t *testing.T) {
		tokens, errs := Scan([]byte("log Transfer(\n  a,\n  b\n)\n"))
		require.Empty(t, errs)
		require.Equal(t, []token.Kind{
			token.LOG, token.IDENT, token.LPAREN, token.IDENT, token.COMMA,
			token.IDENT, token.RPAREN, token.NEWLINE, token.EOF,
		}, kinds(tokens))
	})

	t.Run("leading newlines are dropped", func(t *testing.T) {
		tokens, errs := Scan([]byte("\n\ndef greet\n"))
		require.Empty(t, errs)
		require.Equal(t, token.DEF, tokens[0].Kind)
	})
}

func TestScanLiterals(t *testing.T) {
	t.Parallel()

	t.Run("hex and underscored integers", func(t *testing.T) {
		tokens, errs := Scan([]byte("0xff 1_000_000"))
		require.Empty(t, errs)
		require.Equal(t, "0xff", tokens[0].Text)
		require.Equal(t, "1_000_000", tokens[1].Text)
	})

	t.Run("string escapes", func(t *testing.T) {
		tokens, errs := Scan([]byte(`"a\n\"b\""`))
		require.Empty(t, errs)
		require.Equal(t, "a\n\"b\"", tokens[0].Text)
	})

	t.Run("predicate identifier", func(t *testing.T) {
		tokens, errs := Scan([]byte("voted?"))
		require.Empty(t, errs)
		require.Equal(t, token.IDENT, tokens[0].Kind)
		require.Equal(t, "voted?", tokens[0].Text)
	})
}

func TestScanErrors(t *testing.T) {
	t.Parallel()

	t.Run("float literal", func(t *testing.T) {
		tokens, errs := Scan([]byte("x = 1.5\n"))
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Msg, "floating point")
		assert.Equal(t, 1, errs[0].Pos.Line)
		// scanning continues past the bad literal
		require.Equal(t, token.EOF, tokens[len(tokens)-1].Kind)
	})

	t.Run("unterminated string", func(t *testing.T) {
		_, errs := Scan([]byte("s = \"oops\n"))
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Msg, "unterminated")
	})

	t.Run("stray ampersand", func(t *testing.T) {
		_, errs := Scan([]byte("a & b\n"))
		require.Len(t, errs, 1)
	})

	t.Run("positions recorded", func(t *testing.T) {
		tokens, errs := Scan([]byte("a = 1\nb = 2\n"))
		require.Empty(t, errs)
		require.Equal(t, token.Pos{Line: 2, Column: 1}, tokens[4].Pos)
	})
}
