// Package token defines the lexical tokens of the sruby contract dialect.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF
	NEWLINE

	// Literals and names
	IDENT  // balance_of, Transfer
	IVAR   // @greeting (text carries the name without the sigil)
	SYMBOL // :fundraising (text carries the name without the colon)
	INT    // 42, 0xff
	STRING // "hello"

	// Operators and delimiters
	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	PLUS         // +
	MINUS        // -
	STAR         // *
	SLASH        // /
	PERCENT      // %
	EQ           // ==
	NEQ          // !=
	LT           // <
	LTE          // <=
	GT           // >
	GTE          // >=
	AND          // &&
	OR           // ||
	NOT          // !
	DOT          // .
	COMMA        // ,
	COLON        // :
	ARROW        // =>
	LPAREN       // (
	RPAREN       // )
	LBRACKET     // [
	RBRACKET     // ]

	// Keywords
	DEF
	END
	IF
	ELSIF
	ELSE
	UNLESS
	WHILE
	THEN
	DO
	RETURN
	REQUIRE
	ASSERT
	LOG
	STRUCT
	EVENT
	ENUM
	TRUE
	FALSE

	// Keywords that are recognized only to be rejected with a targeted
	// message: the dialect has no classes, no inheritance and no nil.
	CLASS
	MODULE
	SUPER
	NIL
)

var kindNames = map[Kind]string{
	ILLEGAL:      "illegal",
	EOF:          "end of file",
	NEWLINE:      "newline",
	IDENT:        "identifier",
	IVAR:         "state variable",
	SYMBOL:       "symbol",
	INT:          "integer literal",
	STRING:       "string literal",
	ASSIGN:       "'='",
	PLUS_ASSIGN:  "'+='",
	MINUS_ASSIGN: "'-='",
	PLUS:         "'+'",
	MINUS:        "'-'",
	STAR:         "'*'",
	SLASH:        "'/'",
	PERCENT:      "'%'",
	EQ:           "'=='",
	NEQ:          "'!='",
	LT:           "'<'",
	LTE:          "'<='",
	GT:           "'>'",
	GTE:          "'>='",
	AND:          "'&&'",
	OR:           "'||'",
	NOT:          "'!'",
	DOT:          "'.'",
	COMMA:        "','",
	COLON:        "':'",
	ARROW:        "'=>'",
	LPAREN:       "'('",
	RPAREN:       "')'",
	LBRACKET:     "'['",
	RBRACKET:     "']'",
	DEF:          "'def'",
	END:          "'end'",
	IF:           "'if'",
	ELSIF:        "'elsif'",
	ELSE:         "'else'",
	UNLESS:       "'unless'",
	WHILE:        "'while'",
	THEN:         "'then'",
	DO:           "'do'",
	RETURN:       "'return'",
	REQUIRE:      "'require'",
	ASSERT:       "'assert'",
	LOG:          "'log'",
	STRUCT:       "'struct'",
	EVENT:        "'event'",
	ENUM:         "'enum'",
	TRUE:         "'true'",
	FALSE:        "'false'",
	CLASS:        "'class'",
	MODULE:       "'module'",
	SUPER:        "'super'",
	NIL:          "'nil'",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"def":     DEF,
	"end":     END,
	"if":      IF,
	"elsif":   ELSIF,
	"else":    ELSE,
	"unless":  UNLESS,
	"while":   WHILE,
	"then":    THEN,
	"do":      DO,
	"return":  RETURN,
	"require": REQUIRE,
	"assert":  ASSERT,
	"log":     LOG,
	"struct":  STRUCT,
	"event":   EVENT,
	"enum":    ENUM,
	"true":    TRUE,
	"false":   FALSE,
	"class":   CLASS,
	"module":  MODULE,
	"super":   SUPER,
	"nil":     NIL,
}

// Lookup maps an identifier to its keyword kind, or IDENT if it is not a keyword.
func Lookup(name string) Kind {
	if k, ok := keywords[name]; ok {
		return k
	}
	return IDENT
}

// Pos is a line/column position in a source file. Both are 1-based;
// a zero Pos means "no position".
type Pos struct {
	Line   int
	Column int
}

func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical token with its source position.
type Token struct {
	Kind Kind
	Pos  Pos
	Text string
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	}
	return t.Kind.String()
}

// Error is a front-end error (lexical or syntactic) anchored to a position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Errorf builds a positioned Error.
func Errorf(pos Pos, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
