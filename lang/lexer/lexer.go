// Package lexer turns sruby contract source into a token stream.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/s6ruby/srubyc/lang/token"
)

const eof = rune(-1)

// Lexer scans a single source buffer. Newlines are significant (they
// terminate statements) except inside parentheses or brackets, where the
// scanner suppresses them so argument lists can wrap.
type Lexer struct {
	src    []byte
	offset int
	line   int
	col    int

	depth  int // ( and [ nesting
	tokens []token.Token
	errs   []*token.Error
}

// New creates a Lexer for the given source buffer.
func New(src []byte) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  1,
	}
}

// Scan tokenizes the whole buffer. The returned slice always ends with an
// EOF token. Scanning continues after lexical errors so that all of them
// are reported in one pass.
func Scan(src []byte) ([]token.Token, []*token.Error) {
	l := New(src)
	return l.ScanAll()
}

// ScanAll consumes the entire source and returns the tokens and any
// lexical errors encountered.
func (l *Lexer) ScanAll() ([]token.Token, []*token.Error) {
	for {
		t := l.next()
		l.tokens = append(l.tokens, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return l.tokens, l.errs
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{Line: l.line, Column: l.col}
}

func (l *Lexer) peek() rune {
	if l.offset >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRune(l.src[l.offset:])
	return r
}

func (l *Lexer) peek2() rune {
	if l.offset >= len(l.src) {
		return eof
	}
	_, n := utf8.DecodeRune(l.src[l.offset:])
	if l.offset+n >= len(l.src) {
		return eof
	}
	r, _ := utf8.DecodeRune(l.src[l.offset+n:])
	return r
}

func (l *Lexer) advance() rune {
	if l.offset >= len(l.src) {
		return eof
	}
	r, n := utf8.DecodeRune(l.src[l.offset:])
	l.offset += n
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) errorf(pos token.Pos, format string, args ...any) {
	l.errs = append(l.errs, token.Errorf(pos, format, args...))
}

func (l *Lexer) make(kind token.Kind, pos token.Pos, text string) token.Token {
	return token.Token{Kind: kind, Pos: pos, Text: text}
}

// next scans one token, skipping whitespace and comments. Runs of blank
// lines collapse into a single NEWLINE token; newlines inside parentheses
// or brackets are suppressed entirely.
func (l *Lexer) next() token.Token {
	for {
		r := l.peek()
		switch {
		case r == eof:
			return l.make(token.EOF, l.pos(), "")
		case r == '\n':
			pos := l.pos()
			l.advance()
			if l.depth > 0 || l.lastIsNewline() {
				continue
			}
			return l.make(token.NEWLINE, pos, "")
		case r == ' ' || r == '\t' || r == '\r':
			l.advance()
		case r == '#':
			l.skipComment()
		default:
			return l.scanToken()
		}
	}
}

// lastIsNewline reports whether the previously emitted token was a NEWLINE
// (or nothing yet), so runs of blank lines collapse to a single token.
func (l *Lexer) lastIsNewline() bool {
	if len(l.tokens) == 0 {
		return true
	}
	return l.tokens[len(l.tokens)-1].Kind == token.NEWLINE
}

func (l *Lexer) skipComment() {
	for {
		r := l.peek()
		if r == '\n' || r == eof {
			return
		}
		l.advance()
	}
}

func (l *Lexer) scanToken() token.Token {
	pos := l.pos()
	r := l.peek()

	switch {
	case isIdentStart(r):
		return l.scanIdent(pos)
	case unicode.IsDigit(r):
		return l.scanNumber(pos)
	}

	l.advance()
	switch r {
	case '"':
		return l.scanString(pos)
	case '@':
		if !isIdentStart(l.peek()) {
			l.errorf(pos, "expected a name after '@'")
			return l.make(token.ILLEGAL, pos, "@")
		}
		name := l.scanIdentText()
		return l.make(token.IVAR, pos, name)
	case ':':
		if isIdentStart(l.peek()) {
			name := l.scanIdentText()
			return l.make(token.SYMBOL, pos, name)
		}
		return l.make(token.COLON, pos, ":")
	case '=':
		switch l.peek() {
		case '=':
			l.advance()
			return l.make(token.EQ, pos, "==")
		case '>':
			l.advance()
			return l.make(token.ARROW, pos, "=>")
		}
		return l.make(token.ASSIGN, pos, "=")
	case '+':
		if l.peek() == '=' {
			l.advance()
			return l.make(token.PLUS_ASSIGN, pos, "+=")
		}
		return l.make(token.PLUS, pos, "+")
	case '-':
		if l.peek() == '=' {
			l.advance()
			return l.make(token.MINUS_ASSIGN, pos, "-=")
		}
		return l.make(token.MINUS, pos, "-")
	case '*':
		return l.make(token.STAR, pos, "*")
	case '/':
		return l.make(token.SLASH, pos, "/")
	case '%':
		return l.make(token.PERCENT, pos, "%")
	case '!':
		if l.peek() == '=' {
			l.advance()
			return l.make(token.NEQ, pos, "!=")
		}
		return l.make(token.NOT, pos, "!")
	case '<':
		if l.peek() == '=' {
			l.advance()
			return l.make(token.LTE, pos, "<=")
		}
		return l.make(token.LT, pos, "<")
	case '>':
		if l.peek() == '=' {
			l.advance()
			return l.make(token.GTE, pos, ">=")
		}
		return l.make(token.GT, pos, ">")
	case '&':
		if l.peek() == '&' {
			l.advance()
			return l.make(token.AND, pos, "&&")
		}
		l.errorf(pos, "unexpected character '&' (bitwise operators are not supported)")
		return l.make(token.ILLEGAL, pos, "&")
	case '|':
		if l.peek() == '|' {
			l.advance()
			return l.make(token.OR, pos, "||")
		}
		l.errorf(pos, "unexpected character '|'")
		return l.make(token.ILLEGAL, pos, "|")
	case '.':
		return l.make(token.DOT, pos, ".")
	case ',':
		return l.make(token.COMMA, pos, ",")
	case '(':
		l.depth++
		return l.make(token.LPAREN, pos, "(")
	case ')':
		if l.depth > 0 {
			l.depth--
		}
		return l.make(token.RPAREN, pos, ")")
	case '[':
		l.depth++
		return l.make(token.LBRACKET, pos, "[")
	case ']':
		if l.depth > 0 {
			l.depth--
		}
		return l.make(token.RBRACKET, pos, "]")
	}

	l.errorf(pos, "unexpected character %q", string(r))
	return l.make(token.ILLEGAL, pos, string(r))
}

func (l *Lexer) scanIdent(pos token.Pos) token.Token {
	name := l.scanIdentText()
	kind := token.Lookup(name)
	if kind == token.IDENT {
		return l.make(token.IDENT, pos, name)
	}
	return l.make(kind, pos, name)
}

func (l *Lexer) scanIdentText() string {
	start := l.offset
	for isIdentPart(l.peek()) {
		l.advance()
	}
	// Ruby-style predicate names: allow a single trailing '?'
	if l.peek() == '?' {
		l.advance()
	}
	return string(l.src[start:l.offset])
}

func (l *Lexer) scanNumber(pos token.Pos) token.Token {
	start := l.offset
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		return l.make(token.INT, pos, string(l.src[start:l.offset]))
	}

	for unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
		// Consume the fractional part so scanning can continue cleanly.
		l.advance()
		for unicode.IsDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		l.errorf(pos, "floating point literals are not supported; use Integer arithmetic")
		return l.make(token.ILLEGAL, pos, string(l.src[start:l.offset]))
	}

	return l.make(token.INT, pos, string(l.src[start:l.offset]))
}

func (l *Lexer) scanString(pos token.Pos) token.Token {
	var out []rune
	for {
		r := l.peek()
		switch r {
		case eof, '\n':
			l.errorf(pos, "unterminated string literal")
			return l.make(token.ILLEGAL, pos, string(out))
		case '"':
			l.advance()
			return l.make(token.STRING, pos, string(out))
		case '\\':
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			default:
				l.errorf(l.pos(), "unknown escape sequence '\\%s'", string(esc))
			}
		default:
			l.advance()
			out = append(out, r)
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
