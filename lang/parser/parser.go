// Package parser builds sruby syntax trees from token streams.
//
// The grammar is line-oriented: statements end at newlines, blocks end at
// `end`. The parser recovers at statement boundaries so a single pass
// reports every syntax error in the file, capped at maxErrors.
package parser

import (
	"math/big"
	"strings"

	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/lexer"
	"github.com/s6ruby/srubyc/lang/token"
)

// maxErrors caps how many errors a single parse reports before bailing.
const maxErrors = 20

// ErrorList is the collected lexical and syntax errors of one parse.
type ErrorList []*token.Error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parse tokenizes and parses a contract source buffer. On failure the
// returned error is an ErrorList carrying every positioned error found.
func Parse(src []byte) (*ast.Contract, error) {
	tokens, lexErrs := lexer.Scan(src)
	p := &Parser{tokens: tokens}
	for _, e := range lexErrs {
		p.errs = append(p.errs, e)
	}
	contract := p.parseContract()
	if len(p.errs) > 0 {
		return contract, ErrorList(p.errs)
	}
	return contract, nil
}

// Parser consumes a token slice produced by the lexer.
type Parser struct {
	tokens []token.Token
	pos    int
	errs   []*token.Error
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(kind token.Kind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) accept(kind token.Kind) bool {
	if p.at(kind) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) errorf(pos token.Pos, format string, args ...any) {
	if len(p.errs) < maxErrors {
		p.errs = append(p.errs, token.Errorf(pos, format, args...))
	}
}

func (p *Parser) expect(kind token.Kind, context string) token.Token {
	t := p.cur()
	if t.Kind != kind {
		p.errorf(t.Pos, "expected %s in %s, found %s", kind, context, t)
		return token.Token{Kind: kind, Pos: t.Pos}
	}
	return p.next()
}

// endOfStmt consumes the statement terminator (newline or end of file).
func (p *Parser) endOfStmt() {
	switch p.cur().Kind {
	case token.NEWLINE:
		p.next()
	case token.EOF, token.END, token.ELSIF, token.ELSE:
		// block terminators double as statement terminators
	default:
		p.errorf(p.cur().Pos, "expected end of statement, found %s", p.cur())
		p.syncStmt()
	}
}

// syncStmt skips ahead to the next statement boundary after an error.
func (p *Parser) syncStmt() {
	for {
		switch p.cur().Kind {
		case token.NEWLINE:
			p.next()
			return
		case token.EOF, token.END:
			return
		}
		p.next()
	}
}

func (p *Parser) parseContract() *ast.Contract {
	c := ast.NewContract()
	for {
		for p.accept(token.NEWLINE) {
		}
		t := p.cur()
		switch t.Kind {
		case token.EOF:
			return c
		case token.STRUCT:
			if d := p.parseStruct(); d != nil {
				c.Structs = append(c.Structs, d)
			}
		case token.EVENT:
			if d := p.parseEvent(); d != nil {
				c.Events = append(c.Events, d)
			}
		case token.ENUM:
			if d := p.parseEnum(); d != nil {
				c.Enums = append(c.Enums, d)
			}
		case token.DEF:
			if d := p.parseFunc(); d != nil {
				if d.IsSetup {
					if c.Setup != nil {
						p.errorf(d.Pos(), "duplicate setup definition")
					} else {
						c.Setup = d
					}
				} else {
					c.Methods = append(c.Methods, d)
				}
			}
		case token.CLASS, token.MODULE:
			p.errorf(t.Pos, "%s is not supported: the source file is the contract, and there is no inheritance", t.Kind)
			p.syncStmt()
		default:
			p.errorf(t.Pos, "expected a declaration (struct, event, enum or def), found %s", t)
			p.syncStmt()
		}
		if len(p.errs) >= maxErrors {
			return c
		}
	}
}

// parseStruct parses `struct :Name, field: <example>, ...`.
func (p *Parser) parseStruct() *ast.StructDecl {
	start := p.expect(token.STRUCT, "struct declaration")
	name := p.expect(token.SYMBOL, "struct declaration")
	d := &ast.StructDecl{Base: ast.Base{P: start.Pos}, Name: name.Text}
	for p.accept(token.COMMA) {
		fieldName := p.expect(token.IDENT, "struct field")
		p.expect(token.COLON, "struct field")
		example := p.parseExpr()
		d.Fields = append(d.Fields, &ast.Field{
			Base:    ast.Base{P: fieldName.Pos},
			Name:    fieldName.Text,
			Example: example,
		})
	}
	if len(d.Fields) == 0 {
		p.errorf(start.Pos, "struct %s has no fields", d.Name)
	}
	p.endOfStmt()
	return d
}

// parseEvent parses `event :Name, field: Type, ...`.
func (p *Parser) parseEvent() *ast.EventDecl {
	start := p.expect(token.EVENT, "event declaration")
	name := p.expect(token.SYMBOL, "event declaration")
	d := &ast.EventDecl{Base: ast.Base{P: start.Pos}, Name: name.Text}
	for p.accept(token.COMMA) {
		fieldName := p.expect(token.IDENT, "event field")
		p.expect(token.COLON, "event field")
		typeName := p.expect(token.IDENT, "event field type")
		d.Fields = append(d.Fields, &ast.EventField{
			Base: ast.Base{P: fieldName.Pos},
			Name: fieldName.Text,
			Type: &ast.TypeName{Base: ast.Base{P: typeName.Pos}, Name: typeName.Text},
		})
	}
	p.endOfStmt()
	return d
}

// parseEnum parses `enum :Name, :member, :member, ...`.
func (p *Parser) parseEnum() *ast.EnumDecl {
	start := p.expect(token.ENUM, "enum declaration")
	name := p.expect(token.SYMBOL, "enum declaration")
	d := &ast.EnumDecl{Base: ast.Base{P: start.Pos}, Name: name.Text}
	for p.accept(token.COMMA) {
		member := p.expect(token.SYMBOL, "enum member")
		d.Members = append(d.Members, &ast.EnumMember{
			Base: ast.Base{P: member.Pos},
			Name: member.Text,
		})
	}
	if len(d.Members) == 0 {
		p.errorf(start.Pos, "enum %s has no members", d.Name)
	}
	p.endOfStmt()
	return d
}

// parseFunc parses `def name( params ) ... end`. The constructor is the
// method named "setup".
func (p *Parser) parseFunc() *ast.FuncDecl {
	start := p.expect(token.DEF, "method definition")
	name := p.expect(token.IDENT, "method definition")
	d := &ast.FuncDecl{
		Base:    ast.Base{P: start.Pos},
		Name:    name.Text,
		IsSetup: name.Text == "setup",
	}

	if p.accept(token.LPAREN) {
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			paramName := p.expect(token.IDENT, "parameter list")
			p.expect(token.ASSIGN, "parameter list (every parameter needs an example default, e.g. `value = 0`)")
			example := p.parseExpr()
			d.Params = append(d.Params, &ast.Param{
				Base:    ast.Base{P: paramName.Pos},
				Name:    paramName.Text,
				Example: example,
			})
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN, "parameter list")
	}
	p.endOfStmt()

	d.Body = p.parseBlock()
	p.expect(token.END, "method definition")
	p.endOfStmt()
	return d
}

// parseBlock parses statements until a block terminator (end, elsif, else)
// is seen. The terminator is left for the caller.
func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{Base: ast.Base{P: p.cur().Pos}}
	for {
		for p.accept(token.NEWLINE) {
		}
		switch p.cur().Kind {
		case token.END, token.ELSIF, token.ELSE, token.EOF:
			return b
		}
		if len(p.errs) >= maxErrors {
			return b
		}
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	t := p.cur()
	switch t.Kind {
	case token.IF:
		return p.parseIf()
	case token.UNLESS:
		return p.parseUnless()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.REQUIRE:
		return p.parseRequire(false)
	case token.ASSERT:
		return p.parseRequire(true)
	case token.LOG:
		return p.parseLog()
	case token.DEF:
		p.errorf(t.Pos, "nested method definitions are not supported")
		p.syncStmt()
		return nil
	case token.CLASS, token.MODULE:
		p.errorf(t.Pos, "%s is not supported: the source file is the contract, and there is no inheritance", t.Kind)
		p.syncStmt()
		return nil
	case token.SUPER:
		p.errorf(t.Pos, "'super' is not supported: there is no inheritance")
		p.syncStmt()
		return nil
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.expect(token.IF, "if statement")
	return p.parseIfTail(start.Pos)
}

// parseIfTail parses the remainder of an if or elsif arm; elsif chains
// become nested IfStmt nodes in Else.
func (p *Parser) parseIfTail(pos token.Pos) *ast.IfStmt {
	cond := p.parseExpr()
	p.accept(token.THEN)
	p.endOfStmt()
	then := p.parseBlock()
	s := &ast.IfStmt{Base: ast.Base{P: pos}, Cond: cond, Then: then}

	switch {
	case p.at(token.ELSIF):
		t := p.next()
		s.Else = p.parseIfTail(t.Pos)
		return s // the innermost arm consumed `end`
	case p.accept(token.ELSE):
		p.endOfStmt()
		s.Else = p.parseBlock()
	}
	p.expect(token.END, "if statement")
	p.endOfStmt()
	return s
}

// parseUnless desugars `unless cond` into `if !cond`.
func (p *Parser) parseUnless() ast.Stmt {
	start := p.expect(token.UNLESS, "unless statement")
	cond := p.parseExpr()
	p.accept(token.THEN)
	p.endOfStmt()
	then := p.parseBlock()
	s := &ast.IfStmt{
		Base: ast.Base{P: start.Pos},
		Cond: &ast.UnaryExpr{Base: ast.Base{P: cond.Pos()}, Op: token.NOT, X: cond},
		Then: then,
	}
	if p.accept(token.ELSE) {
		p.endOfStmt()
		s.Else = p.parseBlock()
	}
	p.expect(token.END, "unless statement")
	p.endOfStmt()
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.expect(token.WHILE, "while statement")
	cond := p.parseExpr()
	p.accept(token.DO)
	p.endOfStmt()
	body := p.parseBlock()
	p.expect(token.END, "while statement")
	p.endOfStmt()
	return &ast.WhileStmt{Base: ast.Base{P: start.Pos}, Cond: cond, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.expect(token.RETURN, "return statement")
	s := &ast.ReturnStmt{Base: ast.Base{P: start.Pos}}
	if !p.at(token.NEWLINE) && !p.at(token.EOF) && !p.at(token.END) {
		s.Value = p.parseExpr()
	}
	p.endOfStmt()
	return s
}

// parseRequire parses `require cond, "message"` / `assert cond`, in either
// the bare or the parenthesized call form.
func (p *Parser) parseRequire(isAssert bool) ast.Stmt {
	var start token.Token
	context := "require statement"
	if isAssert {
		start = p.expect(token.ASSERT, "assert statement")
		context = "assert statement"
	} else {
		start = p.expect(token.REQUIRE, context)
	}

	s := &ast.RequireStmt{Base: ast.Base{P: start.Pos}, Assert: isAssert}

	if p.accept(token.LPAREN) {
		s.Cond = p.parseExpr()
		if p.accept(token.COMMA) {
			msg := p.expect(token.STRING, context)
			s.Message = msg.Text
		}
		p.expect(token.RPAREN, context)
		// `require (a + b) > 0` parses the parens as grouping, so keep
		// extending the expression when an operator follows.
		if infixPrec(p.cur().Kind) > 0 {
			s.Cond = p.continueExpr(s.Cond, 0)
			if p.accept(token.COMMA) {
				msg := p.expect(token.STRING, context)
				s.Message = msg.Text
			}
		}
	} else {
		s.Cond = p.parseExpr()
		if p.accept(token.COMMA) {
			msg := p.expect(token.STRING, context)
			s.Message = msg.Text
		}
	}

	if isAssert && s.Message != "" {
		p.errorf(start.Pos, "assert takes no message; use require for user-facing checks")
	}
	p.endOfStmt()
	return s
}

func (p *Parser) parseLog() ast.Stmt {
	start := p.expect(token.LOG, "log statement")
	name := p.expect(token.IDENT, "log statement")
	s := &ast.LogStmt{Base: ast.Base{P: start.Pos}, Event: name.Text}
	p.expect(token.LPAREN, "log statement")
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		s.Args = append(s.Args, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "log statement")
	p.endOfStmt()
	return s
}

func (p *Parser) parseSimpleStmt() ast.Stmt {
	start := p.cur().Pos
	x := p.parseExpr()

	switch p.cur().Kind {
	case token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN:
		op := p.next()
		value := p.parseExpr()
		if !assignable(x) {
			p.errorf(x.Pos(), "cannot assign to this expression")
		}
		p.endOfStmt()
		return &ast.AssignStmt{Base: ast.Base{P: start}, Target: x, Op: op.Kind, Value: value}
	}

	p.endOfStmt()
	return &ast.ExprStmt{Base: ast.Base{P: start}, X: x}
}

// assignable reports whether an expression can be an assignment target:
// locals, state variables, indexed elements and struct fields.
func assignable(x ast.Expr) bool {
	switch t := x.(type) {
	case *ast.Ident, *ast.IVar:
		return true
	case *ast.IndexExpr:
		return assignable(t.X)
	case *ast.SelectorExpr:
		return assignable(t.X)
	default:
		return false
	}
}

// Operator precedence, tighter binds higher. Zero means "not an infix
// operator".
func infixPrec(k token.Kind) int {
	switch k {
	case token.OR:
		return 1
	case token.AND:
		return 2
	case token.EQ, token.NEQ:
		return 3
	case token.LT, token.LTE, token.GT, token.GTE:
		return 4
	case token.PLUS, token.MINUS:
		return 5
	case token.STAR, token.SLASH, token.PERCENT:
		return 6
	default:
		return 0
	}
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	return p.continueExpr(left, minPrec)
}

// continueExpr extends an already-parsed left operand with infix operators
// of higher precedence than minPrec (precedence climbing).
func (p *Parser) continueExpr(left ast.Expr, minPrec int) ast.Expr {
	for {
		prec := infixPrec(p.cur().Kind)
		if prec <= minPrec {
			return left
		}
		op := p.next()
		right := p.parseBinary(prec)
		left = &ast.BinaryExpr{
			Base: ast.Base{P: op.Pos},
			Op:   op.Kind,
			X:    left,
			Y:    right,
		}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.NOT, token.MINUS:
		p.next()
		x := p.parseUnary()
		return &ast.UnaryExpr{Base: ast.Base{P: t.Pos}, Op: t.Kind, X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	x := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.DOT:
			p.next()
			sel := p.expect(token.IDENT, "member access")
			x = &ast.SelectorExpr{Base: ast.Base{P: sel.Pos}, X: x, Sel: sel.Text}
		case token.LBRACKET:
			open := p.next()
			index := p.parseExpr()
			p.expect(token.RBRACKET, "index expression")
			x = &ast.IndexExpr{Base: ast.Base{P: open.Pos}, X: x, Index: index}
		case token.LPAREN:
			x = p.parseCall(x)
		default:
			return x
		}
	}
}

// parseCall parses the parenthesized argument list of a call. The type
// examples Mapping.of( K => V ) and Array.of( T, n ) get their own parses
// because their arguments are type references, not values.
func (p *Parser) parseCall(fun ast.Expr) ast.Expr {
	open := p.expect(token.LPAREN, "call expression")

	if sel, ok := fun.(*ast.SelectorExpr); ok && sel.Sel == "of" {
		if id, ok := sel.X.(*ast.Ident); ok {
			switch id.Name {
			case "Mapping":
				return p.parseMappingExample(open.Pos)
			case "Array":
				return p.parseArrayExample(open.Pos)
			}
		}
	}

	call := &ast.CallExpr{Base: ast.Base{P: open.Pos}, Fun: fun}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		call.Args = append(call.Args, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN, "call expression")
	return call
}

func (p *Parser) parseMappingExample(pos token.Pos) ast.Expr {
	key := p.parseTypeRef()
	p.expect(token.ARROW, "mapping example (Mapping.of( Key => Value ))")
	value := p.parseTypeRef()
	p.expect(token.RPAREN, "mapping example")
	return &ast.MappingExpr{Base: ast.Base{P: pos}, Key: key, Value: value}
}

func (p *Parser) parseArrayExample(pos token.Pos) ast.Expr {
	elem := p.parseTypeRef()
	a := &ast.ArrayExpr{Base: ast.Base{P: pos}, Elem: elem}
	if p.accept(token.COMMA) {
		a.Len = p.parseExpr()
	}
	p.expect(token.RPAREN, "array example")
	return a
}

// parseTypeRef parses a type reference inside Mapping.of / Array.of:
// a bare type name or a nested Mapping/Array example.
func (p *Parser) parseTypeRef() ast.Expr {
	t := p.cur()
	if t.Kind != token.IDENT {
		p.errorf(t.Pos, "expected a type name, found %s", t)
		p.syncExpr()
		return &ast.TypeName{Base: ast.Base{P: t.Pos}, Name: "Integer"}
	}
	p.next()

	if (t.Text == "Mapping" || t.Text == "Array") && p.at(token.DOT) {
		p.next()
		of := p.expect(token.IDENT, "type reference")
		if of.Text != "of" {
			p.errorf(of.Pos, "expected 'of' after %s, found %q", t.Text, of.Text)
		}
		open := p.expect(token.LPAREN, "type reference")
		if t.Text == "Mapping" {
			return p.parseMappingExample(open.Pos)
		}
		return p.parseArrayExample(open.Pos)
	}

	return &ast.TypeName{Base: ast.Base{P: t.Pos}, Name: t.Text}
}

// syncExpr skips to the nearest closing delimiter or statement end after a
// malformed expression.
func (p *Parser) syncExpr() {
	for {
		switch p.cur().Kind {
		case token.RPAREN, token.RBRACKET, token.COMMA, token.NEWLINE, token.EOF:
			return
		}
		p.next()
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.next()
		return p.intLit(t)
	case token.STRING:
		p.next()
		return &ast.StrLit{Base: ast.Base{P: t.Pos}, Value: t.Text}
	case token.TRUE:
		p.next()
		return &ast.BoolLit{Base: ast.Base{P: t.Pos}, Value: true}
	case token.FALSE:
		p.next()
		return &ast.BoolLit{Base: ast.Base{P: t.Pos}, Value: false}
	case token.IDENT:
		p.next()
		return &ast.Ident{Base: ast.Base{P: t.Pos}, Name: t.Text}
	case token.IVAR:
		p.next()
		return &ast.IVar{Base: ast.Base{P: t.Pos}, Name: t.Text}
	case token.LPAREN:
		p.next()
		x := p.parseExpr()
		p.expect(token.RPAREN, "parenthesized expression")
		return x
	case token.NIL:
		p.next()
		p.errorf(t.Pos, "nil is not supported: every value has a zero default, initialize before use")
		return &ast.IntLit{Base: ast.Base{P: t.Pos}, Value: big.NewInt(0), Raw: "0"}
	case token.SUPER:
		p.next()
		p.errorf(t.Pos, "'super' is not supported: there is no inheritance")
		return &ast.Ident{Base: ast.Base{P: t.Pos}, Name: "super"}
	default:
		p.next()
		p.errorf(t.Pos, "expected an expression, found %s", t)
		return &ast.IntLit{Base: ast.Base{P: t.Pos}, Value: big.NewInt(0), Raw: "0"}
	}
}

func (p *Parser) intLit(t token.Token) ast.Expr {
	text := strings.ReplaceAll(t.Text, "_", "")
	value := new(big.Int)
	var ok bool
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		_, ok = value.SetString(text[2:], 16)
	} else {
		_, ok = value.SetString(text, 10)
	}
	if !ok {
		p.errorf(t.Pos, "malformed integer literal %q", t.Text)
		value = big.NewInt(0)
	}
	return &ast.IntLit{Base: ast.Base{P: t.Pos}, Value: value, Raw: t.Text}
}
