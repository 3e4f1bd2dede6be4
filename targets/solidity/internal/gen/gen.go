// Package gen emits Solidity ^0.8 source from a checked contract.
//
// Naming: state variables become camelCase with a leading underscore and
// internal visibility, methods and locals become camelCase, enum members
// become PascalCase. Solidity 0.8 checks arithmetic natively, so checked
// operations need no extra lowering here.
package gen

import (
	"fmt"
	"strings"

	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/internal/naming"
	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
	"github.com/s6ruby/srubyc/lang/types"
)

// Emit renders the contract as a single Solidity source file.
func Emit(contract *ast.Contract, table *analysis.Table, name, pragma string) (string, error) {
	g := &generator{table: table}

	g.line("// SPDX-License-Identifier: MIT")
	g.line("pragma solidity %s;", pragma)
	g.line("")
	g.line("contract %s {", naming.Pascal(name))
	g.indent++

	g.emitEnums()
	g.emitStructs()
	g.emitEvents()
	g.emitState()

	if contract.Setup != nil {
		g.emitConstructor(contract.Setup, table.Setup)
	}
	for _, decl := range contract.Methods {
		g.emitMethod(decl, table.Methods[decl.Name])
	}

	g.indent--
	g.line("}")

	if g.err != nil {
		return "", g.err
	}
	return g.buf.String(), nil
}

type generator struct {
	table  *analysis.Table
	buf    strings.Builder
	indent int
	err    error
}

func (g *generator) line(format string, args ...any) {
	g.buf.WriteString(strings.Repeat("    ", g.indent))
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

func (g *generator) fail(format string, args ...any) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

func (g *generator) emitEnums() {
	for _, name := range g.table.EnumOrder {
		enum := g.table.Enums[name]
		members := make([]string, len(enum.Members))
		for i, m := range enum.Members {
			members[i] = naming.Pascal(m)
		}
		g.line("enum %s { %s }", naming.Pascal(enum.Name), strings.Join(members, ", "))
		g.line("")
	}
}

func (g *generator) emitStructs() {
	for _, name := range g.table.StructOrder {
		st := g.table.Structs[name]
		g.line("struct %s {", naming.Pascal(st.Name))
		g.indent++
		for _, f := range st.Fields {
			g.line("%s %s;", g.solType(f.Type), naming.Camel(f.Name))
		}
		g.indent--
		g.line("}")
		g.line("")
	}
}

func (g *generator) emitEvents() {
	for _, ev := range g.table.OrderedEvents() {
		fields := make([]string, len(ev.Fields))
		for i, f := range ev.Fields {
			fields[i] = g.solType(f.Type) + " " + naming.Camel(f.Name)
		}
		g.line("event %s(%s);", naming.Pascal(ev.Name), strings.Join(fields, ", "))
	}
	if len(g.table.EventOrder) > 0 {
		g.line("")
	}
}

func (g *generator) emitState() {
	for _, sv := range g.table.OrderedState() {
		g.line("%s internal %s;", g.solType(sv.Type), stateName(sv.Name))
	}
	if len(g.table.StateOrder) > 0 {
		g.line("")
	}
}

func (g *generator) emitConstructor(decl *ast.FuncDecl, m *analysis.Method) {
	sig := fmt.Sprintf("constructor(%s)", g.paramList(m.Params))
	if m.ReadsValue {
		sig += " payable"
	}
	g.line("%s {", sig)
	g.indent++
	g.emitLocals(m)
	g.emitBlock(decl.Body, nil)
	g.indent--
	g.line("}")
	g.line("")
}

func (g *generator) emitMethod(decl *ast.FuncDecl, m *analysis.Method) {
	if m == nil {
		return
	}

	sig := fmt.Sprintf("function %s(%s) public", naming.Camel(m.Name), g.paramList(m.Params))
	switch {
	case m.Payable():
		sig += " payable"
	case m.ReadOnly():
		sig += " view"
	}
	if m.Return.Kind() != types.KindVoid {
		sig += fmt.Sprintf(" returns (%s)", g.returnType(m.Return))
	}

	g.line("%s {", sig)
	g.indent++
	g.emitLocals(m)
	g.emitBlock(decl.Body, m)
	g.indent--
	g.line("}")
	g.line("")
}

// emitLocals declares every local at the top of the function. The dialect
// scopes locals to the whole method, so branch-local declarations would
// not survive their block in Solidity.
func (g *generator) emitLocals(m *analysis.Method) {
	for _, name := range m.LocalOrder {
		t := m.Locals[name]
		decl := g.solType(t)
		if isMemoryType(t) {
			decl += " memory"
		}
		g.line("%s %s;", decl, naming.Camel(name))
	}
	if len(m.LocalOrder) > 0 {
		g.line("")
	}
}

// emitBlock renders statements; when m is non-nil and returns a value, the
// trailing expression statement becomes an explicit return.
func (g *generator) emitBlock(b *ast.Block, m *analysis.Method) {
	if b == nil {
		return
	}
	for i, s := range b.Stmts {
		tail := m != nil && i == len(b.Stmts)-1 && m.Return.Kind() != types.KindVoid
		g.emitStmt(s, tail)
	}
}

func (g *generator) emitStmt(s ast.Stmt, tail bool) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		// type examples only declare storage; nothing to run
		switch st.Value.(type) {
		case *ast.MappingExpr, *ast.ArrayExpr:
			return
		}
		g.line("%s %s %s;", g.expr(st.Target), assignOp(st.Op), g.expr(st.Value))
	case *ast.IfStmt:
		g.emitIf(st, "if")
	case *ast.WhileStmt:
		g.line("while (%s) {", g.expr(st.Cond))
		g.indent++
		g.emitBlock(st.Body, nil)
		g.indent--
		g.line("}")
	case *ast.ReturnStmt:
		if st.Value == nil {
			g.line("return;")
		} else {
			g.line("return %s;", g.expr(st.Value))
		}
	case *ast.RequireStmt:
		if st.Assert {
			g.line("assert(%s);", g.expr(st.Cond))
		} else if st.Message != "" {
			g.line("require(%s, %q);", g.expr(st.Cond), st.Message)
		} else {
			g.line("require(%s);", g.expr(st.Cond))
		}
	case *ast.LogStmt:
		args := make([]string, len(st.Args))
		for i, a := range st.Args {
			args[i] = g.expr(a)
		}
		g.line("emit %s(%s);", naming.Pascal(st.Event), strings.Join(args, ", "))
	case *ast.ExprStmt:
		if tail && g.table.TypeOf(st.X).Kind() != types.KindVoid {
			g.line("return %s;", g.expr(st.X))
		} else {
			g.line("%s;", g.expr(st.X))
		}
	}
}

func (g *generator) emitIf(st *ast.IfStmt, keyword string) {
	g.line("%s (%s) {", keyword, g.expr(st.Cond))
	g.indent++
	g.emitBlock(st.Then, nil)
	g.indent--

	switch e := st.Else.(type) {
	case *ast.IfStmt:
		g.buf.WriteString(strings.Repeat("    ", g.indent))
		g.buf.WriteString("} ")
		// rendered inline as `} else if (...) {`
		g.emitIfTail(e)
	case *ast.Block:
		g.line("} else {")
		g.indent++
		g.emitBlock(e, nil)
		g.indent--
		g.line("}")
	default:
		g.line("}")
	}
}

func (g *generator) emitIfTail(st *ast.IfStmt) {
	fmt.Fprintf(&g.buf, "else if (%s) {\n", g.expr(st.Cond))
	g.indent++
	g.emitBlock(st.Then, nil)
	g.indent--

	switch e := st.Else.(type) {
	case *ast.IfStmt:
		g.buf.WriteString(strings.Repeat("    ", g.indent))
		g.buf.WriteString("} ")
		g.emitIfTail(e)
	case *ast.Block:
		g.line("} else {")
		g.indent++
		g.emitBlock(e, nil)
		g.indent--
		g.line("}")
	default:
		g.line("}")
	}
}

func (g *generator) expr(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.IntLit:
		return e.Raw
	case *ast.StrLit:
		return fmt.Sprintf("%q", e.Value)
	case *ast.BoolLit:
		if e.Value {
			return "true"
		}
		return "false"
	case *ast.Ident:
		return naming.Camel(e.Name)
	case *ast.IVar:
		return stateName(e.Name)
	case *ast.SelectorExpr:
		return g.selector(e)
	case *ast.IndexExpr:
		return g.expr(e.X) + "[" + g.expr(e.Index) + "]"
	case *ast.CallExpr:
		return g.call(e)
	case *ast.BinaryExpr:
		return g.binary(e)
	case *ast.UnaryExpr:
		return "!" + g.operand(e.X)
	}
	g.fail("cannot emit expression at %s", x.Pos())
	return "/* unsupported */"
}

func (g *generator) selector(e *ast.SelectorExpr) string {
	if id, ok := e.X.(*ast.Ident); ok {
		switch id.Name {
		case "msg", "block":
			return id.Name + "." + e.Sel
		}
		if enum, found := g.table.Enums[id.Name]; found {
			return naming.Pascal(enum.Name) + "." + naming.Pascal(e.Sel)
		}
	}

	switch g.table.TypeOf(e.X).Kind() {
	case types.KindArray:
		if e.Sel == "size" {
			return g.expr(e.X) + ".length"
		}
	case types.KindString:
		if e.Sel == "length" {
			return "bytes(" + g.expr(e.X) + ").length"
		}
	}
	return g.expr(e.X) + "." + naming.Camel(e.Sel)
}

func (g *generator) call(e *ast.CallExpr) string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = g.expr(a)
	}
	joined := strings.Join(args, ", ")

	switch fun := e.Fun.(type) {
	case *ast.Ident:
		if fun.Name == "Address" {
			return "address(" + joined + ")"
		}
		return naming.Camel(fun.Name) + "(" + joined + ")"
	case *ast.SelectorExpr:
		switch fun.Sel {
		case "transfer", "send":
			return "payable(" + g.expr(fun.X) + ")." + fun.Sel + "(" + joined + ")"
		case "push":
			return g.expr(fun.X) + ".push(" + joined + ")"
		}
	}
	g.fail("cannot emit call at %s", e.Pos())
	return "/* unsupported */"
}

func (g *generator) binary(e *ast.BinaryExpr) string {
	x, y := g.operand(e.X), g.operand(e.Y)

	if g.table.TypeOf(e.X).Kind() == types.KindString {
		switch e.Op {
		case token.PLUS:
			return "string.concat(" + x + ", " + y + ")"
		case token.EQ:
			return "keccak256(bytes(" + x + ")) == keccak256(bytes(" + y + "))"
		case token.NEQ:
			return "keccak256(bytes(" + x + ")) != keccak256(bytes(" + y + "))"
		}
	}

	return x + " " + solOp(e.Op) + " " + y
}

// operand parenthesizes compound subexpressions so the emitted code never
// depends on matching the source precedence table.
func (g *generator) operand(x ast.Expr) string {
	switch x.(type) {
	case *ast.BinaryExpr, *ast.UnaryExpr:
		return "(" + g.expr(x) + ")"
	}
	return g.expr(x)
}

func solOp(op token.Kind) string {
	switch op {
	case token.PLUS:
		return "+"
	case token.MINUS:
		return "-"
	case token.STAR:
		return "*"
	case token.SLASH:
		return "/"
	case token.PERCENT:
		return "%"
	case token.EQ:
		return "=="
	case token.NEQ:
		return "!="
	case token.LT:
		return "<"
	case token.LTE:
		return "<="
	case token.GT:
		return ">"
	case token.GTE:
		return ">="
	case token.AND:
		return "&&"
	case token.OR:
		return "||"
	}
	return op.String()
}

func assignOp(op token.Kind) string {
	switch op {
	case token.PLUS_ASSIGN:
		return "+="
	case token.MINUS_ASSIGN:
		return "-="
	default:
		return "="
	}
}

func (g *generator) solType(t types.Type) string {
	switch tt := t.(type) {
	case *types.Primitive:
		switch tt.Kind() {
		case types.KindBool:
			return "bool"
		case types.KindInteger:
			return "uint256"
		case types.KindAddress:
			return "address"
		case types.KindString:
			return "string"
		case types.KindBytes:
			return "bytes"
		}
	case *types.Enum:
		return naming.Pascal(tt.Name)
	case *types.Struct:
		return naming.Pascal(tt.Name)
	case *types.Mapping:
		return "mapping(" + g.solType(tt.Key) + " => " + g.solType(tt.Value) + ")"
	case *types.Array:
		if tt.Dynamic() {
			return g.solType(tt.Elem) + "[]"
		}
		return fmt.Sprintf("%s[%d]", g.solType(tt.Elem), tt.Len)
	}
	g.fail("type %s has no Solidity rendering", t)
	return "/* unsupported */"
}

func (g *generator) paramList(params []analysis.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		decl := g.solType(p.Type)
		if isMemoryType(p.Type) {
			decl += " memory"
		}
		parts[i] = decl + " " + naming.Camel(p.Name)
	}
	return strings.Join(parts, ", ")
}

func (g *generator) returnType(t types.Type) string {
	decl := g.solType(t)
	if isMemoryType(t) {
		decl += " memory"
	}
	return decl
}

func isMemoryType(t types.Type) bool {
	switch t.Kind() {
	case types.KindString, types.KindBytes, types.KindStruct, types.KindArray:
		return true
	default:
		return false
	}
}

func stateName(name string) string {
	return "_" + naming.Camel(name)
}
