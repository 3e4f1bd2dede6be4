// Package gen emits a Yul object with a hand-rolled selector dispatcher
// from a checked contract.
//
// The Yul backend covers the word-sized subset of the dialect: Integer,
// Bool, Address and enum values, plus mappings over them. Strings, byte
// arrays, structs and arrays have no stable Yul layout here and are
// rejected with ErrUnsupported. Arithmetic is lowered through checked_*
// helper functions that revert on overflow, matching the semantics the
// other targets get natively.
package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/s6ruby/srubyc/analysis"
	"github.com/s6ruby/srubyc/internal/naming"
	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
	"github.com/s6ruby/srubyc/lang/types"
	"github.com/s6ruby/srubyc/targets/abi"
)

// ErrUnsupported marks contracts that use features outside the Yul
// backend's word-sized subset.
var ErrUnsupported = errors.New("not supported by the yul target")

// Emit renders the contract as a Yul object.
func Emit(contract *ast.Contract, table *analysis.Table, name string) (string, error) {
	if err := checkSupported(contract, table); err != nil {
		return "", err
	}

	g := &generator{table: table, slots: stateSlots(table)}

	g.line("object %q {", naming.Pascal(name))
	g.indent++

	g.line("code {")
	g.indent++
	if contract.Setup != nil {
		g.emitBlockStmts(contract.Setup.Body, nil, "")
	}
	g.line(`datacopy(0, dataoffset("runtime"), datasize("runtime"))`)
	g.line(`return(0, datasize("runtime"))`)
	if contract.Setup != nil {
		g.emitHelpers()
	}
	g.indent--
	g.line("}")

	g.line(`object "runtime" {`)
	g.indent++
	g.line("code {")
	g.indent++
	if err := g.emitDispatcher(); err != nil {
		return "", err
	}
	for _, decl := range contract.Methods {
		g.emitMethod(decl, table.Methods[decl.Name])
	}
	g.emitHelpers()
	g.indent--
	g.line("}")
	g.indent--
	g.line("}")

	g.indent--
	g.line("}")

	if g.err != nil {
		return "", g.err
	}
	return g.buf.String(), nil
}

type generator struct {
	table  *analysis.Table
	slots  map[string]int
	buf    strings.Builder
	indent int
	err    error
}

func stateSlots(table *analysis.Table) map[string]int {
	slots := make(map[string]int, len(table.StateOrder))
	for i, name := range table.StateOrder {
		slots[name] = i
	}
	return slots
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

// checkSupported rejects everything outside the word-sized subset.
func checkSupported(contract *ast.Contract, table *analysis.Table) error {
	if len(table.StructOrder) > 0 {
		return fmt.Errorf("%w: struct types", ErrUnsupported)
	}
	for _, sv := range table.OrderedState() {
		if !wordType(sv.Type) {
			return fmt.Errorf("%w: state @%s has type %s", ErrUnsupported, sv.Name, sv.Type)
		}
	}
	for _, ev := range table.OrderedEvents() {
		for _, f := range ev.Fields {
			if !types.IsValue(f.Type) {
				return fmt.Errorf("%w: event %s field %s has type %s",
					ErrUnsupported, ev.Name, f.Name, f.Type)
			}
		}
	}
	for _, m := range table.OrderedMethods() {
		for _, p := range m.Params {
			if !types.IsValue(p.Type) {
				return fmt.Errorf("%w: parameter %s of %s has type %s",
					ErrUnsupported, p.Name, m.Name, p.Type)
			}
		}
		if m.Return.Kind() != types.KindVoid && !types.IsValue(m.Return) {
			return fmt.Errorf("%w: %s returns %s", ErrUnsupported, m.Name, m.Return)
		}
		for _, name := range m.LocalOrder {
			if !types.IsValue(m.Locals[name]) {
				return fmt.Errorf("%w: local %s of %s has type %s",
					ErrUnsupported, name, m.Name, m.Locals[name])
			}
		}
	}
	if table.Setup != nil && len(table.Setup.Params) > 0 {
		return fmt.Errorf("%w: constructor arguments", ErrUnsupported)
	}

	var err error
	ast.Walk(contract, func(n ast.Node) bool {
		if _, ok := n.(*ast.StrLit); ok && err == nil {
			err = fmt.Errorf("%w: string literals", ErrUnsupported)
		}
		return err == nil
	})
	return err
}

// wordType accepts value types and mapping chains ending in value types.
func wordType(t types.Type) bool {
	for {
		m, ok := t.(*types.Mapping)
		if !ok {
			return types.IsValue(t)
		}
		if !types.IsValue(m.Key) {
			return false
		}
		t = m.Value
	}
}

func (g *generator) emitDispatcher() error {
	g.line("if lt(calldatasize(), 4) { revert(0, 0) }")
	g.line("switch shr(224, calldataload(0))")

	for _, m := range g.table.OrderedMethods() {
		selector, err := abi.MethodSelector(m, naming.Camel)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		inputs := make([]abi.Param, len(m.Params))
		for i, p := range m.Params {
			canonical, err := abi.CanonicalType(p.Type)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrUnsupported, err)
			}
			inputs[i] = abi.Param{Name: p.Name, Type: canonical}
		}

		g.line("case 0x%s /* %s */ {", selector, abi.Signature(naming.Camel(m.Name), inputs))
		g.indent++
		if !m.Payable() {
			g.line("if callvalue() { revert(0, 0) }")
		}

		args := make([]string, len(m.Params))
		for i, p := range m.Params {
			args[i] = decodeArg(p.Type, i)
		}
		call := fmt.Sprintf("%s(%s)", fnName(m.Name), strings.Join(args, ", "))
		if m.Return.Kind() != types.KindVoid {
			g.line("mstore(0, %s)", call)
			g.line("return(0, 32)")
		} else {
			g.line("%s", call)
			g.line("stop()")
		}
		g.indent--
		g.line("}")
	}

	g.line("default { revert(0, 0) }")
	return nil
}

func decodeArg(t types.Type, i int) string {
	load := fmt.Sprintf("calldataload(%d)", 4+32*i)
	switch t.Kind() {
	case types.KindAddress:
		return fmt.Sprintf("cleanup_address(%s)", load)
	case types.KindBool:
		return fmt.Sprintf("cleanup_bool(%s)", load)
	default:
		return load
	}
}

func (g *generator) emitMethod(decl *ast.FuncDecl, m *analysis.Method) {
	if m == nil {
		return
	}

	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = localName(p.Name)
	}
	sig := fmt.Sprintf("function %s(%s)", fnName(m.Name), strings.Join(params, ", "))
	if m.Return.Kind() != types.KindVoid {
		sig += " -> ret"
	}

	g.line("%s {", sig)
	g.indent++
	for _, name := range m.LocalOrder {
		g.line("let %s := 0", localName(name))
	}
	g.emitBlockStmts(decl.Body, m, "ret")
	g.indent--
	g.line("}")
}

func (g *generator) emitBlockStmts(b *ast.Block, m *analysis.Method, retVar string) {
	if b == nil {
		return
	}
	for i, s := range b.Stmts {
		tail := m != nil && i == len(b.Stmts)-1 && m.Return.Kind() != types.KindVoid
		g.emitStmt(s, tail, retVar)
	}
}

func (g *generator) emitStmt(s ast.Stmt, tail bool, retVar string) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		switch st.Value.(type) {
		case *ast.MappingExpr, *ast.ArrayExpr:
			return // storage declaration only
		}
		g.emitAssign(st)
	case *ast.IfStmt:
		g.emitIf(st, retVar)
	case *ast.WhileStmt:
		g.line("for { } %s { } {", g.expr(st.Cond))
		g.indent++
		g.emitBlockStmts(st.Body, nil, retVar)
		g.indent--
		g.line("}")
	case *ast.ReturnStmt:
		if st.Value != nil && retVar != "" {
			g.line("%s := %s", retVar, g.expr(st.Value))
		}
		g.line("leave")
	case *ast.RequireStmt:
		g.line("if iszero(%s) {", g.expr(st.Cond))
		g.indent++
		g.emitRevert(st.Message)
		g.indent--
		g.line("}")
	case *ast.LogStmt:
		g.emitLog(st)
	case *ast.ExprStmt:
		if tail && g.table.TypeOf(st.X).Kind() != types.KindVoid {
			g.line("%s := %s", retVar, g.expr(st.X))
		} else if call, ok := st.X.(*ast.CallExpr); ok {
			g.emitCallStmt(call)
		}
	}
}

func (g *generator) emitAssign(st *ast.AssignStmt) {
	value := g.expr(st.Value)

	switch target := st.Target.(type) {
	case *ast.Ident:
		name := localName(target.Name)
		switch st.Op {
		case token.PLUS_ASSIGN:
			g.line("%s := checked_add(%s, %s)", name, name, value)
		case token.MINUS_ASSIGN:
			g.line("%s := checked_sub(%s, %s)", name, name, value)
		default:
			g.line("%s := %s", name, value)
		}
	case *ast.IVar, *ast.IndexExpr:
		slot := g.slotExpr(st.Target)
		switch st.Op {
		case token.PLUS_ASSIGN:
			g.line("sstore(%s, checked_add(sload(%s), %s))", slot, slot, value)
		case token.MINUS_ASSIGN:
			g.line("sstore(%s, checked_sub(sload(%s), %s))", slot, slot, value)
		default:
			g.line("sstore(%s, %s)", slot, value)
		}
	default:
		g.fail("cannot assign to this expression at %s", st.Pos())
	}
}

func (g *generator) emitIf(st *ast.IfStmt, retVar string) {
	if st.Else == nil || isNilElse(st.Else) {
		g.line("if %s {", g.expr(st.Cond))
		g.indent++
		g.emitBlockStmts(st.Then, nil, retVar)
		g.indent--
		g.line("}")
		return
	}

	// Yul has no else; lower to a switch on the condition
	g.line("switch %s", g.expr(st.Cond))
	g.line("case 0 {")
	g.indent++
	switch e := st.Else.(type) {
	case *ast.Block:
		g.emitBlockStmts(e, nil, retVar)
	case *ast.IfStmt:
		g.emitIf(e, retVar)
	}
	g.indent--
	g.line("}")
	g.line("default {")
	g.indent++
	g.emitBlockStmts(st.Then, nil, retVar)
	g.indent--
	g.line("}")
}

// emitRevert encodes the message as a standard Error(string) revert.
func (g *generator) emitRevert(msg string) {
	if msg == "" {
		g.line("revert(0, 0)")
		return
	}
	g.line("mstore(0, shl(224, 0x08c379a0))")
	g.line("mstore(4, 32)")
	g.line("mstore(36, %d)", len(msg))
	data := []byte(msg)
	for i := 0; i < len(data); i += 32 {
		chunk := make([]byte, 32)
		copy(chunk, data[i:])
		g.line("mstore(%d, 0x%x)", 68+i, chunk)
	}
	g.line("revert(0, %d)", 68+(len(data)+31)/32*32)
}

func (g *generator) emitLog(st *ast.LogStmt) {
	ev, ok := g.table.Events[st.Event]
	if !ok {
		g.fail("unknown event %s", st.Event)
		return
	}

	inputs := make([]abi.Param, len(ev.Fields))
	for i, f := range ev.Fields {
		canonical, err := abi.CanonicalType(f.Type)
		if err != nil {
			g.fail("event %s: %v", ev.Name, err)
			return
		}
		inputs[i] = abi.Param{Name: f.Name, Type: canonical}
	}
	topic := abi.EventTopic(abi.Signature(ev.Name, inputs))

	// stage args above the mapping_slot scratch words
	for i, a := range st.Args {
		g.line("mstore(%d, %s)", 128+32*i, g.expr(a))
	}
	g.line("log1(128, %d, 0x%s)", 32*len(st.Args), topic)
}

func (g *generator) emitCallStmt(call *ast.CallExpr) {
	if fun, ok := call.Fun.(*ast.SelectorExpr); ok && (fun.Sel == "transfer" || fun.Sel == "send") {
		if fun.Sel == "transfer" {
			g.line("transfer_eth(%s, %s)", g.expr(fun.X), g.expr(call.Args[0]))
		} else {
			g.line("pop(send_eth(%s, %s))", g.expr(fun.X), g.expr(call.Args[0]))
		}
		return
	}
	g.line("%s", g.expr(call))
}

// slotExpr renders the storage slot of an lvalue chain: a bare state
// variable is its layout index, a mapping element hashes key and slot.
func (g *generator) slotExpr(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.IVar:
		slot, ok := g.slots[e.Name]
		if !ok {
			g.fail("unknown state @%s", e.Name)
			return "0"
		}
		return fmt.Sprintf("%d", slot)
	case *ast.IndexExpr:
		return fmt.Sprintf("mapping_slot(%s, %s)", g.slotExpr(e.X), g.expr(e.Index))
	}
	g.fail("cannot derive a storage slot at %s", x.Pos())
	return "0"
}

func (g *generator) expr(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.IntLit:
		return e.Raw
	case *ast.BoolLit:
		if e.Value {
			return "1"
		}
		return "0"
	case *ast.Ident:
		return localName(e.Name)
	case *ast.IVar:
		return fmt.Sprintf("sload(%s)", g.slotExpr(e))
	case *ast.IndexExpr:
		return fmt.Sprintf("sload(%s)", g.slotExpr(e))
	case *ast.SelectorExpr:
		return g.selector(e)
	case *ast.CallExpr:
		return g.call(e)
	case *ast.BinaryExpr:
		return g.binary(e)
	case *ast.UnaryExpr:
		return fmt.Sprintf("iszero(%s)", g.expr(e.X))
	}
	g.fail("cannot emit expression at %s", x.Pos())
	return "0"
}

func (g *generator) selector(e *ast.SelectorExpr) string {
	if id, ok := e.X.(*ast.Ident); ok {
		switch id.Name {
		case "msg":
			switch e.Sel {
			case "sender":
				return "caller()"
			case "value":
				return "callvalue()"
			}
		case "block":
			switch e.Sel {
			case "timestamp":
				return "timestamp()"
			case "number":
				return "number()"
			}
		}
		if enum, found := g.table.Enums[id.Name]; found {
			ordinal, ok := enum.Ordinal(e.Sel)
			if !ok {
				g.fail("enum %s has no member %s", enum.Name, e.Sel)
				return "0"
			}
			return fmt.Sprintf("%d", ordinal)
		}
	}
	g.fail("cannot emit member access at %s", e.Pos())
	return "0"
}

func (g *generator) call(e *ast.CallExpr) string {
	switch fun := e.Fun.(type) {
	case *ast.Ident:
		if fun.Name == "Address" {
			return "0"
		}
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = g.expr(a)
		}
		return fmt.Sprintf("%s(%s)", fnName(fun.Name), strings.Join(args, ", "))
	case *ast.SelectorExpr:
		if fun.Sel == "send" {
			return fmt.Sprintf("send_eth(%s, %s)", g.expr(fun.X), g.expr(e.Args[0]))
		}
	}
	g.fail("cannot emit call at %s", e.Pos())
	return "0"
}

func (g *generator) binary(e *ast.BinaryExpr) string {
	x, y := g.expr(e.X), g.expr(e.Y)
	switch e.Op {
	case token.PLUS:
		return fmt.Sprintf("checked_add(%s, %s)", x, y)
	case token.MINUS:
		return fmt.Sprintf("checked_sub(%s, %s)", x, y)
	case token.STAR:
		return fmt.Sprintf("checked_mul(%s, %s)", x, y)
	case token.SLASH:
		return fmt.Sprintf("checked_div(%s, %s)", x, y)
	case token.PERCENT:
		return fmt.Sprintf("checked_mod(%s, %s)", x, y)
	case token.EQ:
		return fmt.Sprintf("eq(%s, %s)", x, y)
	case token.NEQ:
		return fmt.Sprintf("iszero(eq(%s, %s))", x, y)
	case token.LT:
		return fmt.Sprintf("lt(%s, %s)", x, y)
	case token.LTE:
		return fmt.Sprintf("iszero(gt(%s, %s))", x, y)
	case token.GT:
		return fmt.Sprintf("gt(%s, %s)", x, y)
	case token.GTE:
		return fmt.Sprintf("iszero(lt(%s, %s))", x, y)
	case token.AND:
		return fmt.Sprintf("and(%s, %s)", x, y)
	case token.OR:
		return fmt.Sprintf("or(%s, %s)", x, y)
	}
	g.fail("cannot emit operator %s", e.Op)
	return "0"
}

func (g *generator) emitHelpers() {
	g.line("")
	g.line("function cleanup_address(v) -> c {")
	g.line("    c := and(v, 0xffffffffffffffffffffffffffffffffffffffff)")
	g.line("}")
	g.line("function cleanup_bool(v) -> c {")
	g.line("    c := iszero(iszero(v))")
	g.line("}")
	g.line("function checked_add(a, b) -> c {")
	g.line("    c := add(a, b)")
	g.line("    if lt(c, a) { revert(0, 0) }")
	g.line("}")
	g.line("function checked_sub(a, b) -> c {")
	g.line("    if lt(a, b) { revert(0, 0) }")
	g.line("    c := sub(a, b)")
	g.line("}")
	g.line("function checked_mul(a, b) -> c {")
	g.line("    c := mul(a, b)")
	g.line("    if and(iszero(iszero(a)), iszero(eq(div(c, a), b))) { revert(0, 0) }")
	g.line("}")
	g.line("function checked_div(a, b) -> c {")
	g.line("    if iszero(b) { revert(0, 0) }")
	g.line("    c := div(a, b)")
	g.line("}")
	g.line("function checked_mod(a, b) -> c {")
	g.line("    if iszero(b) { revert(0, 0) }")
	g.line("    c := mod(a, b)")
	g.line("}")
	g.line("function mapping_slot(slot, key) -> s {")
	g.line("    mstore(0, key)")
	g.line("    mstore(32, slot)")
	g.line("    s := keccak256(0, 64)")
	g.line("}")
	g.line("function transfer_eth(to, amount) {")
	g.line("    if iszero(call(gas(), to, amount, 0, 0, 0, 0)) { revert(0, 0) }")
	g.line("}")
	g.line("function send_eth(to, amount) -> ok {")
	g.line("    ok := call(gas(), to, amount, 0, 0, 0, 0)")
	g.line("}")
}

func fnName(name string) string {
	return "fn_" + naming.Snake(name)
}

func localName(name string) string {
	return naming.Snake(name)
}

func isNilElse(n ast.Node) bool {
	if b, ok := n.(*ast.Block); ok {
		return b == nil
	}
	return n == nil
}
