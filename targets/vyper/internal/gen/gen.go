// Package gen emits Vyper ^0.3.10 source from a checked contract.
//
// The dialect maps closely onto Vyper: snake_case survives, require maps
// to assert, and Vyper checks arithmetic natively. The differences are
// lowered here: while loops become bounded for/break loops (Vyper only
// has bounded iteration), strings and byte arrays get fixed capacities,
// state variables gain a leading underscore so getters can keep the bare
// name, and mutated parameters are copied into locals because Vyper
// arguments are immutable.
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

const (
	stringCapacity = 256
	bytesCapacity  = 1024
	arrayCapacity  = 256
	loopBound      = 1024
)

// reserved lists Vyper keywords that cannot name parameters or locals;
// colliding names get a trailing underscore.
var reserved = map[string]bool{
	"from": true, "for": true, "in": true, "not": true, "and": true,
	"or": true, "def": true, "event": true, "enum": true, "struct": true,
	"range": true, "self": true, "send": true, "len": true, "empty": true,
	"concat": true, "log": true, "assert": true, "raise": true,
	"interface": true, "implements": true, "constant": true, "immutable": true,
}

// Emit renders the contract as a single Vyper source file.
func Emit(contract *ast.Contract, table *analysis.Table, version string) (string, error) {
	g := &generator{table: table, called: calledMethods(table)}

	g.line("# @version %s", version)
	g.line("")

	if usesWhile(contract) {
		g.line("MAX_LOOP_ITERATIONS: constant(uint256) = %d", loopBound)
		g.line("")
	}

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

	if g.err != nil {
		return "", g.err
	}
	return g.buf.String(), nil
}

type generator struct {
	table   *analysis.Table
	called  map[string]bool
	buf     strings.Builder
	indent  int
	loopSeq int
	dropSeq int
	err     error
}

// calledMethods collects the methods invoked from other methods or the
// constructor. Vyper separates external from internal functions, so these
// are emitted as @internal implementations with @external wrappers.
func calledMethods(table *analysis.Table) map[string]bool {
	out := make(map[string]bool)
	for _, m := range table.OrderedMethods() {
		for _, callee := range m.Calls {
			out[callee] = true
		}
	}
	if table.Setup != nil {
		for _, callee := range table.Setup.Calls {
			out[callee] = true
		}
	}
	return out
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
		g.line("enum %s:", naming.Pascal(enum.Name))
		g.indent++
		for _, m := range enum.Members {
			g.line("%s", enumMember(m))
		}
		g.indent--
		g.line("")
	}
}

func (g *generator) emitStructs() {
	for _, name := range g.table.StructOrder {
		st := g.table.Structs[name]
		g.line("struct %s:", naming.Pascal(st.Name))
		g.indent++
		for _, f := range st.Fields {
			g.line("%s: %s", localName(f.Name), g.vyType(f.Type))
		}
		g.indent--
		g.line("")
	}
}

func (g *generator) emitEvents() {
	for _, ev := range g.table.OrderedEvents() {
		g.line("event %s:", naming.Pascal(ev.Name))
		g.indent++
		for _, f := range ev.Fields {
			g.line("%s: %s", localName(f.Name), g.vyType(f.Type))
		}
		g.indent--
		g.line("")
	}
}

func (g *generator) emitState() {
	for _, sv := range g.table.OrderedState() {
		g.line("%s: %s", stateName(sv.Name), g.vyType(sv.Type))
	}
	if len(g.table.StateOrder) > 0 {
		g.line("")
	}
}

func (g *generator) emitConstructor(decl *ast.FuncDecl, m *analysis.Method) {
	g.line("@external")
	if m.ReadsValue {
		g.line("@payable")
	}
	g.line("def __init__(%s):", g.paramList(decl, m))
	g.indent++
	g.emitPrologue(decl, m)
	g.emitBody(decl.Body, nil)
	g.indent--
	g.line("")
}

func (g *generator) emitMethod(decl *ast.FuncDecl, m *analysis.Method) {
	if m == nil {
		return
	}

	if g.called[m.Name] {
		g.emitImplementation(decl, m, "@internal", "_"+naming.Snake(m.Name))
		g.emitWrapper(m)
		return
	}

	g.emitImplementation(decl, m, "@external", naming.Snake(m.Name))
}

func (g *generator) emitImplementation(decl *ast.FuncDecl, m *analysis.Method, visibility, name string) {
	g.line("%s", visibility)
	switch {
	case m.Payable() && visibility == "@external":
		g.line("@payable")
	case m.ReadOnly():
		g.line("@view")
	}

	sig := fmt.Sprintf("def %s(%s)", name, g.paramList(decl, m))
	if m.Return.Kind() != types.KindVoid {
		sig += " -> " + g.vyType(m.Return)
	}
	g.line("%s:", sig)

	g.indent++
	g.emitPrologue(decl, m)
	g.emitBody(decl.Body, m)
	if bodyEmpty(decl.Body) && len(m.LocalOrder) == 0 && !hasMutatedParams(decl) {
		g.line("pass")
	}
	g.indent--
	g.line("")
}

// emitWrapper exposes an internally-called method to outside callers.
func (g *generator) emitWrapper(m *analysis.Method) {
	g.line("@external")
	switch {
	case m.Payable():
		g.line("@payable")
	case m.ReadOnly():
		g.line("@view")
	}

	params := make([]string, len(m.Params))
	args := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = localName(p.Name) + ": " + g.vyType(p.Type)
		args[i] = localName(p.Name)
	}

	sig := fmt.Sprintf("def %s(%s)", naming.Snake(m.Name), strings.Join(params, ", "))
	if m.Return.Kind() != types.KindVoid {
		sig += " -> " + g.vyType(m.Return)
	}
	g.line("%s:", sig)

	g.indent++
	call := fmt.Sprintf("self._%s(%s)", naming.Snake(m.Name), strings.Join(args, ", "))
	if m.Return.Kind() != types.KindVoid {
		g.line("return %s", call)
	} else {
		g.line("%s", call)
	}
	g.indent--
	g.line("")
}

// emitPrologue declares every local up front with its zero value, and
// copies mutated parameters into same-named locals.
func (g *generator) emitPrologue(decl *ast.FuncDecl, m *analysis.Method) {
	for _, p := range m.Params {
		if paramMutated(decl, p.Name) {
			g.line("%s: %s = %s", localName(p.Name), g.vyType(p.Type), localName(p.Name)+"_in")
		}
	}
	for _, name := range m.LocalOrder {
		t := m.Locals[name]
		g.line("%s: %s = empty(%s)", localName(name), g.vyType(t), g.vyType(t))
	}
}

func (g *generator) emitBody(b *ast.Block, m *analysis.Method) {
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
		switch st.Value.(type) {
		case *ast.MappingExpr, *ast.ArrayExpr:
			return // storage declaration, no runtime effect
		}
		g.line("%s %s %s", g.expr(st.Target), assignOp(st.Op), g.expr(st.Value))
	case *ast.IfStmt:
		g.emitIf(st, "if")
	case *ast.WhileStmt:
		loop := fmt.Sprintf("_loop_%d", g.loopSeq)
		g.loopSeq++
		g.line("for %s in range(MAX_LOOP_ITERATIONS):", loop)
		g.indent++
		g.line("if not (%s):", g.expr(st.Cond))
		g.indent++
		g.line("break")
		g.indent--
		g.emitBody(st.Body, nil)
		g.indent--
	case *ast.ReturnStmt:
		if st.Value == nil {
			g.line("return")
		} else {
			g.line("return %s", g.expr(st.Value))
		}
	case *ast.RequireStmt:
		if st.Message != "" {
			g.line("assert %s, %q", g.expr(st.Cond), st.Message)
		} else {
			g.line("assert %s", g.expr(st.Cond))
		}
	case *ast.LogStmt:
		args := make([]string, len(st.Args))
		for i, a := range st.Args {
			args[i] = g.expr(a)
		}
		g.line("log %s(%s)", naming.Pascal(st.Event), strings.Join(args, ", "))
	case *ast.ExprStmt:
		t := g.table.TypeOf(st.X)
		switch {
		case tail && t.Kind() != types.KindVoid:
			g.line("return %s", g.expr(st.X))
		case t.Kind() != types.KindVoid && t.Kind() != types.KindInvalid:
			// Vyper rejects bare expressions that discard a result
			g.line("_unused_%d: %s = %s", g.dropSeq, g.vyType(t), g.expr(st.X))
			g.dropSeq++
		default:
			g.line("%s", g.expr(st.X))
		}
	}
}

func (g *generator) emitIf(st *ast.IfStmt, keyword string) {
	g.line("%s %s:", keyword, g.expr(st.Cond))
	g.indent++
	g.emitBody(st.Then, nil)
	if bodyEmpty(st.Then) {
		g.line("pass")
	}
	g.indent--

	switch e := st.Else.(type) {
	case *ast.IfStmt:
		g.emitIf(e, "elif")
	case *ast.Block:
		g.line("else:")
		g.indent++
		g.emitBody(e, nil)
		if bodyEmpty(e) {
			g.line("pass")
		}
		g.indent--
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
			return "True"
		}
		return "False"
	case *ast.Ident:
		return localName(e.Name)
	case *ast.IVar:
		return "self." + stateName(e.Name)
	case *ast.SelectorExpr:
		return g.selector(e)
	case *ast.IndexExpr:
		return g.expr(e.X) + "[" + g.expr(e.Index) + "]"
	case *ast.CallExpr:
		return g.call(e)
	case *ast.BinaryExpr:
		return g.binary(e)
	case *ast.UnaryExpr:
		return "not " + g.operand(e.X)
	}
	g.fail("cannot emit expression at %s", x.Pos())
	return "# unsupported"
}

func (g *generator) selector(e *ast.SelectorExpr) string {
	if id, ok := e.X.(*ast.Ident); ok {
		switch id.Name {
		case "msg", "block":
			return id.Name + "." + e.Sel
		}
		if enum, found := g.table.Enums[id.Name]; found {
			return naming.Pascal(enum.Name) + "." + enumMember(e.Sel)
		}
	}

	switch g.table.TypeOf(e.X).Kind() {
	case types.KindArray:
		if e.Sel == "size" {
			return "len(" + g.expr(e.X) + ")"
		}
	case types.KindString:
		if e.Sel == "length" {
			return "len(" + g.expr(e.X) + ")"
		}
	}
	return g.expr(e.X) + "." + localName(e.Sel)
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
			return "empty(address)"
		}
		return "self._" + naming.Snake(fun.Name) + "(" + joined + ")"
	case *ast.SelectorExpr:
		switch fun.Sel {
		case "transfer":
			return "send(" + g.expr(fun.X) + ", " + joined + ")"
		case "send":
			// send() is a reverting statement built-in; only raw_call
			// reports failure as a Bool result
			return "raw_call(" + g.expr(fun.X) + `, b"", value=` + joined + ", revert_on_failure=False)"
		case "push":
			return g.expr(fun.X) + ".append(" + joined + ")"
		}
	}
	g.fail("cannot emit call at %s", e.Pos())
	return "# unsupported"
}

func (g *generator) binary(e *ast.BinaryExpr) string {
	x, y := g.operand(e.X), g.operand(e.Y)

	if g.table.TypeOf(e.X).Kind() == types.KindString && e.Op == token.PLUS {
		return "concat(" + x + ", " + y + ")"
	}

	return x + " " + vyOp(e.Op) + " " + y
}

func (g *generator) operand(x ast.Expr) string {
	switch x.(type) {
	case *ast.BinaryExpr, *ast.UnaryExpr:
		return "(" + g.expr(x) + ")"
	}
	return g.expr(x)
}

func vyOp(op token.Kind) string {
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
		return "and"
	case token.OR:
		return "or"
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

func (g *generator) vyType(t types.Type) string {
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
			return fmt.Sprintf("String[%d]", stringCapacity)
		case types.KindBytes:
			return fmt.Sprintf("Bytes[%d]", bytesCapacity)
		}
	case *types.Enum:
		return naming.Pascal(tt.Name)
	case *types.Struct:
		return naming.Pascal(tt.Name)
	case *types.Mapping:
		return "HashMap[" + g.vyType(tt.Key) + ", " + g.vyType(tt.Value) + "]"
	case *types.Array:
		if tt.Dynamic() {
			return fmt.Sprintf("DynArray[%s, %d]", g.vyType(tt.Elem), arrayCapacity)
		}
		return fmt.Sprintf("%s[%d]", g.vyType(tt.Elem), tt.Len)
	}
	g.fail("type %s has no Vyper rendering", t)
	return "# unsupported"
}

func (g *generator) paramList(decl *ast.FuncDecl, m *analysis.Method) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		name := localName(p.Name)
		if paramMutated(decl, p.Name) {
			name += "_in"
		}
		parts[i] = name + ": " + g.vyType(p.Type)
	}
	return strings.Join(parts, ", ")
}

// paramMutated reports whether the body assigns to a parameter; Vyper
// arguments are immutable, so those get copied into a local.
func paramMutated(decl *ast.FuncDecl, name string) bool {
	found := false
	ast.Walk(decl.Body, func(n ast.Node) bool {
		if as, ok := n.(*ast.AssignStmt); ok {
			if id, isIdent := as.Target.(*ast.Ident); isIdent && id.Name == name {
				found = true
			}
		}
		return !found
	})
	return found
}

func hasMutatedParams(decl *ast.FuncDecl) bool {
	for _, p := range decl.Params {
		if paramMutated(decl, p.Name) {
			return true
		}
	}
	return false
}

func usesWhile(contract *ast.Contract) bool {
	found := false
	ast.Walk(contract, func(n ast.Node) bool {
		if _, ok := n.(*ast.WhileStmt); ok {
			found = true
		}
		return !found
	})
	return found
}

func bodyEmpty(b *ast.Block) bool {
	return b == nil || len(b.Stmts) == 0
}

func enumMember(name string) string {
	return strings.ToUpper(naming.Snake(name))
}

func stateName(name string) string {
	return "_" + naming.Snake(name)
}

func localName(name string) string {
	name = naming.Snake(name)
	if reserved[name] {
		return name + "_"
	}
	return name
}
