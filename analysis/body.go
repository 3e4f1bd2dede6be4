package analysis

import (
	"math/big"

	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
	"github.com/s6ruby/srubyc/lang/types"
)

// maxWord is 2^256, the exclusive upper bound of an Integer literal.
var maxWord = new(big.Int).Lsh(big.NewInt(1), 256)

// scope tracks the local environment while one method body is checked:
// variable types (method-wide, Ruby scoping) and which names are
// definitely assigned at the current point.
type scope struct {
	r        *run
	m        *Method
	inSetup  bool
	vars     map[string]types.Type
	assigned map[string]bool
	returns  []retInfo
	tailType map[*ast.ExprStmt]types.Type
}

type retInfo struct {
	t   types.Type
	pos token.Pos
}

func newScope(r *run, m *Method, inSetup bool) *scope {
	sc := &scope{
		r:        r,
		m:        m,
		inSetup:  inSetup,
		vars:     make(map[string]types.Type),
		assigned: make(map[string]bool),
		tailType: make(map[*ast.ExprStmt]types.Type),
	}
	for _, p := range m.Params {
		sc.vars[p.Name] = p.Type
		sc.assigned[p.Name] = true
	}
	return sc
}

// checkMethodBody type-checks one method and infers its return type from
// explicit returns and the Ruby-style tail expression.
func (r *run) checkMethodBody(m *Method) {
	if m == nil {
		return
	}
	sc := newScope(r, m, false)
	sc.checkBlock(m.Decl.Body)

	candidates := append([]retInfo(nil), sc.returns...)
	if tail := tailExprStmt(m.Decl.Body); tail != nil {
		if t, ok := sc.tailType[tail]; ok && t.Kind() != types.KindVoid {
			candidates = append(candidates, retInfo{t: t, pos: tail.Pos()})
		}
	}

	m.Return = types.Void
	for _, cand := range candidates {
		if cand.t.Kind() == types.KindVoid {
			continue
		}
		if m.Return.Kind() == types.KindVoid {
			m.Return = cand.t
			continue
		}
		if !m.Return.Equal(cand.t) {
			r.errorf(cand.pos, CodeReturn,
				"method %s returns %s here but %s elsewhere", m.Name, cand.t, m.Return)
		}
	}

	if m.Return.Kind() != types.KindVoid {
		for _, cand := range sc.returns {
			if cand.t.Kind() == types.KindVoid {
				r.errorf(cand.pos, CodeReturn,
					"method %s must return a %s value on every path", m.Name, m.Return)
			}
		}
	}
}

// tailExprStmt returns the trailing expression statement of a body, which
// doubles as the implicit return value.
func tailExprStmt(b *ast.Block) *ast.ExprStmt {
	if b == nil || len(b.Stmts) == 0 {
		return nil
	}
	tail, ok := b.Stmts[len(b.Stmts)-1].(*ast.ExprStmt)
	if !ok {
		return nil
	}
	return tail
}

func (sc *scope) checkBlock(b *ast.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		sc.checkStmt(s)
	}
}

func (sc *scope) checkStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		sc.checkAssign(st)
	case *ast.IfStmt:
		sc.checkIf(st)
	case *ast.WhileStmt:
		sc.expectBool(st.Cond, "while condition")
		before := cloneSet(sc.assigned)
		sc.checkBlock(st.Body)
		// loop bodies may not run at all
		sc.assigned = before
	case *ast.ReturnStmt:
		if sc.inSetup {
			sc.r.errorf(st.Pos(), CodeReturn, "setup cannot return; it runs once at deployment")
			if st.Value != nil {
				sc.typeOf(st.Value)
			}
			return
		}
		t := types.Type(types.Void)
		if st.Value != nil {
			t = sc.typeOf(st.Value)
		}
		sc.returns = append(sc.returns, retInfo{t: t, pos: st.Pos()})
	case *ast.RequireStmt:
		sc.expectBool(st.Cond, "require condition")
	case *ast.LogStmt:
		sc.checkLog(st)
	case *ast.ExprStmt:
		sc.tailType[st] = sc.typeOf(st.X)
	}
}

func (sc *scope) checkIf(st *ast.IfStmt) {
	sc.expectBool(st.Cond, "if condition")

	before := cloneSet(sc.assigned)

	sc.assigned = cloneSet(before)
	sc.checkBlock(st.Then)
	thenSet := sc.assigned

	elseSet := before
	switch e := st.Else.(type) {
	case *ast.Block:
		sc.assigned = cloneSet(before)
		sc.checkBlock(e)
		elseSet = sc.assigned
	case *ast.IfStmt:
		sc.assigned = cloneSet(before)
		sc.checkIf(e)
		elseSet = sc.assigned
	}

	// a name is definitely assigned after the if only when every branch
	// assigns it
	sc.assigned = cloneSet(before)
	for name := range thenSet {
		if elseSet[name] {
			sc.assigned[name] = true
		}
	}
}

func (sc *scope) checkAssign(st *ast.AssignStmt) {
	valueType := sc.typeOf(st.Value)

	switch target := st.Target.(type) {
	case *ast.Ident:
		sc.assignLocal(st, target, valueType)
	case *ast.IVar:
		sc.assignState(st, target, valueType)
	default:
		// element or field assignment: the target is typed like a read
		targetType := sc.typeOf(st.Target)
		sc.compatibleAssign(st, targetType, valueType)
		if rootIsState(st.Target) {
			sc.markStateWrite()
		} else if root, ok := rootIdent(st.Target); ok {
			sc.r.errorf(st.Pos(), CodeType,
				"cannot write through %s: locals hold copies, the write would not reach state", root)
		}
	}
}

func (sc *scope) assignLocal(st *ast.AssignStmt, target *ast.Ident, valueType types.Type) {
	existing, declared := sc.vars[target.Name]

	if st.Op != token.ASSIGN {
		if !declared {
			sc.r.errorf(target.Pos(), CodeUnassigned,
				"local %s is modified before it is assigned", target.Name)
			return
		}
		if !sc.assigned[target.Name] {
			sc.r.errorf(target.Pos(), CodeUnassigned,
				"local %s may be used before assignment", target.Name)
		}
		sc.compatibleCompound(st, existing, valueType)
		return
	}

	if declared {
		if !existing.Equal(valueType) && valueType.Kind() != types.KindInvalid {
			sc.r.errorf(st.Pos(), CodeType,
				"cannot assign %s to local %s of type %s", valueType, target.Name, existing)
		}
	} else {
		if valueType.Kind() == types.KindVoid {
			sc.r.errorf(st.Pos(), CodeType,
				"cannot assign a void expression to %s", target.Name)
			valueType = types.Integer
		}
		sc.vars[target.Name] = valueType
		sc.m.declareLocal(target.Name, valueType)
	}
	sc.assigned[target.Name] = true
}

func (sc *scope) assignState(st *ast.AssignStmt, target *ast.IVar, valueType types.Type) {
	sv, ok := sc.r.table.State[target.Name]
	if !ok {
		if sc.inSetup {
			sc.r.errorf(target.Pos(), CodeState,
				"state @%s must be initialized by an unconditional assignment in setup", target.Name)
		} else {
			sc.r.errorf(target.Pos(), CodeState,
				"state @%s is not initialized in setup", target.Name)
		}
		return
	}

	if st.Op != token.ASSIGN {
		sc.compatibleCompound(st, sv.Type, valueType)
	} else {
		sc.compatibleAssign(st, sv.Type, valueType)
	}
	sc.markStateWrite()
}

func (sc *scope) markStateWrite() {
	if !sc.inSetup {
		sc.m.WritesState = true
	}
}

func (sc *scope) compatibleAssign(st *ast.AssignStmt, targetType, valueType types.Type) {
	if st.Op != token.ASSIGN {
		sc.compatibleCompound(st, targetType, valueType)
		return
	}
	if targetType.Kind() == types.KindInvalid || valueType.Kind() == types.KindInvalid {
		return
	}
	if !targetType.Equal(valueType) {
		sc.r.errorf(st.Pos(), CodeType, "cannot assign %s to %s", valueType, targetType)
	}
}

func (sc *scope) compatibleCompound(st *ast.AssignStmt, targetType, valueType types.Type) {
	if targetType.Kind() != types.KindInteger {
		sc.r.errorf(st.Pos(), CodeType,
			"%s requires an Integer target, got %s", st.Op, targetType)
		return
	}
	if valueType.Kind() != types.KindInteger && valueType.Kind() != types.KindInvalid {
		sc.r.errorf(st.Pos(), CodeType,
			"%s requires an Integer value, got %s", st.Op, valueType)
	}
}

func (sc *scope) checkLog(st *ast.LogStmt) {
	ev, ok := sc.r.table.Events[st.Event]
	if !ok {
		sc.r.errorf(st.Pos(), CodeUndefined, "unknown event %s", st.Event)
		for _, a := range st.Args {
			sc.typeOf(a)
		}
		return
	}
	if len(st.Args) != len(ev.Fields) {
		sc.r.errorf(st.Pos(), CodeArity,
			"event %s takes %d arguments, got %d", ev.Name, len(ev.Fields), len(st.Args))
	}
	for i, a := range st.Args {
		at := sc.typeOf(a)
		if i < len(ev.Fields) && !at.Equal(ev.Fields[i].Type) && at.Kind() != types.KindInvalid {
			sc.r.errorf(a.Pos(), CodeType,
				"event %s argument %s expects %s, got %s", ev.Name, ev.Fields[i].Name, ev.Fields[i].Type, at)
		}
	}
	sc.m.Emits = true
}

func (sc *scope) expectBool(x ast.Expr, what string) {
	t := sc.typeOf(x)
	if t.Kind() != types.KindBool && t.Kind() != types.KindInvalid {
		sc.r.errorf(x.Pos(), CodeType, "%s must be Bool, got %s", what, t)
	}
}

// invalid suppresses cascading errors on already-diagnosed expressions.
var invalid = types.Invalid

// typeOf computes and records the type of an expression; the recorded
// types feed the emitters.
func (sc *scope) typeOf(x ast.Expr) types.Type {
	t := sc.typeOfExpr(x)
	sc.r.table.Types[x] = t
	return t
}

func (sc *scope) typeOfExpr(x ast.Expr) types.Type {
	switch e := x.(type) {
	case *ast.IntLit:
		if e.Value.Cmp(maxWord) >= 0 {
			sc.r.errorf(e.Pos(), CodeOverflowLit,
				"integer literal does not fit 256 bits")
		}
		return types.Integer
	case *ast.StrLit:
		return types.String
	case *ast.BoolLit:
		return types.Bool
	case *ast.Ident:
		return sc.typeOfIdent(e)
	case *ast.IVar:
		sv, ok := sc.r.table.State[e.Name]
		if !ok {
			sc.r.errorf(e.Pos(), CodeState, "state @%s is not initialized in setup", e.Name)
			return invalid
		}
		if !sc.inSetup {
			sc.m.ReadsState = true
		}
		return sv.Type
	case *ast.SelectorExpr:
		return sc.typeOfSelector(e)
	case *ast.IndexExpr:
		return sc.typeOfIndex(e)
	case *ast.CallExpr:
		return sc.typeOfCall(e)
	case *ast.BinaryExpr:
		return sc.typeOfBinary(e)
	case *ast.UnaryExpr:
		return sc.typeOfUnary(e)
	case *ast.MappingExpr, *ast.ArrayExpr:
		t, diag := sc.r.resolveTypeRef(x)
		if diag != nil {
			sc.r.diags = append(sc.r.diags, *diag)
			return invalid
		}
		if !sc.inSetup {
			sc.r.errorf(x.Pos(), CodeType,
				"%s examples may only initialize state in setup", t)
			return invalid
		}
		return t
	case *ast.TypeName:
		sc.r.errorf(e.Pos(), CodeType, "type %s cannot be used as a value", e.Name)
		return invalid
	}
	return invalid
}

func (sc *scope) typeOfIdent(e *ast.Ident) types.Type {
	if t, ok := sc.vars[e.Name]; ok {
		if !sc.assigned[e.Name] {
			sc.r.errorf(e.Pos(), CodeUnassigned,
				"local %s may be used before assignment", e.Name)
		}
		return t
	}
	switch e.Name {
	case "msg", "block":
		sc.r.errorf(e.Pos(), CodeType, "'%s' cannot be used as a value", e.Name)
		return invalid
	}
	if _, ok := sc.r.table.Enums[e.Name]; ok {
		sc.r.errorf(e.Pos(), CodeType, "enum %s cannot be used as a value; pick a member", e.Name)
		return invalid
	}
	if _, ok := sc.r.table.Methods[e.Name]; ok {
		sc.r.errorf(e.Pos(), CodeUndefined,
			"%s is a method; method calls need parentheses", e.Name)
		return invalid
	}
	sc.r.errorf(e.Pos(), CodeUndefined, "undefined name %s", e.Name)
	return invalid
}

func (sc *scope) typeOfSelector(e *ast.SelectorExpr) types.Type {
	if id, ok := e.X.(*ast.Ident); ok {
		if _, isLocal := sc.vars[id.Name]; !isLocal {
			switch id.Name {
			case "msg":
				switch e.Sel {
				case "sender":
					return types.Address
				case "value":
					sc.m.ReadsValue = true
					return types.Integer
				}
				sc.r.errorf(e.Pos(), CodeUndefined, "msg has no member %s", e.Sel)
				return invalid
			case "block":
				switch e.Sel {
				case "timestamp", "number":
					return types.Integer
				}
				sc.r.errorf(e.Pos(), CodeUndefined, "block has no member %s", e.Sel)
				return invalid
			}
			if enum, found := sc.r.table.Enums[id.Name]; found {
				if _, ok := enum.Ordinal(e.Sel); !ok {
					sc.r.errorf(e.Pos(), CodeUndefined, "enum %s has no member %s", enum.Name, e.Sel)
					return invalid
				}
				return enum
			}
		}
	}

	xt := sc.typeOf(e.X)
	switch t := xt.(type) {
	case *types.Struct:
		if f, ok := t.Field(e.Sel); ok {
			return f.Type
		}
		sc.r.errorf(e.Pos(), CodeUndefined, "struct %s has no field %s", t.Name, e.Sel)
		return invalid
	case *types.Array:
		if e.Sel == "size" {
			return types.Integer
		}
	case *types.Primitive:
		if t == invalid {
			return invalid
		}
		if t.Kind() == types.KindString && e.Sel == "length" {
			return types.Integer
		}
	}
	sc.r.errorf(e.Pos(), CodeUndefined, "type %s has no member %s", xt, e.Sel)
	return invalid
}

func (sc *scope) typeOfIndex(e *ast.IndexExpr) types.Type {
	xt := sc.typeOf(e.X)
	it := sc.typeOf(e.Index)
	switch t := xt.(type) {
	case *types.Mapping:
		if !it.Equal(t.Key) && it.Kind() != types.KindInvalid {
			sc.r.errorf(e.Index.Pos(), CodeType,
				"mapping key must be %s, got %s", t.Key, it)
		}
		return t.Value
	case *types.Array:
		if it.Kind() != types.KindInteger && it.Kind() != types.KindInvalid {
			sc.r.errorf(e.Index.Pos(), CodeType, "array index must be Integer, got %s", it)
		}
		return t.Elem
	}
	if xt.Kind() != types.KindInvalid {
		sc.r.errorf(e.Pos(), CodeType, "%s cannot be indexed", xt)
	}
	return invalid
}

func (sc *scope) typeOfCall(e *ast.CallExpr) types.Type {
	switch fun := e.Fun.(type) {
	case *ast.Ident:
		switch fun.Name {
		case "Address":
			if len(e.Args) != 1 {
				sc.r.errorf(e.Pos(), CodeArity, "Address takes exactly one argument")
				return types.Address
			}
			if lit, ok := e.Args[0].(*ast.IntLit); !ok || lit.Value.Sign() != 0 {
				sc.r.errorf(e.Pos(), CodeType, "the only address literal is Address(0)")
			}
			return types.Address
		case "Bytes":
			if len(e.Args) != 0 {
				sc.r.errorf(e.Pos(), CodeArity, "Bytes takes no arguments")
			}
			return types.Bytes
		}
		return sc.typeOfMethodCall(e, fun)
	case *ast.SelectorExpr:
		return sc.typeOfBuiltinCall(e, fun)
	}
	sc.r.errorf(e.Pos(), CodeType, "this expression is not callable")
	return invalid
}

func (sc *scope) typeOfMethodCall(e *ast.CallExpr, fun *ast.Ident) types.Type {
	callee, ok := sc.r.table.Methods[fun.Name]
	if !ok {
		sc.r.errorf(fun.Pos(), CodeUndefined, "undefined method %s", fun.Name)
		for _, a := range e.Args {
			sc.typeOf(a)
		}
		return invalid
	}

	if len(e.Args) != len(callee.Params) {
		sc.r.errorf(e.Pos(), CodeArity,
			"%s takes %d arguments, got %d", callee.Name, len(callee.Params), len(e.Args))
	}
	for i, a := range e.Args {
		at := sc.typeOf(a)
		if i < len(callee.Params) && !at.Equal(callee.Params[i].Type) && at.Kind() != types.KindInvalid {
			sc.r.errorf(a.Pos(), CodeType,
				"%s argument %s expects %s, got %s", callee.Name, callee.Params[i].Name, callee.Params[i].Type, at)
		}
	}

	sc.m.addCall(callee.Name)
	// callee effects surface in the caller
	if callee.WritesState {
		sc.m.WritesState = true
	}
	if callee.ReadsState && !sc.inSetup {
		sc.m.ReadsState = true
	}
	if callee.Emits {
		sc.m.Emits = true
	}
	if callee.Sends {
		sc.m.Sends = true
	}
	if callee.ReadsValue {
		sc.m.ReadsValue = true
	}
	return callee.Return
}

func (sc *scope) typeOfBuiltinCall(e *ast.CallExpr, fun *ast.SelectorExpr) types.Type {
	switch fun.Sel {
	case "transfer", "send":
		xt := sc.typeOf(fun.X)
		if xt.Kind() != types.KindAddress && xt.Kind() != types.KindInvalid {
			sc.r.errorf(fun.Pos(), CodeType, "%s is only available on Address, got %s", fun.Sel, xt)
		}
		if len(e.Args) != 1 {
			sc.r.errorf(e.Pos(), CodeArity, "%s takes exactly one Integer amount", fun.Sel)
		} else if at := sc.typeOf(e.Args[0]); at.Kind() != types.KindInteger && at.Kind() != types.KindInvalid {
			sc.r.errorf(e.Args[0].Pos(), CodeType, "%s amount must be Integer, got %s", fun.Sel, at)
		}
		sc.m.Sends = true
		if fun.Sel == "send" {
			return types.Bool
		}
		return types.Void
	case "push":
		xt := sc.typeOf(fun.X)
		arr, ok := xt.(*types.Array)
		if !ok {
			if xt.Kind() != types.KindInvalid {
				sc.r.errorf(fun.Pos(), CodeType, "push is only available on arrays, got %s", xt)
			}
			return invalid
		}
		if !arr.Dynamic() {
			sc.r.errorf(fun.Pos(), CodeType, "push is only available on dynamic arrays")
		}
		if len(e.Args) != 1 {
			sc.r.errorf(e.Pos(), CodeArity, "push takes exactly one element")
		} else if at := sc.typeOf(e.Args[0]); !at.Equal(arr.Elem) && at.Kind() != types.KindInvalid {
			sc.r.errorf(e.Args[0].Pos(), CodeType, "push expects %s, got %s", arr.Elem, at)
		}
		if rootIsState(fun.X) {
			sc.markStateWrite()
		} else if root, ok := rootIdent(fun.X); ok {
			sc.r.errorf(fun.Pos(), CodeType,
				"cannot push through %s: locals hold copies, the element would not reach state", root)
		}
		return types.Void
	}
	sc.r.errorf(fun.Pos(), CodeUndefined, "unknown method .%s", fun.Sel)
	return invalid
}

func (sc *scope) typeOfBinary(e *ast.BinaryExpr) types.Type {
	xt := sc.typeOf(e.X)
	yt := sc.typeOf(e.Y)
	if xt.Kind() == types.KindInvalid || yt.Kind() == types.KindInvalid {
		return invalid
	}

	switch e.Op {
	case token.PLUS:
		if xt.Kind() == types.KindString && yt.Kind() == types.KindString {
			return types.String
		}
		fallthrough
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		if xt.Kind() == types.KindInteger && yt.Kind() == types.KindInteger {
			return types.Integer
		}
		sc.r.errorf(e.Pos(), CodeType, "%s is not defined for %s and %s", e.Op, xt, yt)
		return invalid
	case token.LT, token.LTE, token.GT, token.GTE:
		if xt.Kind() == types.KindInteger && yt.Kind() == types.KindInteger {
			return types.Bool
		}
		sc.r.errorf(e.Pos(), CodeType, "%s compares Integers, got %s and %s", e.Op, xt, yt)
		return types.Bool
	case token.EQ, token.NEQ:
		if !xt.Equal(yt) {
			sc.r.errorf(e.Pos(), CodeType, "cannot compare %s with %s", xt, yt)
		}
		return types.Bool
	case token.AND, token.OR:
		if xt.Kind() != types.KindBool || yt.Kind() != types.KindBool {
			sc.r.errorf(e.Pos(), CodeType, "%s requires Bool operands, got %s and %s", e.Op, xt, yt)
		}
		return types.Bool
	}
	return invalid
}

func (sc *scope) typeOfUnary(e *ast.UnaryExpr) types.Type {
	xt := sc.typeOf(e.X)
	switch e.Op {
	case token.NOT:
		if xt.Kind() != types.KindBool && xt.Kind() != types.KindInvalid {
			sc.r.errorf(e.Pos(), CodeType, "! requires a Bool operand, got %s", xt)
		}
		return types.Bool
	case token.MINUS:
		sc.r.errorf(e.Pos(), CodeNegative,
			"negative values are not supported: Integer is unsigned and arithmetic is checked")
		return types.Integer
	}
	return invalid
}

// rootIdent returns the local name an lvalue chain bottoms out at.
func rootIdent(x ast.Expr) (string, bool) {
	for {
		switch t := x.(type) {
		case *ast.Ident:
			return t.Name, true
		case *ast.IndexExpr:
			x = t.X
		case *ast.SelectorExpr:
			x = t.X
		default:
			return "", false
		}
	}
}

// rootIsState reports whether an lvalue chain bottoms out at a state
// variable.
func rootIsState(x ast.Expr) bool {
	for {
		switch t := x.(type) {
		case *ast.IVar:
			return true
		case *ast.IndexExpr:
			x = t.X
		case *ast.SelectorExpr:
			x = t.X
		default:
			return false
		}
	}
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
