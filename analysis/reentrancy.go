package analysis

import (
	"github.com/s6ruby/srubyc/lang/ast"
)

// checkReentrancy enforces the checks-effects-interactions ordering: once
// a method has moved value (.transfer or .send, directly or through a
// callee), it may not write state again. A send inside a loop is rejected
// outright since each iteration would interact after the previous one's
// effects.
func (r *run) checkReentrancy() {
	for _, name := range r.table.MethodOrder {
		m := r.table.Methods[name]
		if m == nil || !m.Sends {
			continue
		}
		w := &reentrancyWalk{r: r, m: m}
		w.block(m.Decl.Body, false)
	}
}

type reentrancyWalk struct {
	r *run
	m *Method
}

// block walks statements in order and returns whether an interaction has
// happened by the end. interacted is the state on entry.
func (w *reentrancyWalk) block(b *ast.Block, interacted bool) bool {
	if b == nil {
		return interacted
	}
	for _, s := range b.Stmts {
		interacted = w.stmt(s, interacted)
	}
	return interacted
}

func (w *reentrancyWalk) stmt(s ast.Stmt, interacted bool) bool {
	switch st := s.(type) {
	case *ast.AssignStmt:
		after := interacted || w.interactsIn(st.Value)
		if interacted && writesState(st.Target) {
			w.r.errorf(st.Pos(), CodeReentrancy,
				"state is written after a transfer in %s; move all state changes before the value transfer", w.m.Name)
		}
		return after
	case *ast.IfStmt:
		thenOut := interacted || w.interactsIn(st.Cond)
		elseOut := thenOut
		thenOut = w.block(st.Then, thenOut)
		switch e := st.Else.(type) {
		case *ast.Block:
			elseOut = w.block(e, elseOut)
		case *ast.IfStmt:
			elseOut = w.stmt(e, elseOut)
		}
		return thenOut || elseOut
	case *ast.WhileStmt:
		if w.loopInteracts(st) {
			w.r.errorf(st.Pos(), CodeReentrancy,
				"value transfer inside a loop in %s; transfer once after the loop instead", w.m.Name)
		}
		return w.block(st.Body, interacted || w.interactsIn(st.Cond)) || interacted
	case *ast.ReturnStmt:
		if st.Value != nil {
			return interacted || w.interactsIn(st.Value)
		}
		return interacted
	case *ast.RequireStmt:
		return interacted || w.interactsIn(st.Cond)
	case *ast.LogStmt:
		for _, a := range st.Args {
			interacted = interacted || w.interactsIn(a)
		}
		return interacted
	case *ast.ExprStmt:
		if interacted && w.writesStateIn(st.X) {
			w.r.errorf(st.Pos(), CodeReentrancy,
				"state is written after a transfer in %s; move all state changes before the value transfer", w.m.Name)
		}
		return interacted || w.interactsIn(st.X)
	}
	return interacted
}

// interactsIn reports whether evaluating the expression moves value,
// directly or via a sending callee.
func (w *reentrancyWalk) interactsIn(x ast.Expr) bool {
	found := false
	ast.Walk(x, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fun := call.Fun.(type) {
		case *ast.SelectorExpr:
			if fun.Sel == "transfer" || fun.Sel == "send" {
				found = true
			}
		case *ast.Ident:
			if callee, ok := w.r.table.Methods[fun.Name]; ok && callee.Sends {
				found = true
			}
		}
		return !found
	})
	return found
}

// writesStateIn reports whether evaluating the expression writes contract
// state through a callee.
func (w *reentrancyWalk) writesStateIn(x ast.Expr) bool {
	found := false
	ast.Walk(x, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			if callee, ok := w.r.table.Methods[fun.Name]; ok && callee.WritesState {
				found = true
			}
		case *ast.SelectorExpr:
			if fun.Sel == "push" && rootIsState(fun.X) {
				found = true
			}
		}
		return !found
	})
	return found
}

// loopInteracts reports whether a loop condition or body moves value on
// any path.
func (w *reentrancyWalk) loopInteracts(st *ast.WhileStmt) bool {
	found := w.interactsIn(st.Cond)
	ast.Walk(st.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return !found
		}
		switch fun := call.Fun.(type) {
		case *ast.SelectorExpr:
			if fun.Sel == "transfer" || fun.Sel == "send" {
				found = true
			}
		case *ast.Ident:
			if callee, ok := w.r.table.Methods[fun.Name]; ok && callee.Sends {
				found = true
			}
		}
		return !found
	})
	return found
}

// writesState reports whether an assignment target is contract state.
func writesState(target ast.Expr) bool {
	if _, ok := target.(*ast.IVar); ok {
		return true
	}
	return rootIsState(target)
}
