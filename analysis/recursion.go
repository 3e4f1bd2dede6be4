package analysis

import (
	"strings"

	"github.com/s6ruby/srubyc/lang/ast"
)

// methodOrder builds the syntactic call graph and returns the method
// declarations so that callees precede their callers, which lets body
// checking resolve return types in one pass. Any cycle in the graph is a
// recursion violation and is reported once per cycle; its members are
// appended last so their bodies are still checked.
func (r *run) methodOrder(contract *ast.Contract) []*ast.FuncDecl {
	decls := make(map[string]*ast.FuncDecl, len(contract.Methods))
	calls := make(map[string][]string, len(contract.Methods))
	for _, decl := range contract.Methods {
		if decls[decl.Name] != nil {
			continue // redeclaration, already diagnosed
		}
		decls[decl.Name] = decl
		calls[decl.Name] = calledMethods(decl, contract)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(decls))
	var order []*ast.FuncDecl
	var cyclic []*ast.FuncDecl
	var stack []string

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case done:
			return true
		case visiting:
			r.reportCycle(stack, name, decls)
			return false
		}
		state[name] = visiting
		stack = append(stack, name)
		ok := true
		for _, callee := range calls[name] {
			if !visit(callee) {
				ok = false
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		if ok {
			order = append(order, decls[name])
		} else {
			cyclic = append(cyclic, decls[name])
		}
		return ok
	}

	for _, decl := range contract.Methods {
		if state[decl.Name] == unvisited && decls[decl.Name] == decl {
			visit(decl.Name)
		}
	}

	return append(order, cyclic...)
}

func (r *run) reportCycle(stack []string, repeat string, decls map[string]*ast.FuncDecl) {
	start := 0
	for i, name := range stack {
		if name == repeat {
			start = i
			break
		}
	}
	chain := append(append([]string{}, stack[start:]...), repeat)
	r.errorf(decls[repeat].Pos(), CodeRecursion,
		"recursion is not allowed: %s", strings.Join(chain, " -> "))
}

// calledMethods scans a body for calls to contract methods. The scan is
// purely syntactic: a bare identifier call whose name matches a declared
// method. Locals cannot shadow methods into false positives here because
// locals are never callable.
func calledMethods(decl *ast.FuncDecl, contract *ast.Contract) []string {
	known := make(map[string]bool, len(contract.Methods))
	for _, d := range contract.Methods {
		known[d.Name] = true
	}

	seen := make(map[string]bool)
	var out []string
	ast.Walk(decl.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if id, isIdent := call.Fun.(*ast.Ident); isIdent && known[id.Name] && !seen[id.Name] {
			seen[id.Name] = true
			out = append(out, id.Name)
		}
		return true
	})
	return out
}
