// Package analysis implements the semantic checks of the sruby dialect:
// symbol collection, "typed by example" inference, type checking, and the
// safety restrictions the dialect exists for (no inheritance, no
// recursion, no re-entrancy hazards, no floating point, no nil and no
// negative wrapping integers).
package analysis

import (
	"fmt"
	"log/slog"

	"github.com/s6ruby/srubyc/internal/helpers"
	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
	"github.com/s6ruby/srubyc/lang/types"
)

// Checker validates parsed contracts. A single Checker is safe for
// repeated use; each Check call runs on its own state.
type Checker struct {
	logHandler slog.Handler
	logger     *slog.Logger
}

// NewChecker creates a new Checker instance with the provided options.
func NewChecker(opts ...FunctionalOption) (*Checker, error) {
	c := &Checker{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying checker option: %w", err)
		}
	}

	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "analysis", "Checker")
	}

	return c, nil
}

func (c *Checker) String() string {
	return "analysis.Checker"
}

// Check runs every pass over a parsed contract and returns the symbol
// table plus all diagnostics. The table is usable (for tooling such as
// AST dumps) even when diagnostics are present; callers that need a
// clean contract must treat a non-empty Diagnostics as failure.
func (c *Checker) Check(contract *ast.Contract) (*Table, Diagnostics) {
	logger := c.logger.WithGroup("check")

	if contract == nil {
		return nil, Diagnostics{{Code: CodeType, Msg: ErrContractNil.Error()}}
	}

	r := &run{table: newTable(), logger: logger}

	r.collectTypes(contract)
	r.collectSignatures(contract)
	r.checkSetup(contract)

	// Callee signatures must be resolved before callers, so bodies are
	// checked in call-graph order. Cycles are the recursion violation.
	order := r.methodOrder(contract)
	for _, decl := range order {
		r.checkMethodBody(r.table.Methods[decl.Name])
	}

	r.checkReentrancy()

	if len(r.diags) > 0 {
		logger.Debug("Check finished with findings", "count", len(r.diags))
	} else {
		logger.Debug("Check finished clean",
			"state", len(r.table.StateOrder), "methods", len(r.table.MethodOrder))
	}
	return r.table, r.diags
}

// run holds the mutable state of a single Check invocation.
type run struct {
	table  *Table
	diags  Diagnostics
	logger *slog.Logger
}

func (r *run) errorf(pos token.Pos, code string, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Pos:  pos,
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// collectTypes registers structs, enums and events.
func (r *run) collectTypes(contract *ast.Contract) {
	for _, d := range contract.Enums {
		if _, exists := r.table.Enums[d.Name]; exists {
			r.errorf(d.Pos(), CodeRedeclared, "enum %s is already declared", d.Name)
			continue
		}
		members := make([]string, len(d.Members))
		for i, m := range d.Members {
			members[i] = m.Name
		}
		r.table.Enums[d.Name] = types.NewEnum(d.Name, members)
		r.table.EnumOrder = append(r.table.EnumOrder, d.Name)
	}

	for _, d := range contract.Structs {
		if _, taken := r.table.TypeByName(d.Name); taken {
			r.errorf(d.Pos(), CodeRedeclared, "struct %s collides with an existing type", d.Name)
			continue
		}
		fields := make([]types.StructField, 0, len(d.Fields))
		for _, f := range d.Fields {
			ft, diag := r.exampleType(f.Example)
			if diag != nil {
				r.diags = append(r.diags, *diag)
				continue
			}
			if !types.ValidKey(ft) {
				// struct fields hold one storage word each
				r.errorf(f.Pos(), CodeExample,
					"struct field %s.%s must have a value type, got %s", d.Name, f.Name, ft)
				continue
			}
			fields = append(fields, types.StructField{Name: f.Name, Type: ft})
		}
		r.table.Structs[d.Name] = types.NewStruct(d.Name, fields)
		r.table.StructOrder = append(r.table.StructOrder, d.Name)
	}

	for _, d := range contract.Events {
		if _, exists := r.table.Events[d.Name]; exists {
			r.errorf(d.Pos(), CodeRedeclared, "event %s is already declared", d.Name)
			continue
		}
		ev := &Event{Name: d.Name, Pos: d.Pos()}
		for _, f := range d.Fields {
			ft, ok := r.table.TypeByName(f.Type.Name)
			if !ok {
				r.errorf(f.Type.Pos(), CodeUndefined, "unknown type %s in event %s", f.Type.Name, d.Name)
				continue
			}
			if !types.ValidKey(ft) && ft.Kind() != types.KindString && ft.Kind() != types.KindBytes {
				r.errorf(f.Pos(), CodeType, "event field %s.%s cannot have type %s", d.Name, f.Name, ft)
				continue
			}
			ev.Fields = append(ev.Fields, Param{Name: f.Name, Type: ft})
		}
		r.table.Events[d.Name] = ev
		r.table.EventOrder = append(r.table.EventOrder, d.Name)
	}
}

// collectSignatures registers every method with its parameter types, all
// inferred from the mandatory example defaults.
func (r *run) collectSignatures(contract *ast.Contract) {
	register := func(decl *ast.FuncDecl) *Method {
		m := newMethod(decl)
		for _, p := range decl.Params {
			pt, diag := r.exampleType(p.Example)
			if diag != nil {
				r.diags = append(r.diags, *diag)
				pt = types.Integer
			}
			switch pt.Kind() {
			case types.KindMapping, types.KindArray, types.KindStruct:
				r.errorf(p.Pos(), CodeExample,
					"parameter %s of %s cannot have reference type %s", p.Name, decl.Name, pt)
				pt = types.Integer
			}
			m.Params = append(m.Params, Param{Name: p.Name, Type: pt})
		}
		return m
	}

	for _, decl := range contract.Methods {
		if _, exists := r.table.Methods[decl.Name]; exists {
			r.errorf(decl.Pos(), CodeRedeclared, "method %s is already defined", decl.Name)
			continue
		}
		r.table.Methods[decl.Name] = register(decl)
		r.table.MethodOrder = append(r.table.MethodOrder, decl.Name)
	}

	if contract.Setup != nil {
		r.table.Setup = register(contract.Setup)
	}
}

// checkSetup walks the constructor. Top-level plain assignments to fresh
// state variables are state declarations; everything else is checked as a
// normal statement body.
func (r *run) checkSetup(contract *ast.Contract) {
	if contract.Setup == nil {
		return
	}
	m := r.table.Setup
	sc := newScope(r, m, true)

	for _, stmt := range contract.Setup.Body.Stmts {
		if as, ok := stmt.(*ast.AssignStmt); ok && as.Op == token.ASSIGN {
			if iv, ok := as.Target.(*ast.IVar); ok {
				if _, known := r.table.State[iv.Name]; !known {
					vt := sc.typeOf(as.Value)
					r.declareState(iv, vt)
					continue
				}
			}
		}
		sc.checkStmt(stmt)
	}

	m.Return = types.Void
}

func (r *run) declareState(iv *ast.IVar, t types.Type) {
	if t.Kind() == types.KindVoid || t.Kind() == types.KindInvalid {
		r.errorf(iv.Pos(), CodeType, "cannot infer a type for state @%s from this expression", iv.Name)
		t = types.Integer
	}
	r.table.State[iv.Name] = &StateVar{Name: iv.Name, Type: t, Pos: iv.Pos()}
	r.table.StateOrder = append(r.table.StateOrder, iv.Name)
	r.logger.Debug("Declared state", "name", iv.Name, "type", t.String())
}

// exampleType infers a type from an example default expression, the
// dialect's replacement for annotations.
func (r *run) exampleType(x ast.Expr) (types.Type, *Diagnostic) {
	switch e := x.(type) {
	case *ast.IntLit:
		return types.Integer, nil
	case *ast.StrLit:
		return types.String, nil
	case *ast.BoolLit:
		return types.Bool, nil
	case *ast.CallExpr:
		if id, ok := e.Fun.(*ast.Ident); ok {
			switch id.Name {
			case "Address":
				return types.Address, nil
			case "Bytes":
				return types.Bytes, nil
			}
		}
	case *ast.MappingExpr:
		return r.resolveTypeRef(x)
	case *ast.ArrayExpr:
		return r.resolveTypeRef(x)
	case *ast.SelectorExpr:
		if id, ok := e.X.(*ast.Ident); ok {
			if enum, found := r.table.Enums[id.Name]; found {
				if _, ok := enum.Ordinal(e.Sel); !ok {
					d := Diagnostic{Pos: e.Pos(), Code: CodeUndefined,
						Msg: fmt.Sprintf("enum %s has no member %s", enum.Name, e.Sel)}
					return types.Integer, &d
				}
				return enum, nil
			}
		}
	}
	d := Diagnostic{Pos: x.Pos(), Code: CodeExample,
		Msg: "cannot infer a type from this example; use a literal, Address(0), an enum member, Mapping.of or Array.of"}
	return types.Integer, &d
}

// resolveTypeRef resolves the type references inside Mapping.of / Array.of
// examples: bare type names, or nested examples.
func (r *run) resolveTypeRef(x ast.Expr) (types.Type, *Diagnostic) {
	switch e := x.(type) {
	case *ast.TypeName:
		t, ok := r.table.TypeByName(e.Name)
		if !ok {
			d := Diagnostic{Pos: e.Pos(), Code: CodeUndefined,
				Msg: fmt.Sprintf("unknown type %s", e.Name)}
			return types.Integer, &d
		}
		return t, nil
	case *ast.MappingExpr:
		key, diag := r.resolveTypeRef(e.Key)
		if diag != nil {
			return types.Integer, diag
		}
		if !types.ValidKey(key) {
			d := Diagnostic{Pos: e.Key.Pos(), Code: CodeType,
				Msg: fmt.Sprintf("%s cannot be a mapping key", key)}
			return types.Integer, &d
		}
		value, diag := r.resolveTypeRef(e.Value)
		if diag != nil {
			return types.Integer, diag
		}
		return types.NewMapping(key, value), nil
	case *ast.ArrayExpr:
		elem, diag := r.resolveTypeRef(e.Elem)
		if diag != nil {
			return types.Integer, diag
		}
		length := types.DynamicLen
		if e.Len != nil {
			lit, ok := e.Len.(*ast.IntLit)
			if !ok || !lit.Value.IsInt64() || lit.Value.Int64() <= 0 {
				d := Diagnostic{Pos: e.Len.Pos(), Code: CodeType,
					Msg: "array length must be a positive integer literal"}
				return types.Integer, &d
			}
			length = int(lit.Value.Int64())
		}
		return types.NewArray(elem, length), nil
	}
	d := Diagnostic{Pos: x.Pos(), Code: CodeType, Msg: "expected a type reference"}
	return types.Integer, &d
}
