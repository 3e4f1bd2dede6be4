package analysis

import (
	"fmt"

	"github.com/s6ruby/srubyc/lang/ast"
	"github.com/s6ruby/srubyc/lang/token"
	"github.com/s6ruby/srubyc/lang/types"
)

// Table is the symbol table of a checked contract: every declared type,
// state variable and method with its inferred signature and effects. The
// target emitters consume it alongside the syntax tree.
type Table struct {
	Structs     map[string]*types.Struct
	StructOrder []string

	Enums     map[string]*types.Enum
	EnumOrder []string

	Events     map[string]*Event
	EventOrder []string

	State      map[string]*StateVar
	StateOrder []string

	Methods     map[string]*Method
	MethodOrder []string

	// Setup is the constructor's signature, nil when absent.
	Setup *Method

	// Types records the checked type of every expression, keyed by AST
	// node. The emitters use it to pick target constructs (string
	// concatenation, payable casts) without re-deriving types.
	Types map[ast.Expr]types.Type
}

func newTable() *Table {
	return &Table{
		Structs: make(map[string]*types.Struct),
		Enums:   make(map[string]*types.Enum),
		Events:  make(map[string]*Event),
		State:   make(map[string]*StateVar),
		Methods: make(map[string]*Method),
		Types:   make(map[ast.Expr]types.Type),
	}
}

// TypeOf returns the checked type of an expression, or Invalid when the
// expression was never reached.
func (t *Table) TypeOf(x ast.Expr) types.Type {
	if found, ok := t.Types[x]; ok {
		return found
	}
	return types.Invalid
}

// StateVar is one contract storage variable.
type StateVar struct {
	Name string
	Type types.Type
	Pos  token.Pos
}

// Event is a declared event signature.
type Event struct {
	Name   string
	Pos    token.Pos
	Fields []Param
}

// Param is a named, typed method or event parameter.
type Param struct {
	Name string
	Type types.Type
}

// Method is a checked method signature with its inferred effects.
type Method struct {
	Name   string
	Pos    token.Pos
	Params []Param
	Return types.Type

	// Locals maps every local variable to its inferred type, in first
	// assignment order.
	Locals     map[string]types.Type
	LocalOrder []string

	// Effects, set while the body is checked. Calls lists the contract
	// methods invoked (each name once, in first-call order).
	ReadsState  bool
	WritesState bool
	Emits       bool
	Sends       bool
	ReadsValue  bool
	Calls       []string

	Decl *ast.FuncDecl
}

func newMethod(decl *ast.FuncDecl) *Method {
	return &Method{
		Name:   decl.Name,
		Pos:    decl.Pos(),
		Return: types.Void,
		Locals: make(map[string]types.Type),
		Decl:   decl,
	}
}

// ReadOnly reports whether the method can be emitted as a view: it never
// writes state, emits events or moves value.
func (m *Method) ReadOnly() bool {
	return !m.WritesState && !m.Emits && !m.Sends
}

// Payable reports whether the method accepts attached value (it reads
// msg.value somewhere).
func (m *Method) Payable() bool {
	return m.ReadsValue
}

func (m *Method) String() string {
	return fmt.Sprintf("Method{%s/%d -> %s}", m.Name, len(m.Params), m.Return)
}

func (m *Method) addCall(name string) {
	for _, c := range m.Calls {
		if c == name {
			return
		}
	}
	m.Calls = append(m.Calls, name)
}

func (m *Method) declareLocal(name string, t types.Type) {
	if _, ok := m.Locals[name]; ok {
		return
	}
	m.Locals[name] = t
	m.LocalOrder = append(m.LocalOrder, name)
}

// TypeByName resolves a type name as used in event fields and
// Mapping/Array examples: a primitive, a declared struct or an enum.
func (t *Table) TypeByName(name string) (types.Type, bool) {
	if p, ok := types.LookupPrimitive(name); ok {
		return p, true
	}
	if s, ok := t.Structs[name]; ok {
		return s, true
	}
	if e, ok := t.Enums[name]; ok {
		return e, true
	}
	return nil, false
}

// OrderedState returns the state variables in declaration order.
func (t *Table) OrderedState() []*StateVar {
	out := make([]*StateVar, 0, len(t.StateOrder))
	for _, name := range t.StateOrder {
		out = append(out, t.State[name])
	}
	return out
}

// OrderedMethods returns the methods in source order.
func (t *Table) OrderedMethods() []*Method {
	out := make([]*Method, 0, len(t.MethodOrder))
	for _, name := range t.MethodOrder {
		out = append(out, t.Methods[name])
	}
	return out
}

// OrderedEvents returns the events in declaration order.
func (t *Table) OrderedEvents() []*Event {
	out := make([]*Event, 0, len(t.EventOrder))
	for _, name := range t.EventOrder {
		out = append(out, t.Events[name])
	}
	return out
}
