// Package ast declares the syntax tree for sruby contract sources.
//
// A contract file is classless: the file itself is the contract. The root
// Contract node therefore holds top-level struct, event and enum
// declarations plus the method definitions, with the constructor ("setup")
// split out.
package ast

import (
	"math/big"

	"github.com/s6ruby/srubyc/lang/token"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() token.Pos
}

type Base struct {
	P token.Pos
}

func (b Base) Pos() token.Pos { return b.P }

// Contract is the root of a parsed source file.
type Contract struct {
	Base
	Structs []*StructDecl
	Events  []*EventDecl
	Enums   []*EnumDecl
	Setup   *FuncDecl // nil when the contract has no constructor
	Methods []*FuncDecl
}

// NewContract creates an empty contract root.
func NewContract() *Contract {
	return &Contract{}
}

// StructDecl is `struct :Name, field: <example>, ...`.
type StructDecl struct {
	Base
	Name   string
	Fields []*Field
}

// Field is a struct field with its example default, which carries the type.
type Field struct {
	Base
	Name    string
	Example Expr
}

// EventDecl is `event :Name, field: Type, ...`.
type EventDecl struct {
	Base
	Name   string
	Fields []*EventField
}

// EventField pairs an event argument with its declared type name.
type EventField struct {
	Base
	Name string
	Type *TypeName
}

// TypeName is a bare type reference (Integer, Address, a struct name, ...).
type TypeName struct {
	Base
	Name string
}

// EnumDecl is `enum :Name, :member, :member, ...`.
type EnumDecl struct {
	Base
	Name    string
	Members []*EnumMember
}

// EnumMember is one ordinal member of an enum.
type EnumMember struct {
	Base
	Name string
}

// FuncDecl is a `def ... end` method definition. IsSetup marks the
// constructor.
type FuncDecl struct {
	Base
	Name    string
	Params  []*Param
	Body    *Block
	IsSetup bool
}

// Param is a method parameter. The mandatory example default carries the
// parameter's type ("typed by example").
type Param struct {
	Base
	Name    string
	Example Expr
}

// Block is a statement sequence.
type Block struct {
	Base
	Stmts []Stmt
}

// Stmt is implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// AssignStmt is `target = value`, `target += value` or `target -= value`.
type AssignStmt struct {
	Base
	Target Expr
	Op     token.Kind // ASSIGN, PLUS_ASSIGN or MINUS_ASSIGN
	Value  Expr
}

// IfStmt is an if/elsif/else chain; elsif branches hang off Else as a
// nested *IfStmt, so Else is either nil, a *Block or an *IfStmt.
type IfStmt struct {
	Base
	Cond Expr
	Then *Block
	Else Node
}

// WhileStmt is `while cond ... end`.
type WhileStmt struct {
	Base
	Cond Expr
	Body *Block
}

// ReturnStmt is `return` with an optional value.
type ReturnStmt struct {
	Base
	Value Expr // may be nil
}

// RequireStmt is `require cond, "message"` or `assert cond`.
type RequireStmt struct {
	Base
	Cond    Expr
	Message string // empty when absent
	Assert  bool   // true for `assert`
}

// LogStmt is `log EventName( args... )`.
type LogStmt struct {
	Base
	Event string
	Args  []Expr
}

// ExprStmt is a bare expression in statement position. When it is the last
// statement of a method it doubles as the method's return value, matching
// Ruby's implicit-return convention.
type ExprStmt struct {
	Base
	X Expr
}

func (*AssignStmt) stmtNode()  {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()  {}
func (*RequireStmt) stmtNode() {}
func (*LogStmt) stmtNode()     {}
func (*ExprStmt) stmtNode()    {}

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// IntLit is an unsigned integer literal. Raw preserves the source spelling
// (hex or underscores) for the emitters.
type IntLit struct {
	Base
	Value *big.Int
	Raw   string
}

// StrLit is a double-quoted string literal, unescaped.
type StrLit struct {
	Base
	Value string
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Base
	Value bool
}

// Ident names a local, parameter, method, enum type or builtin namespace.
type Ident struct {
	Base
	Name string
}

// IVar is a state variable reference (`@name`, without the sigil).
type IVar struct {
	Base
	Name string
}

// SelectorExpr is `x.sel` (msg.sender, voter.weight, Status.open, a.size).
type SelectorExpr struct {
	Base
	X   Expr
	Sel string
}

// IndexExpr is `x[index]`.
type IndexExpr struct {
	Base
	X     Expr
	Index Expr
}

// CallExpr is `f(args)` where Fun is an Ident (method call, Address(0)) or
// a SelectorExpr (addr.transfer(v), a.push(x)).
type CallExpr struct {
	Base
	Fun  Expr
	Args []Expr
}

// BinaryExpr is an infix operation.
type BinaryExpr struct {
	Base
	Op   token.Kind
	X, Y Expr
}

// UnaryExpr is `!x` or `-x`.
type UnaryExpr struct {
	Base
	Op token.Kind
	X  Expr
}

// MappingExpr is the type example `Mapping.of( Key => Value )`. Key and
// Value are type references (TypeName, MappingExpr or ArrayExpr).
type MappingExpr struct {
	Base
	Key   Expr
	Value Expr
}

// ArrayExpr is the type example `Array.of( Elem )` or `Array.of( Elem, n )`.
type ArrayExpr struct {
	Base
	Elem Expr
	Len  Expr // nil for a dynamic array
}

func (*IntLit) exprNode()       {}
func (*StrLit) exprNode()       {}
func (*BoolLit) exprNode()      {}
func (*Ident) exprNode()        {}
func (*IVar) exprNode()         {}
func (*SelectorExpr) exprNode() {}
func (*IndexExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*MappingExpr) exprNode()  {}
func (*ArrayExpr) exprNode()    {}
func (*TypeName) exprNode()     {}

// Walk calls fn for every node in the subtree rooted at n, parents before
// children, skipping a subtree when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || isNilNode(n) || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *Contract:
		for _, d := range x.Structs {
			Walk(d, fn)
		}
		for _, d := range x.Events {
			Walk(d, fn)
		}
		for _, d := range x.Enums {
			Walk(d, fn)
		}
		if x.Setup != nil {
			Walk(x.Setup, fn)
		}
		for _, d := range x.Methods {
			Walk(d, fn)
		}
	case *StructDecl:
		for _, f := range x.Fields {
			Walk(f, fn)
		}
	case *Field:
		Walk(x.Example, fn)
	case *EventDecl:
		for _, f := range x.Fields {
			Walk(f, fn)
		}
	case *EventField:
		Walk(x.Type, fn)
	case *FuncDecl:
		for _, p := range x.Params {
			Walk(p, fn)
		}
		Walk(x.Body, fn)
	case *Param:
		Walk(x.Example, fn)
	case *Block:
		for _, s := range x.Stmts {
			Walk(s, fn)
		}
	case *AssignStmt:
		Walk(x.Target, fn)
		Walk(x.Value, fn)
	case *IfStmt:
		Walk(x.Cond, fn)
		Walk(x.Then, fn)
		Walk(x.Else, fn)
	case *WhileStmt:
		Walk(x.Cond, fn)
		Walk(x.Body, fn)
	case *ReturnStmt:
		Walk(x.Value, fn)
	case *RequireStmt:
		Walk(x.Cond, fn)
	case *LogStmt:
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *ExprStmt:
		Walk(x.X, fn)
	case *SelectorExpr:
		Walk(x.X, fn)
	case *IndexExpr:
		Walk(x.X, fn)
		Walk(x.Index, fn)
	case *CallExpr:
		Walk(x.Fun, fn)
		for _, a := range x.Args {
			Walk(a, fn)
		}
	case *BinaryExpr:
		Walk(x.X, fn)
		Walk(x.Y, fn)
	case *UnaryExpr:
		Walk(x.X, fn)
	case *MappingExpr:
		Walk(x.Key, fn)
		Walk(x.Value, fn)
	case *ArrayExpr:
		Walk(x.Elem, fn)
		Walk(x.Len, fn)
	}
}

// isNilNode guards against typed-nil interface values in optional fields.
func isNilNode(n Node) bool {
	switch x := n.(type) {
	case *Block:
		return x == nil
	case *IfStmt:
		return x == nil
	case *TypeName:
		return x == nil
	default:
		return false
	}
}
