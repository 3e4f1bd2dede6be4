// Package types models the value and reference types of the sruby contract
// dialect: Bool, Integer, Address, String and Bytes as value types, plus
// Array, Struct, Mapping and Enum reference types.
//
// There is no floating point type and no nil: every slot of every type has
// a zero value (0, "", false, the zero address, empty bytes), which is what
// uninitialized mapping entries and array elements hold.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the type variants.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInteger
	KindAddress
	KindString
	KindBytes
	KindVoid
	KindArray
	KindStruct
	KindMapping
	KindEnum
)

// Type is the interface implemented by all sruby types.
type Type interface {
	Kind() Kind
	String() string
	Equal(Type) bool
}

// Primitive is a value type (or Void, the absence of a value).
type Primitive struct {
	kind Kind
	name string
}

var (
	// Invalid marks an expression that already produced a diagnostic;
	// downstream checks skip it to avoid cascades.
	Invalid = &Primitive{KindInvalid, "<invalid>"}

	Bool    = &Primitive{KindBool, "Bool"}
	Integer = &Primitive{KindInteger, "Integer"}
	Address = &Primitive{KindAddress, "Address"}
	String  = &Primitive{KindString, "String"}
	Bytes   = &Primitive{KindBytes, "Bytes"}
	Void    = &Primitive{KindVoid, "Void"}
)

func (p *Primitive) Kind() Kind     { return p.kind }
func (p *Primitive) String() string { return p.name }

func (p *Primitive) Equal(other Type) bool {
	o, ok := other.(*Primitive)
	return ok && o.kind == p.kind
}

// DynamicLen marks an Array as dynamically sized.
const DynamicLen = -1

// Array is a fixed-size or dynamic array.
type Array struct {
	Elem Type
	Len  int // DynamicLen for dynamic arrays
}

func NewArray(elem Type, length int) *Array {
	return &Array{Elem: elem, Len: length}
}

func (a *Array) Kind() Kind { return KindArray }

func (a *Array) Dynamic() bool { return a.Len == DynamicLen }

func (a *Array) String() string {
	if a.Dynamic() {
		return fmt.Sprintf("Array.of(%s)", a.Elem)
	}
	return fmt.Sprintf("Array.of(%s, %d)", a.Elem, a.Len)
}

func (a *Array) Equal(other Type) bool {
	o, ok := other.(*Array)
	return ok && o.Len == a.Len && a.Elem.Equal(o.Elem)
}

// StructField is a named field of a Struct.
type StructField struct {
	Name string
	Type Type
}

// Struct is a named record type declared with `struct :Name, ...`.
type Struct struct {
	Name   string
	Fields []StructField
}

func NewStruct(name string, fields []StructField) *Struct {
	return &Struct{Name: name, Fields: fields}
}

func (s *Struct) Kind() Kind     { return KindStruct }
func (s *Struct) String() string { return s.Name }

// Field returns the named field, or false when it does not exist.
func (s *Struct) Field(name string) (StructField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// Equal compares structs by name: struct names are unique per contract.
func (s *Struct) Equal(other Type) bool {
	o, ok := other.(*Struct)
	return ok && o.Name == s.Name
}

// Mapping is a key/value mapping with a total default: reading an absent
// key yields the value type's zero value.
type Mapping struct {
	Key   Type
	Value Type
}

func NewMapping(key, value Type) *Mapping {
	return &Mapping{Key: key, Value: value}
}

func (m *Mapping) Kind() Kind { return KindMapping }

func (m *Mapping) String() string {
	return fmt.Sprintf("Mapping.of(%s => %s)", m.Key, m.Value)
}

func (m *Mapping) Equal(other Type) bool {
	o, ok := other.(*Mapping)
	return ok && m.Key.Equal(o.Key) && m.Value.Equal(o.Value)
}

// Enum is a named enumeration; members are ordinal constants starting at 0.
type Enum struct {
	Name    string
	Members []string
}

func NewEnum(name string, members []string) *Enum {
	return &Enum{Name: name, Members: members}
}

func (e *Enum) Kind() Kind     { return KindEnum }
func (e *Enum) String() string { return e.Name }

// Ordinal returns the position of a member, or false when it is unknown.
func (e *Enum) Ordinal(member string) (int, bool) {
	for i, m := range e.Members {
		if m == member {
			return i, true
		}
	}
	return 0, false
}

// Equal compares enums by name: enum names are unique per contract.
func (e *Enum) Equal(other Type) bool {
	o, ok := other.(*Enum)
	return ok && o.Name == e.Name
}

// ValidKey reports whether a type may key a Mapping. Only value types (and
// enums, which are ordinals) qualify; reference types cannot be hashed into
// storage slots portably.
func ValidKey(t Type) bool {
	switch t.Kind() {
	case KindBool, KindInteger, KindAddress, KindString, KindBytes, KindEnum:
		return true
	default:
		return false
	}
}

// IsValue reports whether t is a plain value type (fits one storage word
// on EVM-shaped targets, Strings and Bytes excluded).
func IsValue(t Type) bool {
	switch t.Kind() {
	case KindBool, KindInteger, KindAddress, KindEnum:
		return true
	default:
		return false
	}
}

// LookupPrimitive resolves a primitive type name as used in event field
// declarations and Mapping/Array examples.
func LookupPrimitive(name string) (Type, bool) {
	switch name {
	case "Bool":
		return Bool, true
	case "Integer", "Money": // Money is an alias kept from the original samples
		return Integer, true
	case "Address":
		return Address, true
	case "String":
		return String, true
	case "Bytes":
		return Bytes, true
	default:
		return nil, false
	}
}

// Join renders a type list for diagnostics.
func Join(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
