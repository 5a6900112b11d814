// Package skeleton parses skeleton documents into a typed node tree and walks
// that tree into generation instructions.
package skeleton

import (
	"time"
)

// Kind is the structural shape of a node or instruction.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// TypeSource records where an instruction's type came from. Only declared
// and literal types are authoritative against an OpenAPI schema.
type TypeSource int

const (
	TypeDefault TypeSource = iota
	TypeInferred
	TypeLiteral
	TypeDeclared
)

// Authoritative reports whether the type was written in the skeleton.
func (s TypeSource) Authoritative() bool {
	return s == TypeLiteral || s == TypeDeclared
}

var scalarTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"null":    true,
}

// IsScalarType reports whether t names a JSON scalar type.
func IsScalarType(t string) bool { return scalarTypes[t] }

// Constraints bound the value synthesized for one instruction. Nil pointers
// mean "unset".
type Constraints struct {
	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int
	Enum      []any
	Pattern   string
	Format    string
	Count     *int
	MinItems  *int
	MaxItems  *int
	After     *time.Time
	Before    *time.Time
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.Min == nil && c.Max == nil && c.MinLength == nil && c.MaxLength == nil &&
		c.Enum == nil && c.Pattern == "" && c.Format == "" && c.Count == nil &&
		c.MinItems == nil && c.MaxItems == nil && c.After == nil && c.Before == nil
}

// Node is one position of a parsed skeleton: *Scalar, *Object or *Array.
type Node interface {
	NodePath() string
	node()
}

// Scalar is a leaf. Type is empty when the skeleton leaves it to inference.
type Scalar struct {
	Path        string
	Key         string
	Type        string
	TypeSource  TypeSource
	HintName    string
	Ref         string
	Constraints Constraints
	Literal     any
	Nullable    bool

	// InferFromKey is set for null and empty-string leaves.
	InferFromKey bool
}

// Field is a named child of an Object.
type Field struct {
	Name string
	Node Node
}

// Object keeps its fields in source order.
type Object struct {
	Path     string
	Key      string
	HintName string
	Ref      string
	Fields   []Field
}

// Array holds the item template, nil for an empty template.
type Array struct {
	Path        string
	Key         string
	HintName    string
	Ref         string
	Item        Node
	Constraints Constraints
}

func (n *Scalar) NodePath() string { return n.Path }
func (n *Object) NodePath() string { return n.Path }
func (n *Array) NodePath() string  { return n.Path }

func (*Scalar) node() {}
func (*Object) node() {}
func (*Array) node()  {}
