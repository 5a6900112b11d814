package skeleton

import (
	"fmt"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
)

// Instruction tells the synthesizer how to produce one value. Instructions
// are never mutated once built; enrichment works on copies.
type Instruction struct {
	Path        string
	Key         string
	Kind        Kind
	Type        string
	TypeSource  TypeSource
	Hint        hint.Kind
	HintName    string
	Ref         string
	Constraints Constraints
	Fields      []*Instruction
	Item        *Instruction
	Literal     any
	Nullable    bool
}

// Clone returns a shallow copy with its own Fields slice.
func (in *Instruction) Clone() *Instruction {
	out := *in
	if in.Fields != nil {
		out.Fields = append([]*Instruction(nil), in.Fields...)
	}
	return &out
}

// Field returns the child instruction for key, or nil.
func (in *Instruction) Field(key string) *Instruction {
	for _, f := range in.Fields {
		if f.Key == key {
			return f
		}
	}
	return nil
}

// Options tune hint resolution.
type Options struct {
	// StrictHints turns an unrecognized hint into a MalformedError instead
	// of a warning.
	StrictHints bool
	// KnownSchema reports whether a hint names an OpenAPI schema component.
	KnownSchema func(name string) bool
}

type walker struct {
	opts     Options
	warnings []string
}

// Walk builds the instruction tree for root. Warnings describe hints that
// degraded to generic values.
func Walk(root Node, opts Options) (*Instruction, []string, error) {
	w := &walker{opts: opts}
	in, err := w.walk(root)
	if err != nil {
		return nil, nil, err
	}
	return in, w.warnings, nil
}

// Compile parses a decoded skeleton document and walks it.
func Compile(doc any, opts Options) (*Instruction, []string, error) {
	root, err := Parse(doc)
	if err != nil {
		return nil, nil, err
	}
	return Walk(root, opts)
}

func (w *walker) warnf(format string, args ...any) {
	w.warnings = append(w.warnings, fmt.Sprintf(format, args...))
}

func (w *walker) walk(n Node) (*Instruction, error) {
	switch t := n.(type) {
	case *Scalar:
		return w.scalar(t)
	case *Object:
		return w.object(t)
	case *Array:
		return w.array(t)
	case nil:
		return nil, malformed("", "empty node")
	default:
		return nil, malformed(n.NodePath(), "unsupported node %T", n)
	}
}

func (w *walker) knownSchema(name string) bool {
	return w.opts.KnownSchema != nil && w.opts.KnownSchema(name)
}

// resolveHint maps a hint name to a kind. Schema names resolve to Unknown
// and are left for the cross-reference step.
func (w *walker) resolveHint(path, name string) (hint.Kind, error) {
	if w.knownSchema(name) {
		return hint.Unknown, nil
	}
	if k, ok := hint.Parse(name); ok {
		return k, nil
	}
	if w.opts.StrictHints {
		return hint.Unknown, malformed(path, "unrecognized hint %q", name)
	}
	w.warnf("%s: unrecognized hint %q, generating a generic value", displayPath(path), name)
	return hint.Unknown, nil
}

func (w *walker) scalar(n *Scalar) (*Instruction, error) {
	in := &Instruction{
		Path:        n.Path,
		Key:         n.Key,
		Kind:        KindScalar,
		Type:        n.Type,
		TypeSource:  n.TypeSource,
		HintName:    n.HintName,
		Ref:         n.Ref,
		Constraints: n.Constraints,
		Literal:     n.Literal,
		Nullable:    n.Nullable,
	}

	switch {
	case n.HintName != "":
		k, err := w.resolveHint(n.Path, n.HintName)
		if err != nil {
			return nil, err
		}
		in.Hint = k
	case n.Constraints.Format != "":
		if k, ok := hint.Parse(n.Constraints.Format); ok {
			in.Hint = k
		}
	case n.Literal != nil:
		in.Hint = literalHint(n.Literal, n.Key)
	case n.InferFromKey:
		if k, ok := hint.FromKey(n.Key); ok {
			in.Hint = k
		}
	}

	if in.Type == "" {
		in.Type, in.TypeSource = inferType(in)
	}

	if in.Hint != hint.Unknown && !compatible(in.Hint, in.Type) {
		if in.TypeSource.Authoritative() && n.HintName != "" {
			w.warnf("%s: hint %q does not produce %s values, ignoring it", displayPath(n.Path), n.HintName, in.Type)
		}
		in.Hint = hint.Unknown
		in.HintName = ""
	}
	return in, nil
}

func literalHint(lit any, key string) hint.Kind {
	if s, ok := lit.(string); ok {
		if k, ok := hint.FromLiteral(s); ok {
			return k
		}
	}
	k, ok := hint.FromKey(key)
	if !ok {
		return hint.Unknown
	}
	if compatible(k, document.TypeName(lit)) {
		return k
	}
	return hint.Unknown
}

func inferType(in *Instruction) (string, TypeSource) {
	if t := in.Hint.Type(); t != "" {
		return t, TypeInferred
	}
	c := in.Constraints
	if len(c.Enum) > 0 {
		return document.TypeName(c.Enum[0]), TypeInferred
	}
	if c.Min != nil || c.Max != nil {
		if wholeOrNil(c.Min) && wholeOrNil(c.Max) {
			return "integer", TypeInferred
		}
		return "number", TypeInferred
	}
	if c.MinLength != nil || c.MaxLength != nil || c.Pattern != "" {
		return "string", TypeInferred
	}
	return "string", TypeDefault
}

func wholeOrNil(f *float64) bool {
	return f == nil || *f == float64(int64(*f))
}

// compatible reports whether a hint can produce values of JSON type typ.
func compatible(k hint.Kind, typ string) bool {
	ht := k.Type()
	switch {
	case ht == "" || ht == typ:
		return true
	case ht == "integer" && typ == "number":
		return true
	default:
		return false
	}
}

func (w *walker) container(path, hintName string) error {
	if hintName == "" || w.knownSchema(hintName) {
		return nil
	}
	if w.opts.StrictHints {
		return malformed(path, "hint %q does not name a schema", hintName)
	}
	w.warnf("%s: hint %q does not name a schema, ignoring it", displayPath(path), hintName)
	return nil
}

func (w *walker) object(n *Object) (*Instruction, error) {
	if err := w.container(n.Path, n.HintName); err != nil {
		return nil, err
	}
	in := &Instruction{
		Path:       n.Path,
		Key:        n.Key,
		Kind:       KindObject,
		Type:       "object",
		TypeSource: TypeLiteral,
		HintName:   n.HintName,
		Ref:        n.Ref,
		Fields:     make([]*Instruction, 0, len(n.Fields)),
	}
	for _, f := range n.Fields {
		child, err := w.walk(f.Node)
		if err != nil {
			return nil, err
		}
		in.Fields = append(in.Fields, child)
	}
	return in, nil
}

func (w *walker) array(n *Array) (*Instruction, error) {
	if err := w.container(n.Path, n.HintName); err != nil {
		return nil, err
	}
	in := &Instruction{
		Path:        n.Path,
		Key:         n.Key,
		Kind:        KindArray,
		Type:        "array",
		TypeSource:  TypeLiteral,
		HintName:    n.HintName,
		Ref:         n.Ref,
		Constraints: n.Constraints,
	}
	if n.Item != nil {
		item, err := w.walk(n.Item)
		if err != nil {
			return nil, err
		}
		in.Item = item
	}
	return in, nil
}
