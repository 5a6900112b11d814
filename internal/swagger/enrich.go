package swagger

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

const (
	defaultMaxRefDepth = 3
	maxRefChain        = 32
)

// Options tune the cross-reference.
type Options struct {
	// MaxRefDepth bounds how many references one branch may follow while
	// expanding a schema, which cuts recursive schemas.
	MaxRefDepth int
	// AutoMatch binds an unbound root object to the schema sharing most of
	// its keys.
	AutoMatch bool
}

type enricher struct {
	doc      *Document
	opts     Options
	warnings []string
}

// Enrich returns a copy of root whose nodes carry constraints merged from
// matching schemas. The skeleton always wins: a schema only fills fields the
// skeleton left unset. Unresolved references become warnings.
func (d *Document) Enrich(root *skeleton.Instruction, opts Options) (*skeleton.Instruction, []string) {
	if opts.MaxRefDepth <= 0 {
		opts.MaxRefDepth = defaultMaxRefDepth
	}
	e := &enricher{doc: d, opts: opts}

	var bound *jsonschema.Schema
	if opts.AutoMatch && root.Kind == skeleton.KindObject && root.Ref == "" && root.HintName == "" {
		if name, ok := d.BestMatch(root); ok {
			bound, _ = d.Schema(name)
		}
	}
	return e.enrich(root, bound, 0), e.warnings
}

func (e *enricher) warnf(format string, args ...any) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

func display(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

// binding finds the schema that applies to in: an explicit reference, a
// hint naming a component, the parent's property schema, or an object
// whose key names a component.
func (e *enricher) binding(in *skeleton.Instruction, inherited *jsonschema.Schema) (*jsonschema.Schema, int) {
	if in.Ref != "" {
		s, name, ok := e.doc.Resolve(in.Ref)
		if !ok {
			e.warnf("%s: unresolved schema reference %q", display(in.Path), name)
			return nil, 0
		}
		return s, 1
	}
	if in.HintName != "" && in.Hint == hint.Unknown {
		if s, ok := e.doc.Schema(in.HintName); ok {
			return s, 1
		}
	}
	if inherited != nil {
		return inherited, 0
	}
	if in.Kind == skeleton.KindObject && in.Key != "" {
		if s, ok := e.doc.Schema(in.Key); ok {
			return s, 1
		}
	}
	return nil, 0
}

func (e *enricher) enrich(in *skeleton.Instruction, inherited *jsonschema.Schema, depth int) *skeleton.Instruction {
	s, hops := e.binding(in, inherited)
	if s == nil {
		return e.descend(in, nil, depth)
	}
	s, ok := e.deref(s, in.Path)
	if !ok {
		return e.descend(in, nil, depth)
	}

	if in.Kind == skeleton.KindScalar && isContainer(s) && in.Literal == nil && !in.TypeSource.Authoritative() {
		return e.expand(s, in.Path, in.Key, depth+hops)
	}
	return e.descend(in, s, depth+hops)
}

// descend merges s into a copy of in and recurses into its children.
func (e *enricher) descend(in *skeleton.Instruction, s *jsonschema.Schema, depth int) *skeleton.Instruction {
	out := in.Clone()
	switch in.Kind {
	case skeleton.KindScalar:
		if s != nil {
			if isContainer(s) {
				e.warnf("%s: schema describes an %s but the skeleton declares %s", display(in.Path), containerType(s), in.Type)
			} else {
				e.mergeScalar(out, s)
			}
		}
	case skeleton.KindObject:
		props := properties(e.doc, s)
		if s != nil && props == nil && !isContainer(s) {
			e.warnf("%s: schema is a %s, not an object", display(in.Path), schemaType(s))
		}
		for i, f := range in.Fields {
			var child *jsonschema.Schema
			if props != nil {
				child, _ = props.Get(f.Key)
			}
			out.Fields[i] = e.enrich(f, child, depth)
		}
	case skeleton.KindArray:
		var items *jsonschema.Schema
		if s != nil {
			items = s.Items
			mergeItems(&out.Constraints, s)
		}
		switch {
		case in.Item != nil:
			out.Item = e.enrich(in.Item, items, depth)
		case items != nil:
			out.Item = e.expand(items, in.Path+"[*]", in.Key, depth)
		}
	}
	return out
}

// deref follows a schema's own $ref chain.
func (e *enricher) deref(s *jsonschema.Schema, path string) (*jsonschema.Schema, bool) {
	for hops := 0; s != nil && s.Ref != ""; hops++ {
		target, name, ok := e.doc.Resolve(s.Ref)
		if !ok {
			e.warnf("%s: unresolved schema reference %q", display(path), name)
			return nil, false
		}
		if hops >= maxRefChain {
			e.warnf("%s: reference cycle through %q", display(path), name)
			return nil, false
		}
		s = target
	}
	return s, s != nil
}

// mergeScalar fills unset fields of out from s.
func (e *enricher) mergeScalar(out *skeleton.Instruction, s *jsonschema.Schema) {
	if out.Hint == hint.Unknown && e.doc.Has(out.HintName) {
		out.HintName = ""
	}
	if !out.TypeSource.Authoritative() && skeleton.IsScalarType(s.Type) {
		out.Type = s.Type
		out.TypeSource = skeleton.TypeInferred
	}
	if out.Hint != hint.Unknown && !hintProduces(out.Hint, out.Type) {
		out.Hint = hint.Unknown
		out.HintName = ""
	}
	if out.Hint == hint.Unknown && out.HintName == "" && s.Format != "" {
		if k, ok := hint.Parse(s.Format); ok && hintProduces(k, out.Type) {
			out.Hint = k
		}
	}

	c := &out.Constraints
	if c.Format == "" {
		c.Format = s.Format
	}
	if c.Pattern == "" {
		c.Pattern = s.Pattern
	}
	if c.Enum == nil && len(s.Enum) > 0 {
		c.Enum = append([]any(nil), s.Enum...)
	}

	fromSchemaMin, fromSchemaMax := false, false
	if c.Min == nil {
		c.Min = number(s.Minimum)
		fromSchemaMin = c.Min != nil
	}
	if c.Max == nil {
		c.Max = number(s.Maximum)
		fromSchemaMax = c.Max != nil
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max && (fromSchemaMin || fromSchemaMax) {
		e.warnf("%s: schema bounds conflict with the skeleton, keeping the skeleton's", display(out.Path))
		if fromSchemaMin {
			c.Min = nil
		}
		if fromSchemaMax {
			c.Max = nil
		}
	}

	fromSchemaMinLen, fromSchemaMaxLen := false, false
	if c.MinLength == nil {
		c.MinLength = length(s.MinLength)
		fromSchemaMinLen = c.MinLength != nil
	}
	if c.MaxLength == nil {
		c.MaxLength = length(s.MaxLength)
		fromSchemaMaxLen = c.MaxLength != nil
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength && (fromSchemaMinLen || fromSchemaMaxLen) {
		e.warnf("%s: schema lengths conflict with the skeleton, keeping the skeleton's", display(out.Path))
		if fromSchemaMinLen {
			c.MinLength = nil
		}
		if fromSchemaMaxLen {
			c.MaxLength = nil
		}
	}
}

func mergeItems(c *skeleton.Constraints, s *jsonschema.Schema) {
	if c.Count != nil || (c.MinItems != nil || c.MaxItems != nil) {
		return
	}
	c.MinItems = length(s.MinItems)
	c.MaxItems = length(s.MaxItems)
	if c.MinItems != nil && c.MaxItems != nil && *c.MinItems > *c.MaxItems {
		c.MinItems, c.MaxItems = nil, nil
	}
}

func hintProduces(k hint.Kind, typ string) bool {
	ht := k.Type()
	return ht == "" || ht == typ || (ht == "integer" && typ == "number")
}

func isContainer(s *jsonschema.Schema) bool {
	return s.Type == "object" || s.Type == "array" || s.Properties != nil || s.Items != nil || len(s.AllOf) > 0
}

func containerType(s *jsonschema.Schema) string {
	if s.Type == "array" || (s.Type == "" && s.Items != nil) {
		return "array"
	}
	return "object"
}

func schemaType(s *jsonschema.Schema) string {
	if s.Type == "" {
		return "untyped schema"
	}
	return s.Type
}

// BestMatch returns the schema whose property names overlap most with the
// object's keys, when the overlap (intersection over union) exceeds one half.
func (d *Document) BestMatch(in *skeleton.Instruction) (string, bool) {
	if in.Kind != skeleton.KindObject || len(in.Fields) == 0 {
		return "", false
	}
	keys := make(map[string]bool, len(in.Fields))
	for _, f := range in.Fields {
		keys[f.Key] = true
	}

	best, bestScore := "", 0.0
	for _, name := range d.names {
		props := properties(d, d.schemas[name])
		if props == nil || props.Len() == 0 {
			continue
		}
		common, union := 0, len(keys)
		for pair := props.Oldest(); pair != nil; pair = pair.Next() {
			if keys[pair.Key] {
				common++
			} else {
				union++
			}
		}
		score := float64(common) / float64(union)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	return best, bestScore > 0.5
}
