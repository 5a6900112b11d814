package swagger

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

// expand builds an instruction subtree from a schema alone, for skeleton
// nodes that only name a schema. depth counts the references followed on
// this branch.
func (e *enricher) expand(s *jsonschema.Schema, path, key string, depth int) *skeleton.Instruction {
	if s.Ref != "" {
		depth++
		if depth > e.opts.MaxRefDepth {
			e.warnf("%s: reference depth limit %d reached, generating null", display(path), e.opts.MaxRefDepth)
			return &skeleton.Instruction{Path: path, Key: key, Kind: skeleton.KindScalar, Type: "null", TypeSource: skeleton.TypeInferred}
		}
		target, ok := e.deref(s, path)
		if !ok {
			return leaf(&jsonschema.Schema{}, path, key)
		}
		s = target
	}
	s = variant(s)

	switch {
	case s.Type == "array" || (s.Type == "" && s.Items != nil):
		in := &skeleton.Instruction{
			Path:       path,
			Key:        key,
			Kind:       skeleton.KindArray,
			Type:       "array",
			TypeSource: skeleton.TypeInferred,
		}
		mergeItems(&in.Constraints, s)
		if s.Items != nil {
			in.Item = e.expand(s.Items, path+"[*]", key, depth)
		}
		return in

	case s.Type == "object" || s.Properties != nil || len(s.AllOf) > 0:
		in := &skeleton.Instruction{
			Path:       path,
			Key:        key,
			Kind:       skeleton.KindObject,
			Type:       "object",
			TypeSource: skeleton.TypeInferred,
			Fields:     []*skeleton.Instruction{},
		}
		if props := properties(e.doc, s); props != nil {
			for pair := props.Oldest(); pair != nil; pair = pair.Next() {
				in.Fields = append(in.Fields, e.expand(pair.Value, document.Join(path, pair.Key), pair.Key, depth))
			}
		}
		return in
	}
	return leaf(s, path, key)
}

// variant picks the first alternative of an untyped oneOf/anyOf schema.
func variant(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Type != "" || s.Properties != nil || s.Items != nil {
		return s
	}
	switch {
	case len(s.OneOf) > 0 && s.OneOf[0] != nil:
		return s.OneOf[0]
	case len(s.AnyOf) > 0 && s.AnyOf[0] != nil:
		return s.AnyOf[0]
	}
	return s
}

func leaf(s *jsonschema.Schema, path, key string) *skeleton.Instruction {
	in := &skeleton.Instruction{
		Path:       path,
		Key:        key,
		Kind:       skeleton.KindScalar,
		TypeSource: skeleton.TypeInferred,
		Constraints: skeleton.Constraints{
			Min:       number(s.Minimum),
			Max:       number(s.Maximum),
			MinLength: length(s.MinLength),
			MaxLength: length(s.MaxLength),
			Pattern:   s.Pattern,
			Format:    s.Format,
		},
	}
	if len(s.Enum) > 0 {
		in.Constraints.Enum = append([]any(nil), s.Enum...)
	} else if s.Const != nil {
		in.Constraints.Enum = []any{s.Const}
	}
	if skeleton.IsScalarType(s.Type) {
		in.Type = s.Type
	}

	if k, ok := hint.Parse(s.Format); ok && s.Format != "" {
		in.Hint = k
	} else if k, ok := hint.FromKey(key); ok {
		in.Hint = k
	}

	if in.Type == "" {
		switch {
		case in.Hint.Type() != "":
			in.Type = in.Hint.Type()
		case len(in.Constraints.Enum) > 0:
			in.Type = document.TypeName(in.Constraints.Enum[0])
		default:
			in.Type, in.TypeSource = "string", skeleton.TypeDefault
		}
	}
	if !hintProduces(in.Hint, in.Type) {
		in.Hint = hint.Unknown
	}
	return in
}

// properties returns the schema's properties, merging allOf members in
// order and following references.
func properties(d *Document, s *jsonschema.Schema) *orderedmap.OrderedMap[string, *jsonschema.Schema] {
	return collectProperties(d, s, 0)
}

func collectProperties(d *Document, s *jsonschema.Schema, depth int) *orderedmap.OrderedMap[string, *jsonschema.Schema] {
	if s == nil || depth > maxRefChain {
		return nil
	}
	if s.Ref != "" {
		target, _, ok := d.Resolve(s.Ref)
		if !ok {
			return nil
		}
		return collectProperties(d, target, depth+1)
	}
	if len(s.AllOf) == 0 {
		return s.Properties
	}

	out := orderedmap.New[string, *jsonschema.Schema]()
	for _, sub := range s.AllOf {
		props := collectProperties(d, sub, depth+1)
		if props == nil {
			continue
		}
		for pair := props.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, pair.Value)
		}
	}
	return out
}

func number(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func length(n *uint64) *int {
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}
