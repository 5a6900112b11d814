package skeleton

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
)

var keywords = map[string]bool{
	"type":        true,
	"hint":        true,
	"$ref":        true,
	"schema":      true,
	"min":         true,
	"max":         true,
	"minimum":     true,
	"maximum":     true,
	"minLength":   true,
	"maxLength":   true,
	"length":      true,
	"enum":        true,
	"pattern":     true,
	"format":      true,
	"count":       true,
	"minItems":    true,
	"maxItems":    true,
	"items":       true,
	"properties":  true,
	"after":       true,
	"before":      true,
	"nullable":    true,
	"description": true,
	"example":     true,
}

// Parse converts a decoded skeleton document into a node tree.
func Parse(doc any) (Node, error) {
	return parse(doc, "", "")
}

func itemPath(path string) string {
	return path + "[*]"
}

func parse(v any, path, key string) (Node, error) {
	switch t := v.(type) {
	case *document.Object:
		if isDescriptor(t) {
			return parseDescriptor(t, path, key)
		}
		obj := &Object{Path: path, Key: key}
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			child, err := parse(pair.Value, document.Join(path, pair.Key), pair.Key)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, Field{Name: pair.Key, Node: child})
		}
		return obj, nil
	case []any:
		arr := &Array{Path: path, Key: key}
		if len(t) > 0 {
			item, err := parse(t[0], itemPath(path), key)
			if err != nil {
				return nil, err
			}
			arr.Item = item
		}
		return arr, nil
	case string:
		if name, ok := strings.CutPrefix(t, "@"); ok && strings.TrimSpace(name) != "" {
			return &Scalar{Path: path, Key: key, HintName: strings.TrimSpace(name)}, nil
		}
		if strings.TrimSpace(t) == "" {
			return &Scalar{Path: path, Key: key, InferFromKey: true}, nil
		}
		return &Scalar{Path: path, Key: key, Type: "string", TypeSource: TypeLiteral, Literal: t}, nil
	case nil:
		return &Scalar{Path: path, Key: key, InferFromKey: true}, nil
	case bool:
		return &Scalar{Path: path, Key: key, Type: "boolean", TypeSource: TypeLiteral, Literal: t}, nil
	case json.Number:
		typ := "number"
		if document.IsInteger(t) {
			typ = "integer"
		}
		return &Scalar{Path: path, Key: key, Type: typ, TypeSource: TypeLiteral, Literal: t}, nil
	default:
		return nil, malformed(path, "unsupported value of type %T", v)
	}
}

// isDescriptor reports whether obj is a type descriptor rather than a
// literal object: every key is a keyword and at least one of type (naming a
// JSON type), hint, $ref or schema is present.
func isDescriptor(obj *document.Object) bool {
	if obj.Len() == 0 {
		return false
	}
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if !keywords[pair.Key] {
			return false
		}
	}
	if t, ok := obj.Get("type"); ok {
		if s, ok := t.(string); ok && (IsScalarType(s) || s == "object" || s == "array") {
			return true
		}
	}
	for _, k := range []string{"hint", "$ref", "schema"} {
		if _, ok := obj.Get(k); ok {
			return true
		}
	}
	return false
}

type descriptor struct {
	obj  *document.Object
	path string
}

func parseDescriptor(obj *document.Object, path, key string) (Node, error) {
	d := descriptor{obj: obj, path: path}

	typ, err := d.str("type")
	if err != nil {
		return nil, err
	}
	if typ != "" && !IsScalarType(typ) && typ != "object" && typ != "array" {
		return nil, malformed(path, "unknown type %q", typ)
	}
	hintName, err := d.str("hint")
	if err != nil {
		return nil, err
	}
	ref, err := d.str("$ref")
	if err != nil {
		return nil, err
	}
	schema, err := d.str("schema")
	if err != nil {
		return nil, err
	}
	if ref != "" && schema != "" && ref != schema {
		return nil, malformed(path, "both $ref %q and schema %q given", ref, schema)
	}
	if ref == "" {
		ref = schema
	}

	items, hasItems := obj.Get("items")
	props, hasProps := obj.Get("properties")
	switch {
	case hasItems && hasProps:
		return nil, malformed(path, "node declares both items and properties")
	case IsScalarType(typ) && hasItems:
		return nil, malformed(path, "type %q cannot have items", typ)
	case IsScalarType(typ) && hasProps:
		return nil, malformed(path, "type %q cannot have properties", typ)
	case typ == "array" && hasProps:
		return nil, malformed(path, "type \"array\" cannot have properties")
	case typ == "object" && hasItems:
		return nil, malformed(path, "type \"object\" cannot have items")
	}

	c, err := d.constraints()
	if err != nil {
		return nil, err
	}
	sized := c.Count != nil || c.MinItems != nil || c.MaxItems != nil
	if sized && (IsScalarType(typ) || typ == "object" || hasProps) {
		return nil, malformed(path, "count, minItems and maxItems only apply to arrays")
	}

	nullable, err := d.boolean("nullable")
	if err != nil {
		return nil, err
	}

	switch {
	case typ == "object" || hasProps:
		o := &Object{Path: path, Key: key, HintName: hintName, Ref: ref}
		if hasProps {
			fields, ok := props.(*document.Object)
			if !ok {
				return nil, malformed(path, "properties must be an object, got %s", document.TypeName(props))
			}
			for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
				child, err := parse(pair.Value, document.Join(path, pair.Key), pair.Key)
				if err != nil {
					return nil, err
				}
				o.Fields = append(o.Fields, Field{Name: pair.Key, Node: child})
			}
		}
		return o, nil

	case typ == "array" || hasItems || sized:
		a := &Array{Path: path, Key: key, Constraints: arrayConstraints(c)}
		if hasItems {
			item, err := parse(items, itemPath(path), key)
			if err != nil {
				return nil, err
			}
			a.Item = item
			a.HintName, a.Ref = hintName, ref
			return a, nil
		}
		// Without an items template the hint, reference and scalar
		// constraints describe each item.
		a.Item = &Scalar{
			Path:         itemPath(path),
			Key:          key,
			HintName:     hintName,
			Ref:          ref,
			Constraints:  scalarConstraints(c),
			InferFromKey: hintName == "" && ref == "",
		}
		return a, nil
	}

	example, _ := obj.Get("example")
	if document.IsLeaf(example) {
		if s, ok := example.(string); ok && strings.TrimSpace(s) == "" {
			example = nil
		}
	} else {
		example = nil
	}

	s := &Scalar{
		Path:        path,
		Key:         key,
		Type:        typ,
		HintName:    hintName,
		Ref:         ref,
		Constraints: c,
		Literal:     example,
		Nullable:    nullable,
	}
	if typ != "" {
		s.TypeSource = TypeDeclared
	}
	return s, nil
}

func arrayConstraints(c Constraints) Constraints {
	return Constraints{Count: c.Count, MinItems: c.MinItems, MaxItems: c.MaxItems}
}

func scalarConstraints(c Constraints) Constraints {
	c.Count, c.MinItems, c.MaxItems = nil, nil, nil
	return c
}

func (d descriptor) str(key string) (string, error) {
	v, ok := d.obj.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed(d.path, "%s must be a string, got %s", key, document.TypeName(v))
	}
	return strings.TrimSpace(s), nil
}

func (d descriptor) boolean(key string) (bool, error) {
	v, ok := d.obj.Get(key)
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, malformed(d.path, "%s must be a boolean, got %s", key, document.TypeName(v))
	}
	return b, nil
}

// number reads the first present key among aliases.
func (d descriptor) number(aliases ...string) (*float64, error) {
	for _, key := range aliases {
		v, ok := d.obj.Get(key)
		if !ok || v == nil {
			continue
		}
		n, ok := v.(json.Number)
		if !ok {
			return nil, malformed(d.path, "%s must be a number, got %s", key, document.TypeName(v))
		}
		f, err := n.Float64()
		if err != nil {
			return nil, malformed(d.path, "%s: %v", key, err)
		}
		return &f, nil
	}
	return nil, nil
}

func (d descriptor) count(key string) (*int, error) {
	v, ok := d.obj.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil, malformed(d.path, "%s must be an integer, got %s", key, document.TypeName(v))
	}
	i, err := n.Int64()
	if err != nil {
		return nil, malformed(d.path, "%s must be an integer, got %s", key, n)
	}
	if i < 0 {
		return nil, malformed(d.path, "%s must not be negative, got %d", key, i)
	}
	out := int(i)
	return &out, nil
}

func (d descriptor) date(key string) (*time.Time, error) {
	s, err := d.str(key)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, malformed(d.path, "%s: %v", key, err)
	}
	return &t, nil
}

func (d descriptor) constraints() (Constraints, error) {
	var c Constraints
	var err error

	if c.Min, err = d.number("min", "minimum"); err != nil {
		return c, err
	}
	if c.Max, err = d.number("max", "maximum"); err != nil {
		return c, err
	}
	if c.MinLength, err = d.count("minLength"); err != nil {
		return c, err
	}
	if c.MaxLength, err = d.count("maxLength"); err != nil {
		return c, err
	}
	length, err := d.count("length")
	if err != nil {
		return c, err
	}
	if length != nil {
		if c.MinLength == nil {
			c.MinLength = length
		}
		if c.MaxLength == nil {
			c.MaxLength = length
		}
	}

	if v, ok := d.obj.Get("enum"); ok {
		members, ok := v.([]any)
		if !ok {
			return c, malformed(d.path, "enum must be an array, got %s", document.TypeName(v))
		}
		for i, m := range members {
			if !document.IsLeaf(m) {
				return c, malformed(d.path, "enum[%d] must be a scalar, got %s", i, document.TypeName(m))
			}
		}
		c.Enum = members
	}

	if c.Pattern, err = d.str("pattern"); err != nil {
		return c, err
	}
	if c.Format, err = d.str("format"); err != nil {
		return c, err
	}
	if c.Count, err = d.count("count"); err != nil {
		return c, err
	}
	if c.MinItems, err = d.count("minItems"); err != nil {
		return c, err
	}
	if c.MaxItems, err = d.count("maxItems"); err != nil {
		return c, err
	}
	if c.After, err = d.date("after"); err != nil {
		return c, err
	}
	if c.Before, err = d.date("before"); err != nil {
		return c, err
	}
	return c, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime accepts RFC 3339 timestamps and plain dates.
func ParseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
