// Package swagger loads OpenAPI 3 and Swagger 2 documents and cross-references
// their named schemas with a skeleton's instruction tree.
package swagger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
)

const (
	componentsPrefix  = "#/components/schemas/"
	definitionsPrefix = "#/definitions/"
)

// Document is the schema catalogue of one OpenAPI or Swagger document.
type Document struct {
	Source  string
	Version string
	names   []string
	schemas map[string]*jsonschema.Schema
}

// Load reads an OpenAPI document. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON. Read failures are returned unwrapped.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v, err = document.FromYAML(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		v, err = document.DecodeBytes(data)
		if err != nil {
			var se *document.SyntaxError
			if errors.As(err, &se) {
				se.Source = path
			}
			return nil, err
		}
	}

	doc, err := FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// FromValue builds a Document from a decoded OpenAPI tree. Schemas come
// from components.schemas (OpenAPI 3) or definitions (Swagger 2).
func FromValue(v any) (*Document, error) {
	root, ok := v.(*document.Object)
	if !ok {
		return nil, fmt.Errorf("OpenAPI document must be an object, got %s", document.TypeName(v))
	}

	doc := &Document{schemas: map[string]*jsonschema.Schema{}}
	if s, ok := root.Get("openapi"); ok {
		doc.Version = "openapi " + fmt.Sprint(s)
	} else if s, ok := root.Get("swagger"); ok {
		doc.Version = "swagger " + fmt.Sprint(s)
	}

	var catalogue *document.Object
	if comps, ok := root.Get("components"); ok {
		if c, ok := comps.(*document.Object); ok {
			if s, ok := c.Get("schemas"); ok {
				catalogue, _ = s.(*document.Object)
			}
		}
	}
	if catalogue == nil {
		if defs, ok := root.Get("definitions"); ok {
			catalogue, _ = defs.(*document.Object)
		}
	}
	if catalogue == nil {
		return doc, nil
	}

	for pair := catalogue.Oldest(); pair != nil; pair = pair.Next() {
		s, err := decodeSchema(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", pair.Key, err)
		}
		doc.names = append(doc.names, pair.Key)
		doc.schemas[pair.Key] = s
	}
	return doc, nil
}

func decodeSchema(v any) (*jsonschema.Schema, error) {
	raw, err := document.Marshal(normalize(document.Clone(v)), false)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	fixEnums(&s, 0)
	return &s, nil
}

// normalize rewrites OpenAPI dialect differences the JSON Schema model
// cannot hold: type arrays (3.1), boolean exclusive bounds (3.0) and tuple
// items.
func normalize(v any) any {
	switch t := v.(type) {
	case *document.Object:
		var drop []string
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			switch val := pair.Value.(type) {
			case []any:
				switch pair.Key {
				case "type":
					pair.Value = firstType(val)
					continue
				case "items":
					if len(val) > 0 {
						pair.Value = val[0]
					} else {
						pair.Value = document.NewObject()
					}
				}
			case bool:
				if pair.Key == "exclusiveMinimum" || pair.Key == "exclusiveMaximum" {
					drop = append(drop, pair.Key)
					continue
				}
			}
			pair.Value = normalize(pair.Value)
		}
		for _, k := range drop {
			t.Delete(k)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}

func firstType(types []any) string {
	for _, t := range types {
		if s, ok := t.(string); ok && s != "null" {
			return s
		}
	}
	return "null"
}

// fixEnums turns the float64 members encoding/json produces back into
// json.Number.
func fixEnums(s *jsonschema.Schema, depth int) {
	if s == nil || depth > 64 {
		return
	}
	for i, m := range s.Enum {
		if f, ok := m.(float64); ok {
			s.Enum[i] = json.Number(strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			fixEnums(pair.Value, depth+1)
		}
	}
	fixEnums(s.Items, depth+1)
	for _, sub := range s.AllOf {
		fixEnums(sub, depth+1)
	}
	for _, sub := range s.OneOf {
		fixEnums(sub, depth+1)
	}
	for _, sub := range s.AnyOf {
		fixEnums(sub, depth+1)
	}
}

// Names lists schema names in document order.
func (d *Document) Names() []string {
	return append([]string(nil), d.names...)
}

// Has reports whether name is a schema component, case-sensitively.
func (d *Document) Has(name string) bool {
	_, ok := d.schemas[name]
	return ok
}

// Schema returns the named schema component.
func (d *Document) Schema(name string) (*jsonschema.Schema, bool) {
	s, ok := d.schemas[name]
	return s, ok
}

// RefName strips the components or definitions prefix from a reference.
func RefName(ref string) string {
	for _, prefix := range []string{componentsPrefix, definitionsPrefix} {
		if name, ok := strings.CutPrefix(ref, prefix); ok {
			return name
		}
	}
	return ref
}

// Resolve looks up a reference in any accepted form: a full JSON pointer or
// a bare component name.
func (d *Document) Resolve(ref string) (*jsonschema.Schema, string, bool) {
	name := RefName(ref)
	s, ok := d.schemas[name]
	return s, name, ok
}
