package jsonschema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
)

// RootSchema is the component name Infer files the sample's schema under.
const RootSchema = "Root"

var formats = map[hint.Kind]string{
	hint.Email:    "email",
	hint.UUID:     "uuid",
	hint.Date:     "date",
	hint.DateTime: "date-time",
	hint.IPv4:     "ipv4",
	hint.URL:      "uri",
}

// Infer describes the shape of sample. Arrays are described by their first
// element, null becomes a nullable string, and strings with a recognisable
// shape get a format.
func Infer(sample any) *jsonschema.Schema {
	switch v := sample.(type) {
	case *document.Object:
		props := orderedmap.New[string, *jsonschema.Schema]()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			props.Set(pair.Key, Infer(pair.Value))
		}
		return &jsonschema.Schema{Type: "object", Properties: props}
	case []any:
		items := &jsonschema.Schema{}
		if len(v) > 0 {
			items = Infer(v[0])
		}
		return &jsonschema.Schema{Type: "array", Items: items}
	case nil:
		return &jsonschema.Schema{Type: "string", Extras: map[string]any{"nullable": true}}
	case string:
		s := &jsonschema.Schema{Type: "string"}
		if k, ok := hint.FromLiteral(v); ok {
			s.Format = formats[k]
		}
		return s
	default:
		return &jsonschema.Schema{Type: document.TypeName(v)}
	}
}

// OpenAPI wraps the inferred schema of sample in a minimal OpenAPI 3.0
// document with one GET endpoint returning it.
func OpenAPI(sample any, title string) (*document.Object, error) {
	raw, err := json.Marshal(Infer(sample))
	if err != nil {
		return nil, fmt.Errorf("encode inferred schema: %w", err)
	}
	schema, err := document.DecodeBytes(raw)
	if err != nil {
		return nil, err
	}

	info := document.NewObject()
	info.Set("title", title)
	info.Set("version", "1.0.0")

	ref := document.NewObject()
	ref.Set("$ref", "#/components/schemas/"+RootSchema)
	media := document.NewObject()
	media.Set("schema", ref)
	content := document.NewObject()
	content.Set("application/json", media)
	ok := document.NewObject()
	ok.Set("description", "Successful response")
	ok.Set("content", content)
	responses := document.NewObject()
	responses.Set("200", ok)
	get := document.NewObject()
	get.Set("summary", "Example endpoint")
	get.Set("responses", responses)
	item := document.NewObject()
	item.Set("get", get)
	paths := document.NewObject()
	paths.Set("/example", item)

	schemas := document.NewObject()
	schemas.Set(RootSchema, schema)
	components := document.NewObject()
	components.Set("schemas", schemas)

	doc := document.NewObject()
	doc.Set("openapi", "3.0.0")
	doc.Set("info", info)
	doc.Set("paths", paths)
	doc.Set("components", components)
	return doc, nil
}
