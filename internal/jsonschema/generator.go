// Package jsonschema produces JSON Schemas: reflected ones for the analysis
// report and the configuration file, and inferred ones for sample payloads.
package jsonschema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
)

const baseURL = "https://raw.githubusercontent.com/takumiyoshikawa/jsonsynth/main/"

// Kinds lists the schemas Generate knows.
var Kinds = []string{"report", "config"}

// Generate creates the JSON Schema of kind: "report" for the analyze mode
// output, "config" for jsonsynth.yaml files.
func Generate(kind string) ([]byte, error) {
	var s *jsonschema.Schema

	switch kind {
	case "report":
		r := &jsonschema.Reflector{}
		s = r.Reflect(&detect.Report{})
		s.ID = baseURL + "report.schema.json"
		s.Title = "jsonsynth analysis report"
		s.Description = "Output of jsonsynth --analyze"
	case "config":
		r := &jsonschema.Reflector{
			// Use yaml struct tags for property names instead of Go field names.
			FieldNameTag: "yaml",
		}
		s = r.Reflect(&config.Config{})
		s.ID = baseURL + "config.schema.json"
		s.Title = "jsonsynth"
		s.Description = "Schema for jsonsynth YAML configuration files (jsonsynth.yaml)"
	default:
		return nil, fmt.Errorf("unknown schema kind %q (want report or config)", kind)
	}

	return json.MarshalIndent(s, "", "  ")
}
