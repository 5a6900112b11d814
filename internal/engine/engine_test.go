package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumiyoshikawa/jsonsynth/internal/anonymize"
	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
	"github.com/takumiyoshikawa/jsonsynth/internal/swagger"
	"github.com/takumiyoshikawa/jsonsynth/internal/synth"
)

// memorySource serves documents from memory.
type memorySource struct {
	docs     map[string]string
	swaggers map[string]string
}

func (m *memorySource) ReadDocument(path string) (any, error) {
	src, ok := m.docs[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return document.DecodeBytes([]byte(src))
}

func (m *memorySource) ReadSwagger(path string) (*swagger.Document, error) {
	src, ok := m.swaggers[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	v, err := document.FromYAML([]byte(src))
	if err != nil {
		return nil, err
	}
	return swagger.FromValue(v)
}

func newEngine(docs map[string]string) *Engine {
	return NewWith(config.Defaults(), &memorySource{docs: docs, swaggers: map[string]string{
		"api.yaml": `
openapi: 3.0.0
components:
  schemas:
    User:
      type: object
      properties:
        email: {type: string, format: email}
        age: {type: integer, minimum: 18, maximum: 65}
`,
	}}, nil)
}

func TestGenerate(t *testing.T) {
	e := newEngine(map[string]string{"s.json": `{"email": "user@example.com", "age": {"type": "integer", "min": 18, "max": 65}}`})

	out, err := e.Run(Request{Mode: ModeGenerate, Input: "s.json"})
	require.NoError(t, err)
	obj := out.Document.(*document.Object)

	email, _ := obj.Get("email")
	assert.NotEqual(t, "user@example.com", email)
	age, _ := obj.Get("age")
	n, err := age.(json.Number).Int64()
	require.NoError(t, err)
	assert.True(t, n >= 18 && n <= 65)
	assert.Empty(t, out.Warnings)
}

func TestGenerateWithSwagger(t *testing.T) {
	e := newEngine(map[string]string{"s.json": `{"user": "@User"}`})

	out, err := e.Generate("s.json", "api.yaml")
	require.NoError(t, err)
	user, _ := out.Document.(*document.Object).Get("user")
	keys := []string{}
	for pair := user.(*document.Object).Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"email", "age"}, keys)
}

func TestReferenceWithoutSwaggerWarns(t *testing.T) {
	e := newEngine(map[string]string{"s.json": `{"owner": {"$ref": "#/components/schemas/User"}}`})

	out, err := e.Generate("s.json", "")
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "owner")
}

func TestAnalyze(t *testing.T) {
	e := newEngine(map[string]string{"d.json": `{"ssn": "123-45-6789", "note": "hello"}`})

	out, err := e.Run(Request{Mode: ModeAnalyze, Input: "d.json"})
	require.NoError(t, err)
	report := out.Document.(*detect.Report)
	require.Len(t, report.SensitiveFields, 1)
	assert.Equal(t, "ssn", report.SensitiveFields[0].Path)
}

func TestAnonymize(t *testing.T) {
	e := newEngine(map[string]string{"d.json": `{"ssn": "123-45-6789", "city": "Paris"}`})

	out, err := e.Run(Request{Mode: ModeAnonymize, Input: "d.json", AnalyzeFirst: true})
	require.NoError(t, err)
	ssn, _ := out.Document.(*document.Object).Get("ssn")
	assert.NotEqual(t, "123-45-6789", ssn)
	assert.Regexp(t, `^\d{3}-\d{2}-\d{4}$`, ssn)

	out, err = e.Run(Request{Mode: ModeAnonymize, Input: "d.json", Report: true})
	require.NoError(t, err)
	res := out.Document.(*anonymize.Result)
	assert.Len(t, res.SensitiveFields, 2)
	assert.NotNil(t, res.Warnings)
}

func TestErrorTaxonomy(t *testing.T) {
	e := newEngine(map[string]string{
		"bad.json":       `{"skeleton": "age": }`,
		"malformed.json": `{"x": {"type": "integer", "items": {}}}`,
		"contra.json":    `{"x": {"type": "integer", "min": 9, "max": 1}}`,
	})

	_, err := e.Generate("missing.json", "")
	assert.True(t, errors.Is(err, ErrInputNotFound))
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "skeleton", ie.Role)

	_, err = e.Generate("malformed.json", "missing.yaml")
	assert.True(t, errors.Is(err, ErrInputNotFound))

	for _, mode := range []Mode{ModeGenerate, ModeAnalyze, ModeAnonymize} {
		_, err = e.Run(Request{Mode: mode, Input: "bad.json"})
		assert.True(t, errors.Is(err, document.ErrInvalidJSON), mode)
	}

	_, err = e.Generate("malformed.json", "")
	assert.True(t, errors.Is(err, skeleton.ErrMalformedSkeleton))

	_, err = e.Generate("contra.json", "")
	assert.True(t, errors.Is(err, synth.ErrConstraintUnsatisfiable))

	_, err = e.Run(Request{Mode: "explode"})
	assert.Error(t, err)
}

func TestSeededConfigRepeats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "@uuid", "name": "@name", "n": {"type": "integer"}}`), 0o600))

	cfg := config.Defaults()
	cfg.Generate.Seed = 1234

	a, err := New(cfg, nil).Generate(path, "")
	require.NoError(t, err)
	b, err := New(cfg, nil).Generate(path, "")
	require.NoError(t, err)

	ja, _ := document.Marshal(a.Document, false)
	jb, _ := document.Marshal(b.Document, false)
	assert.Equal(t, string(ja), string(jb))
}

func TestUnknownDetectorIsAnError(t *testing.T) {
	cfg := config.Defaults()
	cfg.Detection.Detectors = []string{"passport"}
	e := NewWith(cfg, &memorySource{docs: map[string]string{"d.json": `{}`}}, nil)

	_, err := e.Analyze("d.json")
	assert.Error(t, err)
}
