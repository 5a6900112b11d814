package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The test binary doubles as the engine for pipe tests.
func TestMain(m *testing.M) {
	if os.Getenv("JSONSYNTH_TEST_ENGINE") == "1" {
		os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// isolate keeps config files of the host out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestGenerate(t *testing.T) {
	dir := isolate(t)
	skel := writeFile(t, dir, "user.json", `{"id": "@uuid", "email": "@email", "age": {"type": "integer", "min": 18, "max": 65}, "tags": {"type": "array", "count": 2, "items": "@word"}}`)

	res := run(t, "", "--skeleton", skel, "--seed", "42")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Contains(t, got["email"], "@")
	age := got["age"].(float64)
	assert.True(t, age >= 18 && age <= 65)

	again := run(t, "", "--skeleton", skel, "--seed", "42")
	assert.Equal(t, res.stdout, again.stdout)
}

func TestPrettyOnlyChangesWhitespace(t *testing.T) {
	dir := isolate(t)
	skel := writeFile(t, dir, "s.json", `{"name": "@name", "nested": {"n": 1, "list": [true]}}`)

	plain := run(t, "", "--skeleton", skel, "--seed", "3")
	pretty := run(t, "", "--skeleton", skel, "--seed", "3", "--pretty")
	require.Equal(t, 0, plain.code)
	require.Equal(t, 0, pretty.code)
	assert.Contains(t, pretty.stdout, "\n  \"name\"")

	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, []byte(pretty.stdout)))
	assert.Equal(t, strings.TrimSpace(plain.stdout), compact.String())
}

func TestUsageErrors(t *testing.T) {
	dir := isolate(t)
	file := writeFile(t, dir, "d.json", `{}`)

	tests := map[string][]string{
		"no mode":              {},
		"two modes":            {"--skeleton", file, "--analyze", file},
		"swagger outside mode": {"--analyze", file, "--swagger", file},
		"analyze-first":        {"--analyze", file, "--analyze-first"},
		"report":               {"--skeleton", file, "--report"},
		"unknown flag":         {"--bogus"},
		"positional":           {"extra"},
		"pipe mode":            {"pipe", "shred"},
		"pipe args":            {"pipe"},
		"schema kind":          {"schema", "--kind", "skills"},
		"infer format":         {"infer", file, "--format", "toml"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			res := run(t, "", args...)
			assert.Equal(t, 2, res.code)
			assert.Empty(t, res.stdout)
			assert.True(t, strings.HasPrefix(res.stderr, "Error: "), res.stderr)
		})
	}
}

func TestFailuresLeaveStdoutEmpty(t *testing.T) {
	dir := isolate(t)
	bad := writeFile(t, dir, "bad.json", `{"a": `)
	contra := writeFile(t, dir, "contra.json", `{"n": {"type": "integer", "min": 10, "max": 1}}`)

	tests := map[string]struct {
		args []string
		want string
	}{
		"missing skeleton": {[]string{"--skeleton", filepath.Join(dir, "nope.json")}, "cannot read skeleton file"},
		"missing swagger":  {[]string{"--skeleton", contra, "--swagger", filepath.Join(dir, "nope.yaml")}, "cannot read swagger file"},
		"invalid json":     {[]string{"--analyze", bad}, "invalid JSON"},
		"contradictory":    {[]string{"--skeleton", contra}, "unsatisfiable constraints at n"},
		"bad log level":    {[]string{"--analyze", bad, "--log-level", "loud"}, "invalid configuration"},
		"missing config":   {[]string{"--analyze", bad, "--config", filepath.Join(dir, "nope.yaml")}, "failed to read config file"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res := run(t, "", tt.args...)
			assert.Equal(t, 1, res.code)
			assert.Empty(t, res.stdout)
			assert.Contains(t, res.stderr, "Error: ")
			assert.Contains(t, res.stderr, tt.want)
		})
	}
}

func TestAnalyze(t *testing.T) {
	dir := isolate(t)
	data := writeFile(t, dir, "d.json", `{"user": {"ssn": "123-45-6789", "note": "hello"}}`)

	res := run(t, "", "--analyze", data)
	require.Equal(t, 0, res.code, res.stderr)

	var report struct {
		SensitiveFields []struct {
			Path      string `json:"path"`
			FieldType string `json:"field_type"`
		} `json:"sensitive_fields"`
		TotalFields     int      `json:"total_fields"`
		Recommendations []string `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	require.Len(t, report.SensitiveFields, 1)
	assert.Equal(t, "user.ssn", report.SensitiveFields[0].Path)
	assert.Equal(t, "ssn", report.SensitiveFields[0].FieldType)
	assert.Equal(t, 1, report.TotalFields)
	assert.Len(t, report.Recommendations, 1)
}

func TestAnonymizeToFile(t *testing.T) {
	dir := isolate(t)
	data := writeFile(t, dir, "d.json", `{"email": "jane.doe@example.com", "count": 3}`)
	out := filepath.Join(dir, "out", "safe.json")

	res := run(t, "", "--anonymize", data, "--analyze-first", "--output", out, "--report")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.NotEqual(t, "jane.doe@example.com", envelope.Data["email"])
	assert.Equal(t, float64(3), envelope.Data["count"])
}

func TestConfigFileIsRead(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, "jsonsynth.yaml", "anonymize:\n  mask_types: [email]\n  redaction_mask: \"***\"\n")
	data := writeFile(t, dir, "d.json", `{"email": "jane.doe@example.com"}`)

	res := run(t, "", "--anonymize", data)
	require.Equal(t, 0, res.code, res.stderr)
	assert.JSONEq(t, `{"email": "***"}`, res.stdout)
}

func TestInfer(t *testing.T) {
	dir := isolate(t)
	sample := writeFile(t, dir, "sample.json", `{"id": 1, "email": "a@b.io"}`)

	res := run(t, "", "infer", sample, "--format", "yaml")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "openapi: 3.0.0")
	assert.Contains(t, res.stdout, "Root:")

	res = run(t, "", "infer", sample)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"$ref":"#/components/schemas/Root"`)
}

func TestInferredSwaggerDrivesGeneration(t *testing.T) {
	dir := isolate(t)
	sample := writeFile(t, dir, "sample.json", `{"id": 1, "email": "a@b.io", "tags": ["x"]}`)
	api := filepath.Join(dir, "api.json")
	skel := writeFile(t, dir, "skel.json", `{"payload": "@Root"}`)

	require.Equal(t, 0, run(t, "", "infer", sample, "-o", api).code)

	res := run(t, "", "--skeleton", skel, "--swagger", api, "--seed", "5")
	require.Equal(t, 0, res.code, res.stderr)

	var got struct {
		Payload struct {
			ID    json.Number `json:"id"`
			Email string      `json:"email"`
			Tags  []string    `json:"tags"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	_, err := got.Payload.ID.Int64()
	assert.NoError(t, err)
	assert.Contains(t, got.Payload.Email, "@")
}

func TestSchema(t *testing.T) {
	isolate(t)

	res := run(t, "", "schema", "--kind", "report")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "sensitive_fields")

	res = run(t, "", "schema")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "redaction_mask")
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version")
	require.Equal(t, 0, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "jsonsynth "))
}

func TestPipe(t *testing.T) {
	dir := isolate(t)
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	t.Setenv("JSONSYNTH_TEST_ENGINE", "1")

	res := run(t, `{"contact": {"phone": "+33 6 12 34 56 78"}}`, "pipe", "analyze", "--engine", os.Args[0])
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"contact.phone"`)

	res = run(t, `{"skeleton": `, "pipe", "generate", "--engine", os.Args[0])
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Error: ")

	swagger := writeFile(t, dir, "api.yaml", "openapi: 3.0.0\ncomponents:\n  schemas:\n    User:\n      type: object\n      properties:\n        age: {type: integer, minimum: 1, maximum: 9}\n")
	res = run(t, `{"user": "@User"}`, "pipe", "generate", "--swagger", swagger, "--seed", "1", "--pretty", "--engine", os.Args[0])
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "\n  \"user\": {")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files left behind")
}

func TestOutputFileIsReplacedWhole(t *testing.T) {
	dir := isolate(t)
	data := writeFile(t, dir, "d.json", `{"note": "hello"}`)
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o750))
	out := writeFile(t, outDir, "result.json", `{"previous": true}`)

	res := run(t, "", "--analyze", data, "--output", out)
	require.Equal(t, 0, res.code, res.stderr)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sensitive_fields"`)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary output left behind")

	// A directory in the way makes the final rename fail.
	blocked := filepath.Join(outDir, "blocked.json")
	require.NoError(t, os.Mkdir(blocked, 0o750))
	writeFile(t, blocked, "keep", "x")

	res = run(t, "", "--analyze", data, "--output", blocked)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "writing output")
	entries, err = os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
