package document

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePreservesKeyOrder(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"zeta": 1, "alpha": {"b": true, "a": null}, "mid": [1, "x"]}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)

	var keys []string
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)

	out, err := Marshal(v, false)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":{"b":true,"a":null},"mid":[1,"x"]}`+"\n", string(out))
}

func TestDecodeKeepsNumbersExact(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"big": 12345678901234567890, "f": 1.50}`))
	require.NoError(t, err)

	obj := v.(*Object)
	big, _ := obj.Get("big")
	assert.Equal(t, json.Number("12345678901234567890"), big)
	f, _ := obj.Get("f")
	assert.Equal(t, json.Number("1.50"), f)
}

func TestDecodeInvalidJSON(t *testing.T) {
	cases := map[string]string{
		"misplaced colon": `{"skeleton": "age": }`,
		"empty input":     ``,
		"trailing data":   `{} {}`,
		"unterminated":    `[1, 2`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBytes([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidJSON))
		})
	}
}

func TestReadFileAnnotatesSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":`), 0o600))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPrettyOnlyChangesWhitespace(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"b":[1,{"c":"<x>"}],"a":"é"}`))
	require.NoError(t, err)

	compact, err := Marshal(v, false)
	require.NoError(t, err)
	pretty, err := Marshal(v, true)
	require.NoError(t, err)

	assert.NotEqual(t, string(compact), string(pretty))
	assert.True(t, strings.HasPrefix(string(pretty), "{\n  \"b\""))

	reparsed, err := DecodeBytes(pretty)
	require.NoError(t, err)
	again, err := Marshal(reparsed, false)
	require.NoError(t, err)
	assert.Equal(t, string(compact), string(again))
}

func TestCloneIsDeep(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"user": {"emails": ["a@b.io"]}}`))
	require.NoError(t, err)

	c := Clone(v).(*Object)
	user, _ := c.Get("user")
	emails, _ := user.(*Object).Get("emails")
	emails.([]any)[0] = "changed"

	orig, err := Marshal(v, false)
	require.NoError(t, err)
	assert.Contains(t, string(orig), "a@b.io")
}

func TestPaths(t *testing.T) {
	v, err := DecodeBytes([]byte(`{"user": {"name": "x", "tags": ["a", "b"]}, "first name": 1, "list": []}`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"user",
		"user.name",
		"user.tags",
		"user.tags[0]",
		"user.tags[1]",
		`["first name"]`,
		"list",
	}, Paths(v))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "integer", TypeName(json.Number("3")))
	assert.Equal(t, "number", TypeName(json.Number("3.5")))
	assert.Equal(t, "object", TypeName(NewObject()))
	assert.Equal(t, "array", TypeName([]any{}))
}

func TestYAMLRoundTrip(t *testing.T) {
	src := []byte(`
openapi: 3.0.0
components:
  schemas:
    User:
      type: object
      properties:
        zip:
          type: string
          pattern: "^[0-9]{5}$"
        age:
          type: integer
          minimum: 18
        ratio:
          type: number
          maximum: 0.5
        active:
          type: boolean
        note: ~
`)
	v, err := FromYAML(src)
	require.NoError(t, err)

	out, err := Marshal(v, false)
	require.NoError(t, err)
	assert.Equal(t,
		`{"openapi":"3.0.0","components":{"schemas":{"User":{"type":"object","properties":{"zip":{"type":"string","pattern":"^[0-9]{5}$"},"age":{"type":"integer","minimum":18},"ratio":{"type":"number","maximum":0.5},"active":{"type":"boolean"},"note":null}}}}}`+"\n",
		string(out))

	back, err := ToYAML(v)
	require.NoError(t, err)
	again, err := FromYAML(back)
	require.NoError(t, err)
	againJSON, err := Marshal(again, false)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(againJSON))
}
