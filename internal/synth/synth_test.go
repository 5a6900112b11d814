package synth

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)

func generate(t *testing.T, s *Synthesizer, src string) *document.Object {
	t.Helper()
	doc, err := document.DecodeBytes([]byte(src))
	require.NoError(t, err)
	in, _, err := skeleton.Compile(doc, skeleton.Options{})
	require.NoError(t, err)
	v, err := s.Generate(in)
	require.NoError(t, err)
	obj, ok := v.(*document.Object)
	require.True(t, ok)
	return obj
}

func generateErr(t *testing.T, src string) error {
	t.Helper()
	doc, err := document.DecodeBytes([]byte(src))
	require.NoError(t, err)
	in, _, err := skeleton.Compile(doc, skeleton.Options{})
	require.NoError(t, err)
	_, err = New(Options{Seed: 1}).Generate(in)
	return err
}

func TestEmailLiteralIsReplaced(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 50; i++ {
		out := generate(t, s, `{"email": "user@example.com"}`)
		v, ok := out.Get("email")
		require.True(t, ok)
		email, ok := v.(string)
		require.True(t, ok)
		assert.Regexp(t, emailRe, email)
		assert.NotEqual(t, "user@example.com", email)
	}
}

func TestIntegerRangeIsInclusive(t *testing.T) {
	s := New(Options{})
	seen := map[int64]bool{}
	for i := 0; i < 2000; i++ {
		out := generate(t, s, `{"age": {"type": "integer", "min": 18, "max": 65}}`)
		v, _ := out.Get("age")
		n, ok := v.(json.Number)
		require.True(t, ok)
		age, err := n.Int64()
		require.NoError(t, err)
		require.GreaterOrEqual(t, age, int64(18))
		require.LessOrEqual(t, age, int64(65))
		seen[age] = true
	}
	assert.True(t, seen[18] || seen[65], "bounds should be reachable")
}

func TestNumberBoundsAndRounding(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 500; i++ {
		out := generate(t, s, `{"ratio": {"type": "number", "min": 0.001, "max": 0.5}}`)
		v, _ := out.Get("ratio")
		f, err := v.(json.Number).Float64()
		require.NoError(t, err)
		require.GreaterOrEqual(t, f, 0.001)
		require.LessOrEqual(t, f, 0.5)
	}
}

func TestStringLengthBounds(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 200; i++ {
		out := generate(t, s, `{
			"code": {"type": "string", "minLength": 3, "maxLength": 5},
			"city": {"hint": "city", "maxLength": 6},
			"fixed": {"type": "string", "length": 1}
		}`)
		for _, key := range []string{"code", "city", "fixed"} {
			v, _ := out.Get(key)
			n := utf8.RuneCountInString(v.(string))
			switch key {
			case "code":
				assert.True(t, n >= 3 && n <= 5, "%s: %q", key, v)
			case "city":
				assert.LessOrEqual(t, n, 6, "%s: %q", key, v)
			case "fixed":
				assert.Equal(t, 1, n)
			}
		}
	}
}

func TestEnumIsExactMembership(t *testing.T) {
	s := New(Options{})
	allowed := map[any]bool{"red": true, "green": true, json.Number("3"): true}
	for i := 0; i < 100; i++ {
		out := generate(t, s, `{"c": {"hint": "enum", "enum": ["red", "green"]}, "n": {"type": "integer", "enum": [3, 4.5, "x"]}}`)
		c, _ := out.Get("c")
		n, _ := out.Get("n")
		assert.True(t, allowed[c], c)
		assert.Equal(t, json.Number("3"), n)
	}
}

func TestPatternConstraint(t *testing.T) {
	s := New(Options{})
	re := regexp.MustCompile(`^[A-Z]{3}-\d{4}$`)
	for i := 0; i < 50; i++ {
		out := generate(t, s, `{"ref": {"type": "string", "pattern": "^[A-Z]{3}-\\d{4}$"}}`)
		v, _ := out.Get("ref")
		assert.Regexp(t, re, v)
	}
}

func TestPatternMatchesWholeValue(t *testing.T) {
	s := New(Options{})
	word := regexp.MustCompile(`^[a-z]+$`)
	for i := 0; i < 50; i++ {
		out := generate(t, s, `{
			"code": {"type": "string", "hint": "email", "pattern": "[a-z]+"},
			"pick": {"type": "string", "enum": ["abc1", "xyz"], "pattern": "[a-z]+"}
		}`)
		code, _ := out.Get("code")
		assert.Regexp(t, word, code)
		pick, _ := out.Get("pick")
		assert.Equal(t, "xyz", pick)
	}
}

func TestIntegerBoundsBeyondSafeRange(t *testing.T) {
	s := New(Options{})
	for i := 0; i < 100; i++ {
		out := generate(t, s, `{"x": {"type": "integer", "max": 1e19}, "y": {"type": "integer", "min": -1e19, "max": 5}}`)
		x, _ := out.Get("x")
		n, err := x.(json.Number).Int64()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(0))
		assert.LessOrEqual(t, n, int64(1<<53))

		y, _ := out.Get("y")
		n, err = y.(json.Number).Int64()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(-1<<53))
		assert.LessOrEqual(t, n, int64(5))
	}
}

func TestArrays(t *testing.T) {
	s := New(Options{})

	out := generate(t, s, `{
		"one": [{"id": 1}],
		"none": [],
		"three": {"type": "array", "hint": "email", "count": 3},
		"zero": {"type": "array", "items": {"type": "integer", "min": 5, "max": 1}, "count": 0},
		"ranged": {"hint": "word", "minItems": 2, "maxItems": 3}
	}`)

	one, _ := out.Get("one")
	assert.Len(t, one, 1)
	none, _ := out.Get("none")
	assert.Equal(t, []any{}, none)

	three, _ := out.Get("three")
	require.Len(t, three, 3)
	for _, e := range three.([]any) {
		assert.Regexp(t, emailRe, e)
	}

	zero, _ := out.Get("zero")
	assert.Equal(t, []any{}, zero, "count 0 must not evaluate the item instruction")

	ranged, _ := out.Get("ranged")
	n := len(ranged.([]any))
	assert.True(t, n >= 2 && n <= 3)
}

func TestShapeMatchesSkeleton(t *testing.T) {
	src := `{"user": {"name": "", "tags": ["x"], "address": {"city": null, "zip": ""}}, "ok": true}`
	out := generate(t, New(Options{}), src)

	doc, err := document.DecodeBytes([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, document.Paths(doc), document.Paths(out))
}

func TestEmptySkeletonGeneratesEmptyObject(t *testing.T) {
	out := generate(t, New(Options{}), `{}`)
	assert.Equal(t, 0, out.Len())
}

func TestSeededRunsRepeat(t *testing.T) {
	src := `{"id": "@uuid", "name": "@name", "at": "@datetime", "n": 5, "items": {"hint": "word", "minItems": 1, "maxItems": 9}}`

	a, err := document.Marshal(generate(t, New(Options{Seed: 42}), src), false)
	require.NoError(t, err)
	b, err := document.Marshal(generate(t, New(Options{Seed: 42}), src), false)
	require.NoError(t, err)
	c, err := document.Marshal(generate(t, New(Options{Seed: 43}), src), false)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.NotEqual(t, string(a), string(c))
}

func TestHintValues(t *testing.T) {
	s := New(Options{Seed: 7})
	out := generate(t, s, `{
		"id": "@uuid",
		"born": {"hint": "date", "after": "1990-01-01", "before": "1990-12-31"},
		"card": "4111 1111 1111 1111",
		"ssn": "@ssn",
		"ip": "@ipv4",
		"phone": "@phone"
	}`)

	id, _ := out.Get("id")
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`, id)

	born, _ := out.Get("born")
	assert.Regexp(t, `^1990-\d{2}-\d{2}$`, born)

	card, _ := out.Get("card")
	assert.True(t, hint.Luhn(card.(string)))
	assert.Contains(t, card, " ")

	ssn, _ := out.Get("ssn")
	assert.Regexp(t, `^\d{3}-\d{2}-\d{4}$`, ssn)

	ip, _ := out.Get("ip")
	k, ok := hint.FromLiteral(ip.(string))
	assert.True(t, ok)
	assert.Equal(t, hint.IPv4, k)

	phone, _ := out.Get("phone")
	assert.True(t, hint.LooksLikePhone(phone.(string)), phone)
}

func TestUnknownHintFallsBackToTypeDefault(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		out := generate(t, New(Options{Seed: seed}), `{
			"ship": "@spaceship",
			"n": {"type": "integer", "hint": "spaceship"},
			"f": {"type": "number", "hint": "spaceship"},
			"b": {"type": "boolean", "hint": "spaceship"}
		}`)
		ship, _ := out.Get("ship")
		assert.Equal(t, "", ship)
		n, _ := out.Get("n")
		assert.Equal(t, json.Number("0"), n)
		f, _ := out.Get("f")
		assert.Equal(t, json.Number("0"), f)
		b, _ := out.Get("b")
		assert.Equal(t, false, b)
	}
}

func TestContradictoryConstraints(t *testing.T) {
	cases := map[string]string{
		"min above max":       `{"x": {"type": "integer", "min": 10, "max": 1}}`,
		"no integer in range": `{"x": {"type": "integer", "min": 1.2, "max": 1.8}}`,
		"length inverted":     `{"x": {"type": "string", "minLength": 5, "maxLength": 2}}`,
		"empty enum":          `{"x": {"type": "string", "enum": []}}`,
		"enum of wrong type":  `{"x": {"type": "integer", "enum": ["a", "b"]}}`,
		"bad pattern":         `{"x": {"type": "string", "pattern": "([a-z"}}`,
		"dates inverted":      `{"x": {"hint": "date", "after": "2021-01-01", "before": "2020-01-01"}}`,
		"count over max":      `{"x": {"type": "array", "items": 1, "count": 9, "maxItems": 2}}`,
		"nested":              `{"a": [{"b": {"type": "number", "min": 3, "max": 2}}]}`,
		"min beyond 2^53":     `{"x": {"type": "integer", "min": 1e19}}`,
		"max below -2^53":     `{"x": {"type": "integer", "max": -1e19}}`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			err := generateErr(t, src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConstraintUnsatisfiable))
		})
	}
}
