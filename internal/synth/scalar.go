package synth

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

const (
	defaultMin = 0
	defaultMax = 1000

	// maxSafeInt bounds integers so every value survives a float64 round
	// trip in JSON consumers.
	maxSafeInt = 1 << 53
)

func (s *Synthesizer) scalar(in *skeleton.Instruction) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.Nullable && s.faker.IntRange(0, 9) == 0 {
		return nil, nil
	}
	if len(in.Constraints.Enum) > 0 {
		return s.enum(in)
	}
	if unknownHint(in) && in.Constraints.IsZero() {
		switch in.Type {
		case "integer", "number":
			return json.Number("0"), nil
		case "boolean":
			return false, nil
		}
	}

	switch in.Type {
	case "null":
		return nil, nil
	case "boolean":
		return s.faker.Bool(), nil
	case "integer":
		return s.integer(in)
	case "number":
		return s.number(in)
	case "string":
		return s.str(in)
	default:
		return nil, fmt.Errorf("instruction at %s has unknown type %q", in.Path, in.Type)
	}
}

// unknownHint reports a hint name that is neither a known hint nor a schema.
func unknownHint(in *skeleton.Instruction) bool {
	return in.HintName != "" && in.Hint == hint.Unknown && in.Ref == ""
}

// fullMatch compiles pattern so that it must match the whole value.
func fullMatch(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

// validate rejects constraint sets that contradict themselves.
func validate(in *skeleton.Instruction) error {
	c := in.Constraints
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return unsatisfiable(in.Path, "min %v > max %v", *c.Min, *c.Max)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return unsatisfiable(in.Path, "minLength %d > maxLength %d", *c.MinLength, *c.MaxLength)
	}
	if c.Enum != nil && len(c.Enum) == 0 {
		return unsatisfiable(in.Path, "enum is empty")
	}
	if c.After != nil && c.Before != nil && c.After.After(*c.Before) {
		return unsatisfiable(in.Path, "after %s is later than before %s",
			c.After.Format(time.RFC3339), c.Before.Format(time.RFC3339))
	}
	if c.Pattern != "" {
		if _, err := fullMatch(c.Pattern); err != nil {
			return unsatisfiable(in.Path, "pattern %q does not compile: %v", c.Pattern, err)
		}
	}
	return nil
}

func (s *Synthesizer) enum(in *skeleton.Instruction) (any, error) {
	var candidates, fresh []any
	for _, m := range in.Constraints.Enum {
		if !satisfies(in, m) {
			continue
		}
		candidates = append(candidates, m)
		if !equalLiteral(in, m) {
			fresh = append(fresh, m)
		}
	}
	if len(fresh) > 0 {
		candidates = fresh
	}
	if len(candidates) == 0 {
		return nil, unsatisfiable(in.Path, "no enum member is a valid %s within the other constraints", in.Type)
	}
	return candidates[s.faker.IntRange(0, len(candidates)-1)], nil
}

func equalLiteral(in *skeleton.Instruction, v any) bool {
	if in.Literal == nil {
		return false
	}
	return fmt.Sprint(in.Literal) == fmt.Sprint(v)
}

// satisfies reports whether v is a valid value of in's type under every
// constraint. Enum membership is checked by the caller.
func satisfies(in *skeleton.Instruction, v any) bool {
	c := in.Constraints
	switch in.Type {
	case "null":
		return v == nil
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer", "number":
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		if in.Type == "integer" && !document.IsInteger(n) {
			return false
		}
		f, err := n.Float64()
		if err != nil {
			return false
		}
		return (c.Min == nil || f >= *c.Min) && (c.Max == nil || f <= *c.Max)
	case "string":
		str, ok := v.(string)
		if !ok {
			return false
		}
		if !lengthOK(c, str) {
			return false
		}
		if c.Pattern != "" {
			re, err := fullMatch(c.Pattern)
			if err != nil || !re.MatchString(str) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func lengthOK(c skeleton.Constraints, str string) bool {
	n := utf8.RuneCountInString(str)
	return (c.MinLength == nil || n >= *c.MinLength) && (c.MaxLength == nil || n <= *c.MaxLength)
}

func (s *Synthesizer) integer(in *skeleton.Instruction) (any, error) {
	c := in.Constraints
	lo, hi := float64(defaultMin), float64(defaultMax)
	if c.Min != nil {
		lo = math.Ceil(*c.Min)
		hi = lo + defaultMax
	}
	if c.Max != nil {
		hi = math.Floor(*c.Max)
		if c.Min == nil && hi < lo {
			lo = hi - defaultMax
		}
	}
	if lo > hi {
		return nil, unsatisfiable(in.Path, "no integer between %s and %s", bound(c.Min), bound(c.Max))
	}
	if lo > maxSafeInt || hi < -maxSafeInt {
		return nil, unsatisfiable(in.Path, "integer bounds %s..%s lie outside ±2^53", bound(c.Min), bound(c.Max))
	}
	lo, hi = math.Max(lo, -maxSafeInt), math.Min(hi, maxSafeInt)

	v := s.faker.IntRange(int(lo), int(hi))
	return json.Number(strconv.FormatInt(int64(v), 10)), nil
}

func bound(f *float64) string {
	if f == nil {
		return "unbounded"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func (s *Synthesizer) number(in *skeleton.Instruction) (any, error) {
	c := in.Constraints
	lo, hi := float64(defaultMin), float64(defaultMax)
	if c.Min != nil {
		lo = *c.Min
		hi = lo + defaultMax
	}
	if c.Max != nil {
		hi = *c.Max
		if c.Min == nil && hi < lo {
			lo = hi - defaultMax
		}
	}

	v := math.Round(s.faker.Float64Range(lo, hi)*100) / 100
	v = math.Max(lo, math.Min(hi, v))
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), nil
}

func (s *Synthesizer) str(in *skeleton.Instruction) (any, error) {
	c := in.Constraints
	if c.Pattern != "" {
		return s.pattern(in)
	}

	if in.Hint != hint.Unknown {
		for i := 0; i < maxAttempts; i++ {
			v, ok := s.fromHint(in)
			if !ok {
				break
			}
			if s.fits(in, v) {
				return v, nil
			}
		}
	} else if in.HintName != "" && c.MinLength == nil && c.MaxLength == nil {
		// Unrecognized hint without length bounds: the type default.
		return "", nil
	}
	return s.generic(in), nil
}

// fits reports whether a candidate string honours the length bounds and
// differs from the skeleton's example.
func (s *Synthesizer) fits(in *skeleton.Instruction, v string) bool {
	if lit, ok := in.Literal.(string); ok && lit == v {
		return false
	}
	return lengthOK(in.Constraints, v)
}

func (s *Synthesizer) pattern(in *skeleton.Instruction) (any, error) {
	re, err := fullMatch(in.Constraints.Pattern)
	if err != nil {
		return nil, unsatisfiable(in.Path, "pattern %q does not compile: %v", in.Constraints.Pattern, err)
	}

	if in.Hint != hint.Unknown && in.Hint != hint.Regex {
		for i := 0; i < maxAttempts; i++ {
			v, ok := s.fromHint(in)
			if !ok {
				break
			}
			if re.MatchString(v) && s.fits(in, v) {
				return v, nil
			}
		}
	}
	for i := 0; i < maxAttempts; i++ {
		v := s.faker.Regex(in.Constraints.Pattern)
		if re.MatchString(v) && s.fits(in, v) {
			return v, nil
		}
	}
	return nil, unsatisfiable(in.Path, "no value matching %q within the length bounds", in.Constraints.Pattern)
}

// generic produces a lowercase word or letter run within the length bounds.
func (s *Synthesizer) generic(in *skeleton.Instruction) string {
	c := in.Constraints
	lit, _ := in.Literal.(string)

	if c.MinLength == nil && c.MaxLength == nil {
		for i := 0; i < maxAttempts; i++ {
			if w := s.faker.Word(); w != lit && w != "" {
				return w
			}
		}
		return differ(strings.ToLower(s.faker.LetterN(8)), lit)
	}

	lo, hi := 1, 16
	if c.MinLength != nil {
		lo = *c.MinLength
		if hi < lo {
			hi = lo + 16
		}
	}
	if c.MaxLength != nil {
		hi = *c.MaxLength
		if lo > hi {
			lo = hi
		}
	}
	n := s.faker.IntRange(lo, hi)
	return differ(strings.ToLower(s.faker.LetterN(uint(n))), lit)
}

// differ changes the first letter of v when it equals lit.
func differ(v, lit string) string {
	if v != lit || v == "" {
		return v
	}
	if v[0] == 'a' {
		return "b" + v[1:]
	}
	return "a" + v[1:]
}
