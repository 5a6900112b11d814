// Package document holds the JSON value model shared by every pipeline.
//
// Values are nil, bool, json.Number, string, []any or *Object. Objects keep
// the key order of their source so generated and anonymized output mirrors
// the input layout.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered JSON object.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// ErrInvalidJSON is matched by every decoding failure.
var ErrInvalidJSON = errors.New("invalid JSON")

// SyntaxError reports input that is not a single well-formed JSON value.
type SyntaxError struct {
	Source string
	Offset int64
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid JSON in %s at offset %d: %v", e.Source, e.Offset, e.Err)
	}
	return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func (e *SyntaxError) Is(target error) bool { return target == ErrInvalidJSON }

// Decode reads exactly one JSON value from r.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, &SyntaxError{Offset: dec.InputOffset(), Err: err}
	}

	if tok, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected trailing data %v", tok)
		}
		return nil, &SyntaxError{Offset: dec.InputOffset(), Err: err}
	}
	return v, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (any, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the JSON document stored at path. Read failures are
// returned unwrapped so callers can inspect them with errors.Is.
func ReadFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := DecodeBytes(data)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.Source = path
		}
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// Encode writes v as JSON followed by a newline. Pretty output uses a two
// space indent and changes nothing but whitespace.
func Encode(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// Marshal is Encode into a fresh buffer.
func Marshal(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, pretty); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a deep structural copy of v.
func Clone(v any) any {
	switch t := v.(type) {
	case *Object:
		out := NewObject()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Clone(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return t
	}
}

// IsLeaf reports whether v is a JSON scalar.
func IsLeaf(v any) bool {
	switch v.(type) {
	case *Object, []any:
		return false
	default:
		return true
	}
}

// TypeName returns the JSON type name of v.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		if IsInteger(t) {
			return "integer"
		}
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsInteger reports whether n is written without a fraction or exponent.
func IsInteger(n json.Number) bool {
	_, err := n.Int64()
	return err == nil
}
