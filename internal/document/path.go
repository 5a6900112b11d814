package document

import (
	"regexp"
	"strconv"
)

var plainKey = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$\-]*$`)

// Join appends an object key to a path. Keys that are not plain identifiers
// are written in bracket form: user["first name"].
func Join(parent, key string) string {
	if !plainKey.MatchString(key) {
		return parent + "[" + strconv.Quote(key) + "]"
	}
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// Index appends an array index to a path.
func Index(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// Paths lists the path of every node below the root in pre-order, object
// keys in document order.
func Paths(v any) []string {
	var out []string
	walkPaths(v, "", &out)
	return out
}

func walkPaths(v any, path string, out *[]string) {
	switch t := v.(type) {
	case *Object:
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			p := Join(path, pair.Key)
			*out = append(*out, p)
			walkPaths(pair.Value, p, out)
		}
	case []any:
		for i, item := range t {
			p := Index(path, i)
			*out = append(*out, p)
			walkPaths(item, p, out)
		}
	}
}
