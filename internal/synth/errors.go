package synth

import (
	"errors"
	"fmt"
)

// ErrConstraintUnsatisfiable is matched by every ConstraintError.
var ErrConstraintUnsatisfiable = errors.New("constraint unsatisfiable")

// ConstraintError reports constraints no value can satisfy. Generation of
// the whole document stops at the first one.
type ConstraintError struct {
	Path   string
	Reason string
}

func (e *ConstraintError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("unsatisfiable constraints at %s: %s", path, e.Reason)
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintUnsatisfiable }

func unsatisfiable(path, format string, args ...any) error {
	return &ConstraintError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
