package engine

import (
	"errors"
	"fmt"
)

// ErrInputNotFound matches every InputError.
var ErrInputNotFound = errors.New("input not found")

// InputError reports an input file that could not be read.
type InputError struct {
	Role string
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cannot read %s file %s: %v", e.Role, e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrInputNotFound }
