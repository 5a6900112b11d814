package skeleton

import (
	"errors"
	"fmt"
)

// ErrMalformedSkeleton is matched by every MalformedError.
var ErrMalformedSkeleton = errors.New("malformed skeleton")

// MalformedError reports a skeleton node whose markers cannot be reconciled.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed skeleton at %s: %s", displayPath(e.Path), e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedSkeleton }

func malformed(path, format string, args ...any) error {
	return &MalformedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func displayPath(p string) string {
	if p == "" {
		return "$"
	}
	return p
}
