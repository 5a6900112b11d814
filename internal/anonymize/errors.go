package anonymize

import (
	"errors"
	"fmt"

	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
)

// ErrAnonymizationPolicy marks a flagged value no strategy could replace.
// The anonymizer redacts such values instead of failing.
var ErrAnonymizationPolicy = errors.New("anonymization policy")

// PolicyError reports why a flagged value fell back to redaction.
type PolicyError struct {
	Path      string
	FieldType detect.FieldType
	Reason    string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: no usable %s replacement (%s), value redacted", e.Path, e.FieldType, e.Reason)
}

func (e *PolicyError) Is(target error) bool { return target == ErrAnonymizationPolicy }
