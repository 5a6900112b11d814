// Package anonymize replaces sensitive values in a JSON document with
// format-preserving substitutes.
package anonymize

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/logger"
)

// Result is the anonymized copy of a document along with the findings that
// drove it.
type Result struct {
	Data            any             `json:"data"`
	SensitiveFields []detect.Record `json:"sensitive_fields"`
	Warnings        []string        `json:"warnings"`
}

// Anonymizer replaces flagged leaves. It is not safe for concurrent use.
type Anonymizer struct {
	faker    *gofakeit.Faker
	detector *detect.Detector
	config   config.Anonymize
	masked   map[detect.FieldType]bool
	logger   *logger.Logger

	cache map[cacheKey]any
}

type cacheKey struct {
	fieldType detect.FieldType
	original  any
}

// New creates an anonymizer. The detector runs when Anonymize is given no
// findings. seed 0 draws a random seed.
func New(cfg config.Anonymize, detector *detect.Detector, seed uint64, log *logger.Logger) (*Anonymizer, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.RedactionMask == "" {
		cfg.RedactionMask = config.Defaults().Anonymize.RedactionMask
	}

	masked := make(map[detect.FieldType]bool)
	for _, name := range cfg.MaskTypes {
		t, ok := detect.ParseFieldType(name)
		if !ok {
			return nil, fmt.Errorf("unknown field type in mask_types: %s", name)
		}
		masked[t] = true
	}

	return &Anonymizer{
		faker:    gofakeit.New(seed),
		detector: detector,
		config:   cfg,
		masked:   masked,
		logger:   log,
	}, nil
}

// Anonymize returns a deep copy of doc with every flagged leaf replaced. A
// nil records slice runs the detector first. Values no strategy can replace
// are redacted with the mask, and a warning says so; doc is never modified.
func (a *Anonymizer) Anonymize(doc any, records []detect.Record) (*Result, error) {
	if records == nil {
		if a.detector == nil {
			return nil, errors.New("no findings given and no detector configured")
		}
		records = a.detector.Scan(doc)
	}

	a.cache = nil
	if a.config.Consistent {
		a.cache = make(map[cacheKey]any)
	}

	flagged := make(map[string]detect.Record, len(records))
	for _, r := range records {
		if _, dup := flagged[r.Path]; !dup {
			flagged[r.Path] = r
		}
	}

	run := &pass{Anonymizer: a, flagged: flagged, seen: make(map[string]bool, len(records)), warnings: []string{}}
	out := run.visit(document.Clone(doc), "", nil)

	for _, r := range records {
		if !run.seen[r.Path] {
			run.warnings = append(run.warnings, fmt.Sprintf("%s: no such field, finding ignored", r.Path))
		}
	}

	a.logger.Debug("Anonymization finished",
		zap.Int("findings", len(records)),
		zap.Int("replaced", run.replaced),
		zap.Int("redacted", run.redacted),
		zap.Int("warnings", len(run.warnings)),
	)

	return &Result{Data: out, SensitiveFields: records, Warnings: run.warnings}, nil
}

type pass struct {
	*Anonymizer
	flagged  map[string]detect.Record
	seen     map[string]bool
	warnings []string
	replaced int
	redacted int
}

// visit rewrites the cloned tree in place. A finding on a container applies
// to every leaf below it.
func (p *pass) visit(v any, path string, inherited *detect.Record) any {
	if r, ok := p.flagged[detect.RootPath(path)]; ok {
		p.seen[r.Path] = true
		inherited = &r
	}

	switch t := v.(type) {
	case *document.Object:
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			pair.Value = p.visit(pair.Value, document.Join(path, pair.Key), inherited)
		}
		return t
	case []any:
		for i := range t {
			t[i] = p.visit(t[i], document.Index(path, i), inherited)
		}
		return t
	default:
		if inherited == nil {
			return v
		}
		return p.replace(v, detect.RootPath(path), inherited.FieldType)
	}
}

func (p *pass) replace(v any, path string, ft detect.FieldType) any {
	if s, ok := v.(string); ok && s == "" {
		return v
	}
	if p.masked[ft] {
		p.redacted++
		return p.config.RedactionMask
	}

	key := cacheKey{fieldType: ft, original: v}
	if p.cache != nil {
		if out, ok := p.cache[key]; ok {
			p.replaced++
			return out
		}
	}

	out, err := p.substitute(v, ft)
	if err != nil {
		perr := &PolicyError{Path: path, FieldType: ft, Reason: err.Error()}
		p.warnings = append(p.warnings, perr.Error())
		p.logger.Warn("Value redacted", zap.String("path", path), zap.Error(perr))
		p.redacted++
		return p.config.RedactionMask
	}

	if p.cache != nil {
		p.cache[key] = out
	}
	p.replaced++
	return out
}

func (p *pass) substitute(v any, ft detect.FieldType) (any, error) {
	switch t := v.(type) {
	case string:
		apply, ok := strategies[ft]
		if !ok {
			return nil, fmt.Errorf("no strategy for field type %q", ft)
		}
		return apply(p.faker, t)
	case json.Number:
		s := t.String()
		var (
			out string
			err error
		)
		if ft == detect.CreditCard {
			out, err = card(p.faker, s)
		} else {
			out, err = number(p.faker, s)
		}
		if err != nil {
			return nil, err
		}
		return json.Number(out), nil
	default:
		return nil, fmt.Errorf("%s values have no replacement", document.TypeName(v))
	}
}

// number keeps the sign, the decimal point and the digit count.
func number(f *gofakeit.Faker, v string) (string, error) {
	if len(digitPositions(v)) == 0 {
		return "", errNoDigits
	}
	return differentFrom(v, func() string { return redigit(f, v) })
}
