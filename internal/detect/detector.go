// Package detect finds fields of a JSON document that likely hold personal
// data, from their key names and from the shape of their values.
package detect

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/logger"
)

const (
	keyOnlyConfidence   = 0.6
	valueOnlyConfidence = 0.7
	disagreeConfidence  = 0.8
	agreeConfidence     = 0.95
)

// Record is one sensitive field finding.
type Record struct {
	Path       string    `json:"path"`
	FieldType  FieldType `json:"field_type"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

// Detector handles sensitive field detection
type Detector struct {
	rules   []Rule
	enabled map[string]bool
	logger  *logger.Logger
	config  config.Detection
}

// New creates a new detector instance
func New(cfg config.Detection, log *logger.Logger) (*Detector, error) {
	if log == nil {
		log = logger.Nop()
	}
	detector := &Detector{
		rules:   DefaultRules(),
		enabled: make(map[string]bool),
		logger:  log,
		config:  cfg,
	}

	detectors := cfg.Detectors
	if len(detectors) == 0 {
		detectors = []string{"all"}
	}
	if err := detector.configureDetectors(detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	log.Debug("Detector initialized",
		zap.Int("total_rules", len(detector.rules)),
		zap.Int("enabled_rules", detector.countEnabledRules()),
	)

	return detector, nil
}

// configureDetectors enables the named rules; "all" enables every rule.
func (d *Detector) configureDetectors(detectors []string) error {
	for _, rule := range d.rules {
		d.enabled[rule.Name] = false
	}

	for _, detector := range detectors {
		if detector == "all" {
			for _, rule := range d.rules {
				d.enabled[rule.Name] = true
			}
			continue
		}

		found := false
		for _, rule := range d.rules {
			if rule.Name == detector {
				d.enabled[rule.Name] = true
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("unknown detector: %s", detector)
		}
	}

	return nil
}

func (d *Detector) countEnabledRules() int {
	n := 0
	for _, rule := range d.rules {
		if d.enabled[rule.Name] {
			n++
		}
	}
	return n
}

// Scan returns every finding in pre-order document order, without the
// confidence filter. It never modifies doc.
func (d *Detector) Scan(doc any) []Record {
	records := []Record{}
	d.walk(doc, "", "", &records)
	return records
}

// Analyze scans doc and builds the report. Findings below the configured
// minimum confidence are left out.
func (d *Detector) Analyze(doc any) *Report {
	all := d.Scan(doc)
	kept := make([]Record, 0, len(all))
	for _, r := range all {
		if r.Confidence >= d.config.MinConfidence {
			kept = append(kept, r)
		}
	}

	report := newReport(kept, countLeaves(doc))
	if dropped := len(all) - len(kept); dropped > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d finding(s) below confidence %.2f omitted", dropped, d.config.MinConfidence))
	}
	if _, ok := doc.(*document.Object); !ok {
		if _, ok := doc.([]any); !ok {
			report.Warnings = append(report.Warnings, "document root is a "+document.TypeName(doc)+", not an object or array")
		}
	}

	d.logger.Debug("Analysis finished",
		zap.Int("scanned_fields", report.ScannedFields),
		zap.Int("sensitive_fields", len(kept)),
		zap.Int("omitted", len(all)-len(kept)),
	)
	return report
}

// walk visits leaves in pre-order. Array elements are judged by the key of
// the nearest enclosing field.
func (d *Detector) walk(v any, path, key string, out *[]Record) {
	switch t := v.(type) {
	case *document.Object:
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			d.walk(pair.Value, document.Join(path, pair.Key), pair.Key, out)
		}
	case []any:
		for i, item := range t {
			d.walk(item, document.Index(path, i), key, out)
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			d.classify(path, key, s, out)
		}
	case json.Number:
		d.classify(path, key, t.String(), out)
	}
}

func (d *Detector) classify(path, key, value string, out *[]Record) {
	var byKey, byValue *Rule
	norm := hint.Normalize(key)
	shape, _ := hint.FromLiteral(value)

	for i := range d.rules {
		r := &d.rules[i]
		if !d.enabled[r.Name] {
			continue
		}
		if byKey == nil && r.matchesKey(norm) {
			byKey = r
		}
		if byValue == nil && r.matchesValue(value, shape) {
			byValue = r
		}
	}

	var rec Record
	switch {
	case byKey != nil && byValue != nil && byKey.Type == byValue.Type:
		rec = Record{FieldType: byValue.Type, Confidence: agreeConfidence,
			Reason: fmt.Sprintf("key matches %s and value looks like %s", byKey.Name, byValue.Name)}
	case byKey != nil && byValue != nil:
		rec = Record{FieldType: byValue.Type, Confidence: disagreeConfidence,
			Reason: fmt.Sprintf("value looks like %s although key matches %s", byValue.Name, byKey.Name)}
	case byValue != nil:
		rec = Record{FieldType: byValue.Type, Confidence: valueOnlyConfidence,
			Reason: fmt.Sprintf("value looks like %s", byValue.Name)}
	case byKey != nil:
		rec = Record{FieldType: byKey.Type, Confidence: keyOnlyConfidence,
			Reason: fmt.Sprintf("key matches %s", byKey.Name)}
	default:
		return
	}
	rec.Path = RootPath(path)
	*out = append(*out, rec)
}

// RootPath names the document root "$" and leaves other paths alone.
func RootPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func countLeaves(v any) int {
	switch t := v.(type) {
	case *document.Object:
		n := 0
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			n += countLeaves(pair.Value)
		}
		return n
	case []any:
		n := 0
		for _, item := range t {
			n += countLeaves(item)
		}
		return n
	default:
		return 1
	}
}
