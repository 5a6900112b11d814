// Package engine runs one generate, analyze or anonymize request from input
// files to a finished result document.
package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/takumiyoshikawa/jsonsynth/internal/anonymize"
	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/logger"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
	"github.com/takumiyoshikawa/jsonsynth/internal/swagger"
	"github.com/takumiyoshikawa/jsonsynth/internal/synth"
)

type Mode string

const (
	ModeGenerate  Mode = "generate"
	ModeAnalyze   Mode = "analyze"
	ModeAnonymize Mode = "anonymize"
)

// Request describes one invocation.
type Request struct {
	Mode  Mode
	Input string
	// Swagger optionally enriches generate mode.
	Swagger string
	// AnalyzeFirst makes anonymize mode run the analysis report first and
	// anonymize exactly its findings.
	AnalyzeFirst bool
	// Report wraps the anonymized document with its findings and warnings.
	Report bool
}

// Output is the document to print plus the non-fatal warnings of the run.
type Output struct {
	Document any
	Warnings []string
}

// Source abstracts input loading for testability.
type Source interface {
	ReadDocument(path string) (any, error)
	ReadSwagger(path string) (*swagger.Document, error)
}

// fileSource delegates to the document and swagger packages.
type fileSource struct{}

func (fileSource) ReadDocument(path string) (any, error) { return document.ReadFile(path) }

func (fileSource) ReadSwagger(path string) (*swagger.Document, error) { return swagger.Load(path) }

type Engine struct {
	cfg    *config.Config
	source Source
	logger *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Engine {
	return NewWith(cfg, fileSource{}, log)
}

func NewWith(cfg *config.Config, source Source, log *logger.Logger) *Engine {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{cfg: cfg, source: source, logger: log.WithComponent("engine")}
}

// Run dispatches req to its mode.
func (e *Engine) Run(req Request) (*Output, error) {
	var (
		out *Output
		err error
	)
	switch req.Mode {
	case ModeGenerate:
		out, err = e.Generate(req.Input, req.Swagger)
	case ModeAnalyze:
		out, err = e.Analyze(req.Input)
	case ModeAnonymize:
		out, err = e.Anonymize(req.Input, req.AnalyzeFirst, req.Report)
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	log := e.logger.WithMode(string(req.Mode))
	for _, w := range out.Warnings {
		log.Warn(w)
	}
	log.Info("Run finished", zap.String("input", req.Input), zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

// Generate synthesizes a document from the skeleton at skeletonPath,
// enriched by the OpenAPI document at swaggerPath when one is given.
func (e *Engine) Generate(skeletonPath, swaggerPath string) (*Output, error) {
	doc, err := e.read("skeleton", skeletonPath)
	if err != nil {
		return nil, err
	}

	opts := skeleton.Options{StrictHints: e.cfg.Generate.StrictHints}

	var sw *swagger.Document
	if swaggerPath != "" {
		sw, err = e.source.ReadSwagger(swaggerPath)
		if err != nil {
			return nil, inputError("swagger", swaggerPath, err)
		}
		opts.KnownSchema = sw.Has
		e.logger.Debug("Swagger loaded",
			zap.String("version", sw.Version),
			zap.Int("schemas", len(sw.Names())),
		)
	}

	in, warnings, err := skeleton.Compile(doc, opts)
	if err != nil {
		return nil, err
	}

	if sw != nil {
		var more []string
		in, more = sw.Enrich(in, swagger.Options{
			MaxRefDepth: e.cfg.Generate.MaxRefDepth,
			AutoMatch:   e.cfg.Generate.AutoMatch,
		})
		warnings = append(warnings, more...)
	} else {
		for _, ref := range references(in) {
			warnings = append(warnings, fmt.Sprintf("%s: schema reference %q ignored, no swagger document given", displayPath(ref.Path), ref.Ref))
		}
	}

	s := synth.New(synth.Options{
		Seed:       e.cfg.Generate.Seed,
		ItemSpread: e.cfg.Generate.MaxItemsDefault,
	})
	v, err := s.Generate(in)
	if err != nil {
		return nil, err
	}
	return &Output{Document: v, Warnings: nonNil(warnings)}, nil
}

// Analyze builds the sensitive field report of the document at path.
func (e *Engine) Analyze(path string) (*Output, error) {
	doc, err := e.read("input", path)
	if err != nil {
		return nil, err
	}
	det, err := detect.New(e.cfg.Detection, e.logger.WithComponent("detect"))
	if err != nil {
		return nil, err
	}
	report := det.Analyze(doc)
	return &Output{Document: report, Warnings: report.Warnings}, nil
}

// Anonymize replaces the sensitive values of the document at path. With
// analyzeFirst the analysis report decides what is sensitive; otherwise the
// anonymizer detects on its own. withReport wraps the result with its
// findings.
func (e *Engine) Anonymize(path string, analyzeFirst, withReport bool) (*Output, error) {
	doc, err := e.read("input", path)
	if err != nil {
		return nil, err
	}
	det, err := detect.New(e.cfg.Detection, e.logger.WithComponent("detect"))
	if err != nil {
		return nil, err
	}

	var (
		records  []detect.Record
		warnings []string
	)
	if analyzeFirst {
		report := det.Analyze(doc)
		records, warnings = report.SensitiveFields, report.Warnings
	}

	anon, err := anonymize.New(e.cfg.Anonymize, det, e.cfg.Generate.Seed, e.logger.WithComponent("anonymize"))
	if err != nil {
		return nil, err
	}
	res, err := anon.Anonymize(doc, records)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	res.Warnings = nonNil(res.Warnings)

	if withReport {
		return &Output{Document: res, Warnings: res.Warnings}, nil
	}
	return &Output{Document: res.Data, Warnings: res.Warnings}, nil
}

func (e *Engine) read(role, path string) (any, error) {
	doc, err := e.source.ReadDocument(path)
	if err != nil {
		return nil, inputError(role, path, err)
	}
	return doc, nil
}

// inputError turns file system failures into InputError and leaves parse
// failures alone.
func inputError(role, path string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) || errors.Is(err, fs.ErrNotExist) {
		return &InputError{Role: role, Path: path, Err: err}
	}
	return err
}

// references lists the nodes that name a schema, in pre-order.
func references(in *skeleton.Instruction) []*skeleton.Instruction {
	var out []*skeleton.Instruction
	var walk func(*skeleton.Instruction)
	walk = func(n *skeleton.Instruction) {
		if n == nil {
			return
		}
		if n.Ref != "" {
			out = append(out, n)
		}
		for _, f := range n.Fields {
			walk(f)
		}
		walk(n.Item)
	}
	walk(in)
	return out
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
