package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/engine"
	"github.com/takumiyoshikawa/jsonsynth/internal/logger"
)

// modeOptions are the root command's mode selection flags.
type modeOptions struct {
	skeleton     string
	swagger      string
	analyze      string
	anonymize    string
	analyzeFirst bool
	report       bool
	output       string
}

func (m *modeOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&m.skeleton, "skeleton", "", "Generate data from this skeleton file")
	f.StringVar(&m.swagger, "swagger", "", "Swagger/OpenAPI document (JSON or YAML) enriching --skeleton")
	f.StringVar(&m.analyze, "analyze", "", "Report the sensitive fields of this JSON file")
	f.StringVar(&m.anonymize, "anonymize", "", "Anonymize the sensitive fields of this JSON file")
	f.BoolVar(&m.analyzeFirst, "analyze-first", false, "Anonymize exactly the fields the analysis report finds")
	f.BoolVar(&m.report, "report", false, "Wrap the anonymized document with its findings and warnings")
	f.StringVarP(&m.output, "output", "o", "", "Output file (default: stdout)")
}

// request validates the flag combination and builds the engine request.
func (m *modeOptions) request() (engine.Request, error) {
	var req engine.Request
	selected := 0
	if m.skeleton != "" {
		selected++
		req = engine.Request{Mode: engine.ModeGenerate, Input: m.skeleton, Swagger: m.swagger}
	}
	if m.analyze != "" {
		selected++
		req = engine.Request{Mode: engine.ModeAnalyze, Input: m.analyze}
	}
	if m.anonymize != "" {
		selected++
		req = engine.Request{Mode: engine.ModeAnonymize, Input: m.anonymize, AnalyzeFirst: m.analyzeFirst, Report: m.report}
	}

	switch {
	case selected == 0:
		return req, usagef("exactly one of --skeleton, --analyze or --anonymize is required")
	case selected > 1:
		return req, usagef("--skeleton, --analyze and --anonymize are mutually exclusive")
	case m.swagger != "" && req.Mode != engine.ModeGenerate:
		return req, usagef("--swagger requires --skeleton")
	case m.analyzeFirst && req.Mode != engine.ModeAnonymize:
		return req, usagef("--analyze-first requires --anonymize")
	case m.report && req.Mode != engine.ModeAnonymize:
		return req, usagef("--report requires --anonymize")
	}
	return req, nil
}

func runMode(cmd *cobra.Command, g *globalOptions, m *modeOptions) error {
	req, err := m.request()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	out, err := engine.New(cfg, log).Run(req)
	if err != nil {
		return err
	}

	data, err := document.Marshal(out.Document, g.pretty)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), m.output, data)
}

// loadConfig reads the config file and applies the flags that were set on
// top of it.
func loadConfig(cmd *cobra.Command, g *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Generate.Seed = g.seed
	}
	if flags.Changed("consistent") {
		cfg.Anonymize.Consistent = g.consistent
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// writeOutput writes data to path, or to stdout when path is empty. The file
// appears complete or not at all: data goes to a temporary sibling that is
// renamed over path.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
