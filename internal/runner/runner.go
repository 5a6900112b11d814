// Package runner is the calling side of the engine's process contract: it
// stages in-memory content in temporary files, runs the engine binary and
// classifies the outcome.
package runner

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/logger"
)

// EngineError is a non-zero engine exit. Stderr carries the engine's own
// description of the failure.
type EngineError struct {
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, msg)
}

// ParseError is a zero exit whose stdout is not one JSON document, a
// contract violation rather than a data problem.
type ParseError struct {
	Stdout []byte
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("engine output is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result is a successful invocation.
type Result struct {
	Value  any
	Stdout []byte
	Stderr string
}

type Runner struct {
	// Binary is the engine executable.
	Binary string
	// BaseArgs precede the mode flags on every invocation.
	BaseArgs []string
	// Env is appended to the current environment.
	Env []string
	// TempDir holds staged content. Empty means os.TempDir.
	TempDir string
	// Pretty asks the engine for indented output.
	Pretty bool

	logger *logger.Logger
}

func New(binary string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{Binary: binary, logger: log.WithComponent("runner")}
}

func (r *Runner) log() *logger.Logger {
	if r.logger == nil {
		r.logger = logger.Nop()
	}
	return r.logger
}

// Generate runs generate mode on skeleton content, with optional swagger
// content (JSON or YAML).
func (r *Runner) Generate(ctx context.Context, skeleton, swagger []byte) (*Result, error) {
	var cleanup []string
	defer func() { r.remove(cleanup) }()

	skelPath, err := r.stage(skeleton, ".json")
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, skelPath)
	args := []string{"--skeleton", skelPath}

	if swagger != nil {
		swPath, err := r.stage(swagger, swaggerExt(swagger))
		if err != nil {
			return nil, err
		}
		cleanup = append(cleanup, swPath)
		args = append(args, "--swagger", swPath)
	}
	return r.Invoke(ctx, args...)
}

// Analyze runs analyze mode on content.
func (r *Runner) Analyze(ctx context.Context, content []byte) (*Result, error) {
	return r.withContent(ctx, content, "--analyze")
}

// Anonymize runs anonymize mode on content.
func (r *Runner) Anonymize(ctx context.Context, content []byte, analyzeFirst bool) (*Result, error) {
	if analyzeFirst {
		return r.withContent(ctx, content, "--anonymize", "--analyze-first")
	}
	return r.withContent(ctx, content, "--anonymize")
}

func (r *Runner) withContent(ctx context.Context, content []byte, flag string, extra ...string) (*Result, error) {
	path, err := r.stage(content, ".json")
	if err != nil {
		return nil, err
	}
	defer r.remove([]string{path})

	return r.Invoke(ctx, append([]string{flag, path}, extra...)...)
}

// Invoke runs the engine with args and classifies the outcome. Killing the
// process through ctx surfaces as an EngineError.
func (r *Runner) Invoke(ctx context.Context, args ...string) (*Result, error) {
	full := append(append([]string{}, r.BaseArgs...), args...)
	if r.Pretty {
		full = append(full, "--pretty")
	}

	cmd := exec.CommandContext(ctx, r.Binary, full...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log().Debug("Invoking engine", zap.String("binary", r.Binary), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &EngineError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("run engine %s: %w", r.Binary, err)
	}

	value, err := document.DecodeBytes(stdout.Bytes())
	if err != nil {
		return nil, &ParseError{Stdout: stdout.Bytes(), Err: err}
	}
	return &Result{Value: value, Stdout: stdout.Bytes(), Stderr: stderr.String()}, nil
}

// stage writes content to a new file whose name no other invocation can
// take: a UTC timestamp plus random hex, created exclusively.
func (r *Runner) stage(content []byte, ext string) (string, error) {
	dir := r.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	id, err := newID(time.Now().UTC())
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "jsonsynth-"+id+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

func (r *Runner) remove(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log().Warn("Failed to remove temp file", zap.String("path", p), zap.Error(err))
		}
	}
}

func newID(now time.Time) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp file id: %w", err)
	}
	return fmt.Sprintf("%s-%s", now.Format("20060102T150405.000000000Z"), hex.EncodeToString(buf)), nil
}

func swaggerExt(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ".json"
	}
	return ".yaml"
}
