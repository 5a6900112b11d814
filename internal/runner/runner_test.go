package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
)

// TestHelperProcess stands in for the engine binary. It echoes the staged
// file after the mode flag, or misbehaves when the file asks it to.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("JSONSYNTH_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: missing mode flag")
		os.Exit(2)
	}
	content, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	switch strings.TrimSpace(string(content)) {
	case `"fail"`:
		fmt.Fprintln(os.Stderr, "Error: invalid JSON input")
		os.Exit(1)
	case `"garbage"`:
		fmt.Print("this is not json")
	case `"sleep"`:
		time.Sleep(10 * time.Second)
	case `"args"`:
		fmt.Printf("%q", strings.Join(args, " "))
	default:
		fmt.Print(string(content))
	}
	os.Exit(0)
}

func helperRunner(t *testing.T) *Runner {
	t.Helper()
	r := New(os.Args[0], nil)
	r.BaseArgs = []string{"-test.run=TestHelperProcess", "--"}
	r.Env = []string{"JSONSYNTH_HELPER_PROCESS=1"}
	r.TempDir = t.TempDir()
	return r
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestAnalyzeDecodesOutput(t *testing.T) {
	r := helperRunner(t)

	res, err := r.Analyze(context.Background(), []byte(`{"b": 1, "a": [true]}`))
	require.NoError(t, err)

	obj, ok := res.Value.(*document.Object)
	require.True(t, ok)
	assert.Equal(t, "b", obj.Oldest().Key)
	assertNoTempFiles(t, r.TempDir)
}

func TestEngineFailure(t *testing.T) {
	r := helperRunner(t)

	_, err := r.Anonymize(context.Background(), []byte(`"fail"`), false)
	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.ExitCode)
	assert.Contains(t, ee.Stderr, "invalid JSON input")
	assertNoTempFiles(t, r.TempDir)
}

func TestUnparsableOutput(t *testing.T) {
	r := helperRunner(t)

	_, err := r.Analyze(context.Background(), []byte(`"garbage"`))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "this is not json", string(pe.Stdout))
	assert.True(t, errors.Is(err, document.ErrInvalidJSON))
	assertNoTempFiles(t, r.TempDir)
}

func TestGenerateStagesBothFiles(t *testing.T) {
	r := helperRunner(t)
	r.Pretty = true

	res, err := r.Generate(context.Background(), []byte(`"args"`), []byte("openapi: 3.0.0\n"))
	require.NoError(t, err)

	args := res.Value.(string)
	assert.Contains(t, args, "--skeleton ")
	assert.Contains(t, args, "--swagger ")
	assert.Contains(t, args, ".yaml")
	assert.True(t, strings.HasSuffix(args, "--pretty"))
	assertNoTempFiles(t, r.TempDir)
}

func TestAnalyzeFirstFlag(t *testing.T) {
	r := helperRunner(t)

	res, err := r.Anonymize(context.Background(), []byte(`"args"`), true)
	require.NoError(t, err)
	assert.Contains(t, res.Value.(string), "--anonymize ")
	assert.Contains(t, res.Value.(string), "--analyze-first")
}

func TestContextCancelKillsEngine(t *testing.T) {
	r := helperRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := r.Analyze(ctx, []byte(`"sleep"`))
	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assertNoTempFiles(t, r.TempDir)
}

func TestMissingBinary(t *testing.T) {
	r := New("/nonexistent/jsonsynth", nil)
	r.TempDir = t.TempDir()

	_, err := r.Analyze(context.Background(), []byte(`{}`))
	require.Error(t, err)
	var ee *EngineError
	assert.False(t, errors.As(err, &ee))
	assertNoTempFiles(t, r.TempDir)
}

func TestNewIDIsUnique(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	a, err := newID(now)
	require.NoError(t, err)
	b, err := newID(now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "20260102T030405.000000006Z-"))
	assert.NotEqual(t, a, b)
}

func TestSwaggerExt(t *testing.T) {
	assert.Equal(t, ".json", swaggerExt([]byte("  {\"openapi\": \"3.0.0\"}")))
	assert.Equal(t, ".yaml", swaggerExt([]byte("openapi: 3.0.0")))
}
