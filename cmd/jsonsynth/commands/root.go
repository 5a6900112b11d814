package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// UsageError is a malformed command line. It exits with code 2.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// usageArgs turns positional argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &UsageError{Msg: err.Error()}
		}
		return nil
	}
}

// exitError carries the exit code of a failure whose message was already
// written to stderr.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// globalOptions are the flags every command understands.
type globalOptions struct {
	configPath string
	logLevel   string
	seed       uint64
	consistent bool
	pretty     bool
}

func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	m := &modeOptions{}

	cmd := &cobra.Command{
		Use:   "jsonsynth",
		Short: "Generate, analyze and anonymize JSON test data",
		Long: `jsonsynth produces realistic JSON test data.

Generate mode fills a skeleton document with synthetic values, optionally
enriched by a Swagger/OpenAPI document. Analyze mode reports the fields of a
document that look personal or sensitive. Anonymize mode replaces them with
format-preserving substitutes.

Exactly one of --skeleton, --analyze or --anonymize selects the mode. The
result is one JSON document on stdout.`,
		Example: `  jsonsynth --skeleton user.json --swagger api.yaml --pretty
  jsonsynth --analyze customers.json
  jsonsynth --anonymize customers.json --analyze-first --output safe.json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unexpected argument %q", args[0])
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, g, m)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Msg: err.Error()}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default: jsonsynth.yaml in . or $HOME/.jsonsynth)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level on stderr: debug, info, warn or error (overrides config)")
	pf.Uint64Var(&g.seed, "seed", 0, "Seed for repeatable output (overrides config; 0 is random)")
	pf.BoolVar(&g.consistent, "consistent", false, "Replace identical values with the same substitute when anonymizing")
	pf.BoolVar(&g.pretty, "pretty", false, "Indent the output document by two spaces")

	m.register(cmd)

	cmd.AddCommand(NewInferCmd(g))
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewPipeCmd(g))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Run executes the command line args and returns the process exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(stderr, "Error:", err)

	var ue *UsageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
		return 2
	}
	return 1
}

func Execute() {
	if code := Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}
