package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/takumiyoshikawa/jsonsynth/internal/runner"
)

func NewPipeCmd(g *globalOptions) *cobra.Command {
	var swaggerFile string
	var analyzeFirst bool
	var report bool
	var binary string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "pipe <generate|analyze|anonymize>",
		Short: "Run one mode on JSON read from stdin",
		Long: `Run one mode on the JSON document read from stdin.

The content is staged in a uniquely named temporary file, the engine runs as a
child process in file mode, and the temporary file is removed afterwards
whatever the outcome. The engine's exit code and error output are passed
through unchanged.`,
		Example: `  cat skeleton.json | jsonsynth pipe generate --swagger api.yaml
  curl -s https://example.com/users | jsonsynth pipe anonymize --analyze-first`,
		Args:      usageArgs(cobra.ExactArgs(1)),
		ValidArgs: []string{"generate", "analyze", "anonymize"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := args[0]
			switch {
			case mode != "generate" && mode != "analyze" && mode != "anonymize":
				return usagef("unknown mode %q (want generate, analyze or anonymize)", mode)
			case swaggerFile != "" && mode != "generate":
				return usagef("--swagger requires the generate mode")
			case (analyzeFirst || report) && mode != "anonymize":
				return usagef("--analyze-first and --report require the anonymize mode")
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

			content, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			if binary == "" {
				if binary, err = os.Executable(); err != nil {
					return fmt.Errorf("locating engine binary: %w", err)
				}
			}
			r := runner.New(binary, log.WithMode(mode))
			r.Pretty = g.pretty
			r.BaseArgs = forwardedArgs(cmd, g)
			if report {
				r.BaseArgs = append(r.BaseArgs, "--report")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var res *runner.Result
			switch mode {
			case "generate":
				var swagger []byte
				if swaggerFile != "" {
					if swagger, err = os.ReadFile(swaggerFile); err != nil {
						return fmt.Errorf("reading swagger: %w", err)
					}
				}
				res, err = r.Generate(ctx, content, swagger)
			case "analyze":
				res, err = r.Analyze(ctx, content)
			default:
				res, err = r.Anonymize(ctx, content, analyzeFirst)
			}

			var ee *runner.EngineError
			if errors.As(err, &ee) {
				log.Debug("Engine failed", zap.Int("exit_code", ee.ExitCode))
				fmt.Fprint(cmd.ErrOrStderr(), ee.Stderr)
				code := ee.ExitCode
				if code <= 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error: engine was terminated:", ctx.Err())
					code = 1
				}
				return &exitError{code: code}
			}
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
			_, err = cmd.OutOrStdout().Write(res.Stdout)
			return err
		},
	}

	cmd.Flags().StringVar(&swaggerFile, "swagger", "", "Swagger/OpenAPI document (JSON or YAML) for the generate mode")
	cmd.Flags().BoolVar(&analyzeFirst, "analyze-first", false, "Anonymize exactly the fields the analysis report finds")
	cmd.Flags().BoolVar(&report, "report", false, "Wrap the anonymized document with its findings and warnings")
	cmd.Flags().StringVar(&binary, "engine", "", "Engine binary (default: this executable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the engine after this long (0 waits forever)")

	return cmd
}

// forwardedArgs repeats the global flags the user set so the engine child
// sees the same configuration.
func forwardedArgs(cmd *cobra.Command, g *globalOptions) []string {
	var args []string
	flags := cmd.Flags()
	if flags.Changed("config") {
		args = append(args, "--config", g.configPath)
	}
	if flags.Changed("log-level") {
		args = append(args, "--log-level", g.logLevel)
	}
	if flags.Changed("seed") {
		args = append(args, "--seed", strconv.FormatUint(g.seed, 10))
	}
	if flags.Changed("consistent") {
		args = append(args, "--consistent="+strconv.FormatBool(g.consistent))
	}
	return args
}
