package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takumiyoshikawa/jsonsynth/internal/jsonschema"
)

func NewSchemaCmd() *cobra.Command {
	var outputFile string
	var kind string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate JSON Schema for analysis reports or jsonsynth.yaml files",
		Long: `Generate a JSON Schema for one of jsonsynth's documents.

  --kind report   the output of --analyze
  --kind config   jsonsynth.yaml configuration files

The config schema can be used with yaml-language-server by adding a comment
at the top of your jsonsynth.yaml file:

  # yaml-language-server: $schema=https://raw.githubusercontent.com/takumiyoshikawa/jsonsynth/main/config.schema.json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaBytes, err := jsonschema.Generate(kind)
			if err != nil {
				return &UsageError{Msg: err.Error()}
			}

			if outputFile == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(schemaBytes))
				return nil
			}
			if err := writeOutput(cmd.OutOrStdout(), outputFile, append(schemaBytes, '\n')); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "JSON Schema written to %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&kind, "kind", "config", "Schema to generate: report or config")

	return cmd
}
