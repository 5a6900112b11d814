package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/jsonschema"
)

func NewInferCmd(g *globalOptions) *cobra.Command {
	var format string
	var title string
	var outputFile string

	cmd := &cobra.Command{
		Use:   "infer <sample.json>",
		Short: "Infer an OpenAPI 3.0 document from a sample payload",
		Long: `Infer an OpenAPI 3.0 document describing the shape of a sample JSON payload.

The sample's schema is stored as components.schemas.Root, so the result can be
passed back to --swagger with a skeleton such as {"payload": "@Root"}.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return usagef("unknown format %q (want json or yaml)", format)
			}

			sample, err := document.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading sample: %w", err)
			}
			doc, err := jsonschema.OpenAPI(sample, title)
			if err != nil {
				return err
			}

			var data []byte
			if format == "yaml" {
				data, err = document.ToYAML(doc)
			} else {
				data, err = document.Marshal(doc, g.pretty)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputFile, data)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVar(&title, "title", "Generated API", "info.title of the generated document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
