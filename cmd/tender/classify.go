package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
)

func classifyCmd() *cobra.Command {
	var explain, asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <purchase-plan>",
		Short: "Classify the procurement method of a purchase plan",
		Long: `Extract a purchase plan and determine the procurement method, applicable
annex, and small-business set-aside against the published threshold.

YAML and JSON plans are read directly. Text, Markdown, and HTML plans are
extracted by the reasoning service.`,
		Example: `  tender classify plan.yaml
  tender classify plan.yaml --explain
  tender classify plan.md --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOptional)
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.extractor().Extract(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to extract purchase plan: %w", err)
			}
			result, err := a.classifier.Classify(ctx, record)
			if err != nil {
				return fmt.Errorf("failed to classify: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, result)
			}
			_, err = fmt.Fprintln(out, cli.RenderClassification(result, explain))
			return err
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "Show every rule comparison that led to the result")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
