package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/model"
	"github.com/Veraticus/tender/internal/reconcile"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "Manage announcement templates",
		Long: `List, show, and seed announcement template versions. Versions are
append-only; drafting always uses the newest version of a type and falls back
to the built-in template when none is stored.`,
	}

	cmd.AddCommand(templatesListCmd())
	cmd.AddCommand(templatesShowCmd())
	cmd.AddCommand(templatesSeedCmd())

	return cmd
}

func templatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [template-type]",
		Short: "List stored template versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			types := assembler.TemplateTypes()
			if len(args) == 1 {
				types = args
			} else {
				stored, err := a.store.TemplateTypes(ctx)
				if err != nil {
					return err
				}
				for _, t := range stored {
					if !slices.Contains(types, t) {
						types = append(types, t)
					}
				}
			}

			out := cmd.OutOrStdout()
			for _, t := range types {
				records, err := a.store.List(ctx, t)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.RenderTemplates(t, records))
			}
			return nil
		},
	}
}

func templatesShowCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "show <template-type>",
		Short: "Print a template version (newest by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			var record *model.TemplateRecord
			if version == "" {
				record, _, err = assembler.CurrentTemplate(ctx, a.store, args[0])
				if err != nil {
					return err
				}
			} else {
				records, err := a.store.List(ctx, args[0])
				if err != nil {
					return err
				}
				for i := range records {
					if records[i].Version == version {
						record = &records[i]
						break
					}
				}
				if record == nil {
					return fmt.Errorf("%w: %s version %s", common.ErrNotFound, args[0], version)
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), record.Content)
			return err
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to print")

	return cmd
}

func templatesSeedCmd() *cobra.Command {
	var file, summary string
	var yes bool

	cmd := &cobra.Command{
		Use:   "seed <template-type>",
		Short: "Store a new template version",
		Long: `Append a template version, from a file or from the built-in template.
The first stored version is 1.0.0; later versions bump the patch number.`,
		Example: `  tender templates seed 적격심사
  tender templates seed 소액수의 --file simplified.md --summary "연락처 양식 변경"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			templateType := args[0]

			content, err := seedContent(templateType, file)
			if err != nil {
				return err
			}

			a, err := openApp(ctx, reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			version := model.DefaultTemplateVersion
			latest, err := a.store.Latest(ctx, templateType)
			switch {
			case err == nil:
				if latest.Content == content {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%s %s already has this content", templateType, latest.Version)))
					return nil
				}
				version = reconcile.NextVersion(latest.Version)
			case !errors.Is(err, common.ErrNotFound):
				return err
			}

			if !yes {
				prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := prompter.Confirm(ctx, fmt.Sprintf("Store %s version %s?", templateType, version), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Seed cancelled."))
					return nil
				}
			}

			if summary == "" {
				summary = "seeded from " + seedSource(file)
			}
			record := &model.TemplateRecord{
				TemplateType: templateType,
				Version:      version,
				Content:      content,
				Summary:      model.TruncateSummary(summary),
			}
			if err := a.store.Append(ctx, record); err != nil {
				return fmt.Errorf("failed to store template: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Stored %s %s", templateType, record.Version)))
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Template file (default: the built-in template)")
	cmd.Flags().StringVarP(&summary, "summary", "s", "", "Change summary")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func seedContent(templateType, file string) (string, error) {
	if file == "" {
		return assembler.SeedTemplate(templateType)
	}
	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

func seedSource(file string) string {
	if file == "" {
		return "built-in template"
	}
	return file
}
