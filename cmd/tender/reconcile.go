package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/assembler"
	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	var plain, asJSON, noCheckpoint bool

	cmd := &cobra.Command{
		Use:   "reconcile [template-type...]",
		Short: "Update templates from recently published announcements",
		Long: `Compare each template with the announcements collected in the reference
directory over the configured window. Proposed changes are reviewed by the
reasoning service, and only approved changes are stored as a new version.

Without arguments every built-in template type is reconciled. A checkpoint is
taken first so a bad update can be rolled back with tender checkpoint restore.`,
		Example: `  tender reconcile
  tender reconcile 적격심사 --plain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := args
			if len(types) == 0 {
				types = assembler.TemplateTypes()
			}

			a, err := openApp(cmd.Context(), reasoningOptional)
			if err != nil {
				return err
			}
			defer a.Close()

			reconciler, err := a.reconciler()
			if err != nil {
				return err
			}

			if !noCheckpoint {
				manager, err := a.store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(cmd.Context(), "reconcile")
				if err != nil {
					return err
				}
				slog.Info("Created checkpoint", "checkpoint", info.ID)
			}

			handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Reconciliation", "tender reconcile")
			ctx := handler.HandleInterrupts(cmd.Context())

			out := cmd.OutOrStdout()
			results := make([]*reconcile.Result, 0, len(types))
			for _, templateType := range types {
				progress := cli.NewProgress(cmd.ErrOrStderr(), templateType, plain || asJSON)
				result, err := reconciler.Reconcile(ctx, templateType, progress.Update)
				progress.Finish()
				if err != nil {
					return fmt.Errorf("failed to reconcile %s: %w", templateType, err)
				}
				results = append(results, result)
				if !asJSON {
					fmt.Fprintln(out, cli.RenderReconcile(result))
				}
			}

			if asJSON {
				return writeJSON(out, results)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress as plain lines instead of a bar")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as JSON")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "Skip the automatic checkpoint")

	return cmd
}
