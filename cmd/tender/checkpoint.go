package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/storage"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Snapshot and roll back template history",
		Long: `Create, list, restore, and delete database checkpoints.

A checkpoint captures every stored template version and drafting session.
Reconciliation takes one automatically before it stores a new template
version, so an unwanted revision can be rolled back with restore.`,
		Example: `  # Snapshot before seeding a hand-edited template
  tender checkpoint create --tag pre-2026-revision

  # See which template versions each checkpoint holds
  tender checkpoint list

  # Roll back
  tender checkpoint restore pre-2026-revision`,
	}

	cmd.AddCommand(createCheckpointCmd(), listCheckpointsCmd(), restoreCheckpointCmd(), deleteCheckpointCmd())
	return cmd
}

func withCheckpoints(ctx context.Context, fn func(*storage.CheckpointManager) error) error {
	a, err := openApp(ctx, reasoningOff)
	if err != nil {
		return err
	}
	defer a.Close()

	manager, err := a.store.NewCheckpointManager()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return fn(manager)
}

func createCheckpointCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the database now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd.Context(), func(manager *storage.CheckpointManager) error {
				info, err := manager.Create(cmd.Context(), tag, description)
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created checkpoint %s (%s)", info.ID, formatFileSize(info.FileSize))))
				fmt.Fprintln(out, "  Templates: "+formatTemplateVersions(info.Templates))
				if info.Description != "" {
					fmt.Fprintln(out, "  Description: "+info.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint name (generated from the time if empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-form note stored with the checkpoint")

	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd.Context(), func(manager *storage.CheckpointManager) error {
				checkpoints, err := manager.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list checkpoints: %w", err)
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, checkpoints)
				}
				if len(checkpoints) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No checkpoints found."))
					return nil
				}
				return writeCheckpointTable(out, checkpoints, time.Now())
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print checkpoints as JSON")

	return cmd
}

func writeCheckpointTable(out io.Writer, checkpoints []storage.CheckpointInfo, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tSIZE\tTEMPLATES\tSESSIONS\tTYPE")
	for _, cp := range checkpoints {
		kind := "manual"
		if cp.IsAuto {
			kind = "auto"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			cp.ID,
			formatRelativeTime(cp.CreatedAt, now),
			formatFileSize(cp.FileSize),
			formatTemplateVersions(cp.Templates),
			cp.Sessions,
			kind)
	}
	return w.Flush()
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Replace the database with a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			return withCheckpoints(ctx, func(manager *storage.CheckpointManager) error {
				out := cmd.OutOrStdout()
				if !force {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("This replaces the current database with checkpoint %s.", id)))
					ok, err := cli.NewPrompter(cmd.InOrStdin(), out).Confirm(ctx, "Continue?", false)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, cli.SubtleStyle.Render("Restore cancelled."))
						return nil
					}
				}

				if err := manager.Restore(ctx, id); err != nil {
					return fmt.Errorf("failed to restore checkpoint: %w", err)
				}
				_, err := fmt.Fprintln(out, cli.FormatSuccess("Restored from checkpoint "+id))
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")

	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCheckpoints(cmd.Context(), func(manager *storage.CheckpointManager) error {
				if err := manager.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to delete checkpoint: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted checkpoint "+args[0]))
				return err
			})
		},
	}
}

// formatTemplateVersions renders {"적격심사": "1.0.2"} as "적격심사 1.0.2",
// sorted by type.
func formatTemplateVersions(versions map[string]string) string {
	if len(versions) == 0 {
		return "-"
	}
	types := make([]string, 0, len(versions))
	for t := range versions {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, t+" "+versions[t])
	}
	return strings.Join(parts, ", ")
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
