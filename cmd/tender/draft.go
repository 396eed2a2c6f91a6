package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/drafting"
)

func draftCmd() *cobra.Command {
	var (
		resumeID string
		plain    bool
		asJSON   bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "draft [purchase-plan]",
		Short: "Draft a bid announcement from a purchase plan",
		Long: `Run a purchase plan through extraction, classification, and template
assembly, then let the reasoning service draft, validate, and revise the
announcement. Every step is saved, so an interrupted session can be resumed.

Without a reasoning service the assembled baseline is the final document.`,
		Example: `  tender draft plan.yaml
  tender draft plan.md --output notice.md
  tender draft --resume 6f1c...`,
		Args: func(_ *cobra.Command, args []string) error {
			if resumeID == "" && len(args) != 1 {
				return fmt.Errorf("a purchase plan is required unless --resume is set")
			}
			if resumeID != "" && len(args) > 0 {
				return fmt.Errorf("--resume does not take a purchase plan")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), reasoningOptional)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			handler := cli.NewInterruptHandler(out, "Drafting", "tender session list, then tender draft --resume <session-id>")
			if resumeID != "" {
				handler.SetResumeHint("tender draft --resume " + resumeID)
			}
			ctx := handler.HandleInterrupts(cmd.Context())

			progress := cli.NewProgress(cmd.ErrOrStderr(), "Drafting", plain || asJSON)
			var session *drafting.Session
			if resumeID != "" {
				session, err = engine.Resume(ctx, resumeID, progress.Update)
			} else {
				session, err = engine.Start(ctx, args[0], progress.Update)
			}
			progress.Finish()

			if err != nil {
				if handler.WasInterrupted() || errors.Is(err, context.Canceled) {
					return interruptedDraft(engine, resumeID)
				}
				if session != nil && drafting.IsInputError(err) {
					fmt.Fprintln(out, cli.RenderSession(session, false))
				}
				return err
			}

			if output != "" {
				doc := session.Document
				if doc == "" {
					doc = session.Baseline
				}
				if err := os.WriteFile(output, []byte(doc), 0o600); err != nil {
					return fmt.Errorf("failed to write announcement: %w", err)
				}
			}

			if asJSON {
				return writeJSON(out, session)
			}
			fmt.Fprintln(out, cli.RenderSession(session, output == ""))
			if output != "" {
				fmt.Fprintln(out, cli.FormatSuccess("Announcement written to "+output))
			}
			if session.NeedsReview {
				fmt.Fprintln(out, cli.FormatWarning("Review required: tender review "+session.ID))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resumeID, "resume", "", "Resume an interrupted session")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress as plain lines instead of a bar")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the announcement to a file")

	return cmd
}

// interruptedDraft names the session to resume once the interrupt message is out.
func interruptedDraft(engine *drafting.Engine, resumeID string) error {
	if resumeID == "" {
		sessions, err := engine.Sessions(context.Background(), 1)
		if err == nil && len(sessions) > 0 {
			resumeID = sessions[0].ID
		}
	}
	if resumeID == "" {
		return fmt.Errorf("drafting interrupted")
	}
	return fmt.Errorf("drafting interrupted; resume with: tender draft --resume %s", resumeID)
}
