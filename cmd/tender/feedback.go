package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/drafting"
)

func feedbackCmd() *cobra.Command {
	var reason, file string

	cmd := &cobra.Command{
		Use:   "feedback <session-id> <approve|reject|modify>",
		Short: "Record a review decision on a finished session",
		Long: `Approve a drafted announcement, reject it with a reason, or replace it with
an edited version. Only complete or needs_human sessions accept feedback.`,
		Example: `  tender feedback 6f1c... approve
  tender feedback 6f1c... reject --reason "입찰보증금 비율 오류"
  tender feedback 6f1c... modify --file notice.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := drafting.ParseFeedbackAction(args[1])
			if err != nil {
				return err
			}
			fb := drafting.Feedback{Action: action, Comment: reason}

			switch action {
			case drafting.FeedbackReject:
				if fb.Comment == "" {
					prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
					fb.Comment, err = prompter.Ask(cmd.Context(), "Reason for rejecting")
					if err != nil {
						return err
					}
				}
			case drafting.FeedbackModify:
				if file == "" {
					return fmt.Errorf("modify needs --file with the edited announcement")
				}
				// #nosec G304 - path is supplied by the operator
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read edited announcement: %w", err)
				}
				fb.Document = string(data)
			}

			a, err := openApp(cmd.Context(), reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}
			session, err := engine.Feedback(cmd.Context(), args[0], fb)
			if err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded %s for %s", action, session.ID)))
			_, err = fmt.Fprintln(out, cli.RenderSession(session, false))
			return err
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason for a rejection")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Edited announcement for modify")

	return cmd
}
