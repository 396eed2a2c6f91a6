package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/tui"
	"github.com/Veraticus/tender/internal/tui/themes"
)

func reviewCmd() *cobra.Command {
	var theme, editor string

	cmd := &cobra.Command{
		Use:   "review <session-id>",
		Short: "Review a drafted announcement interactively",
		Long: `Open the drafted announcement with its validation issues in a terminal UI
and approve it, reject it with a reason, or edit it in $EDITOR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}
			session, err := engine.Session(ctx, args[0])
			if err != nil {
				return err
			}
			if !session.State.Terminal() {
				return fmt.Errorf("session %s is %s; finish it with tender draft --resume %s", session.ID, session.State, session.ID)
			}

			submit := func(ctx context.Context, fb drafting.Feedback) (*drafting.Session, error) {
				return engine.Feedback(ctx, session.ID, fb)
			}
			reviewed, err := tui.RunReview(ctx, session, submit,
				tui.WithTheme(themes.ByName(theme)),
				tui.WithEditor(editor))
			if errors.Is(err, tui.ErrNoDecision) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No decision recorded"))
				return nil
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSession(reviewed, false))
			return err
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "default", "Color theme (default, light)")
	cmd.Flags().StringVar(&editor, "editor", "", "Editor for modifications (default: $EDITOR)")

	return cmd
}
