package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect drafting sessions",
	}

	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionShowCmd())

	return cmd
}

func sessionListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafting sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}
			sessions, err := engine.Sessions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderSessionList(sessions))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions (0 for all)")

	return cmd
}

func sessionShowCmd() *cobra.Command {
	var document, asJSON bool

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a drafting session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.draftingEngine()
			if err != nil {
				return err
			}
			session, err := engine.Session(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, session)
			}
			_, err = fmt.Fprintln(out, cli.RenderSession(session, document))
			return err
		},
	}

	cmd.Flags().BoolVarP(&document, "document", "d", false, "Include the announcement text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")

	return cmd
}
