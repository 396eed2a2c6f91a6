package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tender/internal/cli"
	"github.com/Veraticus/tender/internal/service"
)

func thresholdCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Show the published procurement threshold",
		Long: `Show the threshold that separates the simplified and full-review tracks.
The value comes from threshold.override or NOTICE_AMOUNT, the cached copy, or the
built-in default, in that order. A stale cache is refreshed in the background;
--refresh fetches the published notice page before answering.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, reasoningOff)
			if err != nil {
				return err
			}
			defer a.Close()

			var t service.Threshold
			if refresh {
				t, err = a.thresholds.Refresh(ctx)
				if err != nil {
					return fmt.Errorf("failed to refresh threshold: %w", err)
				}
			} else {
				t = a.thresholds.Threshold(ctx)
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), cli.RenderThreshold(t))
			return err
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the published notice even if the cache is fresh")

	return cmd
}
