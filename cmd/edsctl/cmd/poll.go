package cmd

import (
	"context"

	"github.com/edocument-exchange/internal/edocument_processor"
	"github.com/spf13/cobra"
)

func newPollCmd(root *options) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one status poll",
		Long: `Collect the verdicts of pending government submissions and the state of
open QRIS payment requests once, then print what the poll did. While a
processor holds the poll lock nothing is done and Locked is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withRuntime(cmd, func(ctx context.Context, rt *edocument_processor.Runtime) error {
				statusPoller, err := rt.StatusPoller()
				if err != nil {
					return err
				}
				defer statusPoller.Close()

				summary, err := statusPoller.Tick(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}
