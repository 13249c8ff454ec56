package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor"
	"github.com/edocument-exchange/internal/edocument_processor/aggregator"
	"github.com/spf13/cobra"
)

func newAggregateCmd(root *options) *cobra.Command {
	var (
		companyID int64
		profile   string
		at        string
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Synchronize the aggregation flows",
		Long: `Regroup eligible records into the flows of the period containing --at.
Without --company-id every company and aggregated profile is synchronized, as
the processor does on each tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(at, time.Now().UTC())
			if err != nil {
				return err
			}
			var p shared.Profile
			if companyID > 0 {
				if p, err = parseProfile(profile); err != nil {
					return err
				}
				if !p.IsAggregated() {
					return fmt.Errorf("%s records are reported one by one and have no flows", p)
				}
			} else if profile != "" {
				return fmt.Errorf("--profile needs --company-id")
			}

			return root.withRuntime(cmd, func(ctx context.Context, rt *edocument_processor.Runtime) error {
				var result aggregator.Result
				if companyID > 0 {
					result, err = rt.Aggregator.Sync(ctx, companyID, p, day)
				} else {
					result, err = rt.Aggregator.SyncAll(ctx, day)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created=%d updated=%d deleted=%d skipped=%d\n",
					result.Created, result.Updated, result.Deleted, result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&companyID, "company-id", 0, "Only synchronize this company")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Aggregated profile of the company to synchronize")
	cmd.Flags().StringVar(&at, "at", "", "Day inside the period, YYYY-MM-DD (default today)")
	return cmd
}
