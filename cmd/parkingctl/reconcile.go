package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/visitor-parking-backend/internal/app"
)

const dateLayout = "2006-01-02"

func reconcileCmd() *cobra.Command {
	var (
		date     string
		building string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Build payouts and commissions for one day",
		Long: `Aggregate confirmed, paid bookings into one payout per building and
record the platform commission for each payout.

Re-running a day is safe: existing payouts and commissions are reported
as "exists" and never written twice.

Examples:
  parkingctl reconcile                      # yesterday, every building
  parkingctl reconcile --date 2026-02-28
  parkingctl reconcile --date 2026-02-28 --building <uuid>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC().AddDate(0, 0, -1)
			if date != "" {
				parsed, err := time.Parse(dateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = parsed
			}

			return withContainer(cmd.Context(), func(ctx context.Context, _ *env, c *app.Container) error {
				out := cmd.OutOrStdout()

				if building != "" {
					res, err := c.Payouts.RunDaily(ctx, building, day)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%s\n", res.BuildingID, res.Outcome)
					if res.Payout != nil {
						cr, err := c.Payouts.CalculateCommission(ctx, res.Payout.ID)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "commission\t%s\n", cr.Outcome)
					}
					return nil
				}

				results, err := c.Payouts.RunAll(ctx, day)
				for _, r := range results {
					net := int64(0)
					if r.Payout != nil {
						net = r.Payout.NetAmount
					}
					fmt.Fprintf(out, "%s\t%s\tnet=%d\n", r.BuildingID, r.Outcome, net)
				}
				fmt.Fprintf(out, "%d building(s) processed for %s\n", len(results), day.Format(dateLayout))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to reconcile (YYYY-MM-DD, UTC); defaults to yesterday")
	cmd.Flags().StringVar(&building, "building", "", "limit the run to one building id")

	return cmd
}
