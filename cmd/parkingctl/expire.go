package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/visitor-parking-backend/internal/app"
)

func expireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire-pending",
		Short: "Cancel pending bookings older than the pending TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(ctx context.Context, e *env, c *app.Container) error {
				ttl := e.cfg.Booking.PendingTTL
				if cmd.Flags().Changed("ttl") {
					ttl, _ = cmd.Flags().GetDuration("ttl")
				}

				n, err := c.Bookings.ExpirePending(ctx, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d pending booking(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().Duration("ttl", 0, "override PENDING_BOOKING_TTL")

	return cmd
}
