package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nekogravitycat/visitor-parking-backend/internal/app"
	"github.com/nekogravitycat/visitor-parking-backend/internal/auth"
)

func cancelCmd() *cobra.Command {
	var (
		actorID string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking on behalf of support with a full refund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(actorID); err != nil {
				return fmt.Errorf("invalid --actor %q: %w", actorID, err)
			}
			actor := auth.Identity{UserID: actorID, Role: auth.RoleSupport}

			return withContainer(cmd.Context(), func(ctx context.Context, _ *env, c *app.Container) error {
				res, err := c.Bookings.Cancel(ctx, args[0], actor, reason)
				if err != nil {
					return err
				}
				if res.AlreadyCancelled {
					fmt.Fprintf(cmd.OutOrStdout(), "booking %s was already cancelled\n", res.BookingID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booking %s cancelled, refund %d (%s)\n", res.BookingID, res.RefundAmount, res.Tier)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actorID, "actor", auth.SystemActorID, "support user id recorded as the canceller")
	cmd.Flags().StringVar(&reason, "reason", "support_cancellation", "reason stored with the cancellation")

	return cmd
}
