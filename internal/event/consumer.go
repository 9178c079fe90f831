package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkgkafka "github.com/veryfrut/storefront/pkg/kafka"
)

// RefreshFunc forces a history refresh for a customer.
type RefreshFunc func(ctx context.Context, customerID string)

// StatusChangedHandler returns a consumer handler that forces a history
// refresh for the customer whose order changed status, so an open history
// view drops edit eligibility without waiting for the next poll.
func StatusChangedHandler(refresh RefreshFunc, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, ev *pkgkafka.Event) error {
		var data StatusChangedData
		if err := ev.UnmarshalData(&data); err != nil {
			// Retrying cannot fix a bad payload.
			logger.WarnContext(ctx, "dropping undecodable status event",
				slog.String("event_id", ev.EventID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if data.CustomerID <= 0 {
			return fmt.Errorf("status event %s: missing customer id", ev.EventID)
		}
		refresh(ctx, strconv.Itoa(data.CustomerID))
		return nil
	}
}
