// Package notifications dispatches push notifications and records them in
// the durable inbox.
package notifications

import (
	"context"
	"log/slog"

	"giftfeed/internal/middleware"
	"giftfeed/internal/models"
	"giftfeed/internal/observability"
	"giftfeed/internal/push"
	"giftfeed/internal/repository"
)

// Dispatcher fans a message out to a user's active devices and always writes
// an inbox record, whatever the delivery outcome.
type Dispatcher struct {
	sender        push.Sender
	devices       repository.DeviceRepository
	notifications repository.NotificationRepository
}

// NewDispatcher wires a Dispatcher. sender may be nil, in which case push
// delivery is skipped but inbox records are still written.
func NewDispatcher(sender push.Sender, devices repository.DeviceRepository, notifications repository.NotificationRepository) *Dispatcher {
	return &Dispatcher{
		sender:        sender,
		devices:       devices,
		notifications: notifications,
	}
}

// Dispatch sends title/body to every active device of userID. Tokens the
// provider rejects are deactivated. The inbox record is written regardless
// of delivery outcome, and errors are logged rather than returned so push
// failures never fail the triggering request.
func (d *Dispatcher) Dispatch(ctx context.Context, userID uint, title, body string, data map[string]string) {
	if d.sender != nil {
		tokens, err := d.devices.ActiveTokens(ctx, userID)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "Failed to load device tokens for push",
				slog.Uint64("target_user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		} else if len(tokens) > 0 {
			result, err := d.sender.Send(ctx, tokens, title, body, data)
			if err != nil {
				observability.PushDeliveries.WithLabelValues("error").Inc()
				middleware.Logger.ErrorContext(ctx, "Push delivery failed",
					slog.Uint64("target_user_id", uint64(userID)),
					slog.String("error", err.Error()),
				)
			} else {
				if result.SuccessCount > 0 {
					observability.PushDeliveries.WithLabelValues("success").Inc()
				}
				if result.FailureCount > 0 {
					observability.PushDeliveries.WithLabelValues("failure").Inc()
				}
				if len(result.FailedTokens) > 0 {
					if pruneErr := d.devices.DeactivateTokens(ctx, result.FailedTokens); pruneErr != nil {
						middleware.Logger.ErrorContext(ctx, "Failed to deactivate rejected tokens",
							slog.String("error", pruneErr.Error()),
						)
					} else {
						observability.PushTokensPruned.Add(float64(len(result.FailedTokens)))
					}
				}
			}
		}
	}

	n := &models.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to record notification",
			slog.Uint64("target_user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}
