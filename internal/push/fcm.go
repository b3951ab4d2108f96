// Package push delivers push notifications to registered devices.
package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"giftfeed/internal/middleware"
)

// Result reports the outcome of a multicast send.
type Result struct {
	SuccessCount int
	FailureCount int
	// FailedTokens lists the device tokens that were rejected by the
	// provider and should be deactivated.
	FailedTokens []string
}

// Sender delivers a title/body message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Result, error)
}

// FCMSender sends messages through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes a Firebase app from a service-account credentials
// file and returns a Sender backed by its messaging client.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return Result{}, fmt.Errorf("send multicast: %w", err)
	}

	result := Result{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}
	for i, r := range resp.Responses {
		if r.Error != nil {
			result.FailedTokens = append(result.FailedTokens, tokens[i])
			middleware.Logger.WarnContext(ctx, "Push delivery failed for token",
				slog.String("error", r.Error.Error()),
			)
		}
	}
	return result, nil
}
