// README: FCM push delivery through the Firebase messaging client.
package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return ErrNoToken
	}
	msg := &messaging.Message{
		Token: token,
		Data:  data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("send fcm: %w", err)
	}
	return nil
}
