package messaging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"lmaalem_backend/platform/logger"
)

// FCMSender sends push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	log    *logger.Logger
}

// NewFCMSender creates an FCM sender from an initialized Firebase app.
func NewFCMSender(ctx context.Context, app *firebase.App, log *logger.Logger) (*FCMSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return &FCMSender{client: client, log: log}, nil
}

// Send delivers one message. Failures caused by a dead or malformed token
// are wrapped in ErrTokenInvalid so the caller can clear the stored token.
func (s *FCMSender) Send(ctx context.Context, msg *Message) (string, error) {
	id, err := s.client.Send(ctx, buildMessage(msg))
	if err != nil {
		if messaging.IsUnregistered(err) || errorutils.IsInvalidArgument(err) {
			return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}

	s.log.Debug("fcm message sent", "message_id", id)
	return id, nil
}

func buildMessage(msg *Message) *messaging.Message {
	out := &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}

	sound := msg.Sound
	if sound == "" {
		sound = "default"
	}

	android := &messaging.AndroidConfig{
		Notification: &messaging.AndroidNotification{
			Sound:     sound,
			ChannelID: msg.ChannelID,
		},
	}
	apnsHeaders := map[string]string{}
	aps := &messaging.Aps{Sound: sound}
	if msg.Badge > 0 {
		badge := msg.Badge
		aps.Badge = &badge
	}

	if msg.HighPriority {
		android.Priority = "high"
		apnsHeaders["apns-priority"] = "10"
	}
	if msg.TTL > 0 {
		ttl := msg.TTL
		android.TTL = &ttl
		expiry := time.Now().Add(msg.TTL).Unix()
		apnsHeaders["apns-expiration"] = strconv.FormatInt(expiry, 10)
	}

	out.Android = android
	out.APNS = &messaging.APNSConfig{
		Headers: apnsHeaders,
		Payload: &messaging.APNSPayload{Aps: aps},
	}

	return out
}

// Compile-time check that FCMSender implements Sender.
var _ Sender = (*FCMSender)(nil)
