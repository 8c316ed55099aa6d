// Package messaging provides the push delivery capability behind a small
// Sender interface so the notifier core can be tested without FCM.
package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrTokenInvalid classifies delivery failures caused by a dead or
// malformed registration token. Callers react by clearing the stored
// token so later events do not retry it.
var ErrTokenInvalid = errors.New("messaging: registration token invalid")

// Message is one outbound push notification.
type Message struct {
	Token string
	Title string
	Body  string
	Sound string
	Data  map[string]string

	// Platform hints. HighPriority and TTL are set for ringing-call
	// notifications, where a late delivery is useless; other kinds use
	// the transport defaults.
	HighPriority bool
	TTL          time.Duration
	ChannelID    string
	Badge        int
}

// Sender delivers one message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}
