package notifier

import (
	"context"

	"lmaalem_backend/internal/store"
)

// Identity resolution never returns errors: absence of a document, a
// reference or a token is a normal outcome represented in-band, and the
// caller skips the recipient.

// resolveToken looks up the recipient's push token.
func (s *Service) resolveToken(ctx context.Context, userID string) (string, bool) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil || user == nil || user.FCMToken == "" {
		return "", false
	}
	return user.FCMToken, true
}

// resolveRequester follows the request's clientId reference to the
// client record and on to its user id.
func (s *Service) resolveRequester(ctx context.Context, clientRef store.Ref) (string, bool) {
	clientID, ok := clientRef.ID()
	if !ok {
		return "", false
	}
	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil || client == nil {
		return "", false
	}
	return client.UserID.ID()
}
