package notifier

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"lmaalem_backend/internal/events"
	"lmaalem_backend/internal/messaging"
	"lmaalem_backend/internal/store"
	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/logger"
)

// fanOutLimit bounds concurrent deliveries within one triggering event.
const fanOutLimit = 8

// OutcomeStatus is the terminal state of one recipient delivery.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Skip and failure reasons.
const (
	ReasonNoToken      = "no-token"
	ReasonInvalidToken = "invalid-token"
	ReasonSendError    = "send-error"
)

// Outcome records how one recipient's delivery settled. Deliveries are
// at-most-once: a failed outcome is terminal for this event.
type Outcome struct {
	UserID    string
	Status    OutcomeStatus
	Reason    string
	MessageID string
}

// Service orchestrates the reaction rules: transition detection, identity
// resolution, fan-out, composition and delivery with token hygiene.
type Service struct {
	users     store.UserStore
	employees store.EmployeeStore
	clients   store.ClientStore
	sender    messaging.Sender
	log       *logger.Logger
}

// NewService creates the notifier service.
func NewService(users store.UserStore, employees store.EmployeeStore, clients store.ClientStore, sender messaging.Sender, log *logger.Logger) *Service {
	return &Service{
		users:     users,
		employees: employees,
		clients:   clients,
		sender:    sender,
		log:       log,
	}
}

// HandleCallWritten reacts to a write on a calls/{id} document.
// Always returns nil: every non-triggering or unresolvable condition is
// a routine non-event, and the bus must not see it as retry-worthy.
func (s *Service) HandleCallWritten(ctx context.Context, e events.CallWritten) error {
	if !detectRingingAudioCall(e.Before, e.After) {
		s.log.SkippedEvent("audio-call-ringing", e.CallID, "not a new ringing audio call")
		return nil
	}

	call := e.After
	if call.CalleeID == "" || call.CallerID == "" {
		s.log.SkippedEvent("audio-call-ringing", e.CallID, "missing calleeId or callerId")
		return nil
	}

	p := composeIncomingAudioCall(e.CallID, call.CallerID, call.CallerName)
	outcome := s.deliver(ctx, call.CalleeID, p)
	s.logOutcome("audio-call-ringing", e.CallID, outcome)
	return nil
}

// HandleRequestWritten reacts to a write on a requests/{id} document.
// The new-pending-request and employee-accepted rules are independent:
// one write can fire both, as when a request is created already carrying
// accepted employee ids.
// Always returns nil, for the same reason as HandleCallWritten.
func (s *Service) HandleRequestWritten(ctx context.Context, e events.RequestWritten) error {
	triggered := false

	if detectNewPendingRequest(e.Before, e.After) {
		triggered = true
		s.handleNewRequest(ctx, e.RequestID, e.After)
	}
	if added := newlyAcceptedEmployees(e.Before, e.After); len(added) > 0 {
		triggered = true
		s.handleEmployeesAccepted(ctx, e.RequestID, e.After, added)
	}

	if !triggered {
		s.log.SkippedEvent("request-rules", e.RequestID, "no triggering transition")
	}
	return nil
}

func (s *Service) handleNewRequest(ctx context.Context, requestID string, req *store.Request) {
	categoryID, ok := req.CategorieID.ID()
	if !ok {
		s.log.SkippedEvent("new-pending-request", requestID, "missing categorieId")
		return
	}

	// The requester may also be registered as an employee in the target
	// category; the self-guard in expandRecipients needs their user id.
	requesterUserID, _ := s.resolveRequester(ctx, req.ClientID)

	recipients := s.expandRecipients(ctx, categoryID, requesterUserID)
	if len(recipients) == 0 {
		s.log.SkippedEvent("new-pending-request", requestID, "no recipients in category "+categoryID)
		return
	}

	p := composeNewRequest(requestID, req.Description, req.Address)
	outcomes := s.fanOut(ctx, recipients, p)
	for _, outcome := range outcomes {
		s.logOutcome("new-pending-request", requestID, outcome)
	}
}

func (s *Service) handleEmployeesAccepted(ctx context.Context, requestID string, req *store.Request, added []string) {
	// The client lookup happens once; the same resolution backs both the
	// delivery and any token-hygiene mutation on failure.
	recipientUserID, ok := s.resolveRequester(ctx, req.ClientID)
	if !ok {
		s.log.SkippedEvent("employee-accepted", requestID, "requester unresolvable")
		return
	}

	var firstName string
	if len(added) == 1 {
		if employee, err := s.employees.GetEmployee(ctx, added[0]); err == nil {
			firstName = employee.Name
		}
	}

	p := composeEmployeesAccepted(requestID, firstName, len(added))
	outcome := s.deliver(ctx, recipientUserID, p)
	s.logOutcome("employee-accepted", requestID, outcome)
}

// expandRecipients resolves the recipient set for a new request: every
// employee in the category, minus the requester, duplicates collapsed
// keeping query order.
func (s *Service) expandRecipients(ctx context.Context, categoryID, requesterUserID string) []string {
	employees, err := s.employees.ListEmployeesByCategory(ctx, categoryID)
	if err != nil {
		s.log.StoreError("list employees by category", err)
		return nil
	}

	var recipients []string
	seen := make(map[string]struct{})
	for _, employee := range employees {
		userID, ok := employee.UserID.ID()
		if !ok {
			s.log.SkippedEvent("new-pending-request", employee.ID, "employee has no userId")
			continue
		}
		if userID == requesterUserID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}
	return recipients
}

// fanOut delivers the payload to every recipient concurrently. Outcomes
// are collected independently: one recipient's failure never blocks or
// fails another's delivery, and fanOut returns only after all deliveries
// have settled.
func (s *Service) fanOut(ctx context.Context, userIDs []string, p payload) []Outcome {
	outcomes := make([]Outcome, 0, len(userIDs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			outcome := s.deliver(gctx, userID, p)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// deliver resolves the recipient's token, performs at most one send and
// applies token hygiene on a dead-token failure.
func (s *Service) deliver(ctx context.Context, userID string, p payload) Outcome {
	token, ok := s.resolveToken(ctx, userID)
	if !ok {
		return Outcome{UserID: userID, Status: OutcomeSkipped, Reason: ReasonNoToken}
	}

	messageID, err := s.sender.Send(ctx, p.message(token))
	if err != nil {
		if errors.Is(err, messaging.ErrTokenInvalid) {
			s.clearToken(ctx, userID)
			return Outcome{UserID: userID, Status: OutcomeFailed, Reason: ReasonInvalidToken}
		}
		s.log.DeliveryError(userID, err)
		return Outcome{UserID: userID, Status: OutcomeFailed, Reason: ReasonSendError}
	}

	return Outcome{UserID: userID, Status: OutcomeDelivered, MessageID: messageID}
}

// clearToken removes the stored token so later events do not retry a
// dead one. Best-effort and idempotent; a concurrent duplicate clear for
// the same stale token is harmless.
func (s *Service) clearToken(ctx context.Context, userID string) {
	s.log.Info("clearing invalid fcm token", "user_id", userID)
	if err := s.users.ClearUserToken(ctx, userID); err != nil {
		s.log.StoreError("clear user token", err)
	}
}

// SendTestCall synthesizes one audio-call notification, bypassing the
// document-change trigger. It is the only notifier path that surfaces
// errors, since the ops caller needs them.
func (s *Service) SendTestCall(ctx context.Context, calleeID, callerID, callerName, callID string) (string, error) {
	if callerName == "" {
		callerName = "Test Caller"
	}

	user, err := s.users.GetUser(ctx, calleeID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.NotFound("callee " + calleeID + " not found")
		}
		return "", apperr.Wrap(apperr.KindInternal, "failed to look up callee", err)
	}
	if user.FCMToken == "" {
		return "", apperr.NotFound("no FCM token for callee " + calleeID)
	}

	p := composeIncomingAudioCall(callID, callerID, callerName)
	messageID, err := s.sender.Send(ctx, p.message(user.FCMToken))
	if err != nil {
		if errors.Is(err, messaging.ErrTokenInvalid) {
			s.clearToken(ctx, calleeID)
		}
		return "", apperr.Wrap(apperr.KindInternal, "failed to send test notification", err)
	}

	return messageID, nil
}

func (s *Service) logOutcome(rule, docID string, outcome Outcome) {
	switch outcome.Status {
	case OutcomeDelivered:
		s.log.Info("notification delivered",
			"rule", rule,
			"doc_id", docID,
			"user_id", outcome.UserID,
			"message_id", outcome.MessageID,
		)
	case OutcomeSkipped:
		s.log.SkippedEvent(rule, docID, "recipient "+outcome.UserID+": "+outcome.Reason)
	case OutcomeFailed:
		s.log.Warn("notification failed",
			"rule", rule,
			"doc_id", docID,
			"user_id", outcome.UserID,
			"reason", outcome.Reason,
		)
	}
}
