package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"lmaalem_backend/internal/events"
	"lmaalem_backend/internal/messaging"
	"lmaalem_backend/internal/store"
	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/logger"
)

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*store.User
	cleared []string
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user " + id + " not found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) ClearUserToken(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.FCMToken = ""
	}
	f.cleared = append(f.cleared, id)
	return nil
}

type fakeEmployeeStore struct {
	employees []*store.Employee
}

func (f *fakeEmployeeStore) GetEmployee(_ context.Context, id string) (*store.Employee, error) {
	for _, employee := range f.employees {
		if employee.ID == id {
			return employee, nil
		}
	}
	return nil, apperr.NotFound("employee " + id + " not found")
}

func (f *fakeEmployeeStore) ListEmployeesByCategory(_ context.Context, categoryID string) ([]*store.Employee, error) {
	var matched []*store.Employee
	for _, employee := range f.employees {
		if employee.CategorieID.Is(categoryID) {
			matched = append(matched, employee)
		}
	}
	return matched, nil
}

type fakeClientStore struct {
	clients map[string]*store.Client
}

func (f *fakeClientStore) GetClient(_ context.Context, id string) (*store.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return nil, apperr.NotFound("client " + id + " not found")
	}
	return client, nil
}

type fakeSender struct {
	mu         sync.Mutex
	sent       []*messaging.Message
	failTokens map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTokens[msg.Token]; ok {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeSender) sentTokens() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens := make(map[string]bool, len(f.sent))
	for _, msg := range f.sent {
		tokens[msg.Token] = true
	}
	return tokens
}

func newTestService(users *fakeUserStore, employees *fakeEmployeeStore, clients *fakeClientStore, sender *fakeSender) *Service {
	if users == nil {
		users = &fakeUserStore{users: map[string]*store.User{}}
	}
	if employees == nil {
		employees = &fakeEmployeeStore{}
	}
	if clients == nil {
		clients = &fakeClientStore{clients: map[string]*store.Client{}}
	}
	return NewService(users, employees, clients, sender, logger.New("development"))
}

func TestHandleCallWritten_DeliversToCallee(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"u2": {ID: "u2", FCMToken: "tok-u2"},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, nil, nil, sender)

	err := svc.HandleCallWritten(context.Background(), events.CallWritten{
		CallID: "call-1",
		After:  ringingAudioCall(),
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Token != "tok-u2" {
		t.Fatalf("expected delivery to callee token, got %q", msg.Token)
	}
	if msg.Body != "Audio call from Alice" {
		t.Fatalf("expected body 'Audio call from Alice', got %q", msg.Body)
	}
}

func TestHandleCallWritten_AlreadyRingingSkips(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"u2": {ID: "u2", FCMToken: "tok-u2"},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, nil, nil, sender)

	err := svc.HandleCallWritten(context.Background(), events.CallWritten{
		CallID: "call-1",
		Before: ringingAudioCall(),
		After:  ringingAudioCall(),
	})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("duplicate ringing update must not deliver, err=%v sent=%d", err, len(sender.sent))
	}
}

func TestHandleCallWritten_MissingCalleeSkips(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(nil, nil, nil, sender)

	call := ringingAudioCall()
	call.CalleeID = ""
	err := svc.HandleCallWritten(context.Background(), events.CallWritten{CallID: "call-1", After: call})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("missing calleeId is a logged skip, err=%v sent=%d", err, len(sender.sent))
	}
}

func pendingRequest(categoryID, clientID string) *store.Request {
	return &store.Request{
		Statut:      store.RequestStatusPending,
		CategorieID: store.RefFromID(categoryID),
		ClientID:    store.RefFromID(clientID),
		Description: "Réparation de la climatisation",
		Address:     "Casablanca",
	}
}

func TestHandleRequestWritten_FanOutRestrictedToCategory(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uA": {ID: "uA", FCMToken: "tok-uA"},
		"uB": {ID: "uB", FCMToken: "tok-uB"},
		"uC": {ID: "uC", FCMToken: "tok-uC"},
	}}
	employees := &fakeEmployeeStore{employees: []*store.Employee{
		{ID: "e1", UserID: store.RefFromID("uA"), CategorieID: store.RefFromID("catA"), Name: "Karim"},
		{ID: "e2", UserID: store.RefFromID("uB"), CategorieID: store.RefFromID("catA"), Name: "Yassine"},
		{ID: "e3", UserID: store.RefFromID("uC"), CategorieID: store.RefFromID("catB"), Name: "Omar"},
	}}
	// The requesting client is also employee e2: the self-guard must
	// exclude uB from the recipient set.
	clients := &fakeClientStore{clients: map[string]*store.Client{
		"c1": {ID: "c1", UserID: store.RefFromID("uB")},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, employees, clients, sender)

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		After:     pendingRequest("catA", "c1"),
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	tokens := sender.sentTokens()
	if len(tokens) != 1 || !tokens["tok-uA"] {
		t.Fatalf("expected exactly tok-uA to receive the fan-out, got %v", tokens)
	}
}

func TestHandleRequestWritten_NonPendingCreationSkips(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(nil, nil, nil, sender)

	req := pendingRequest("catA", "c1")
	req.Statut = "Draft"
	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{RequestID: "req-1", After: req})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("non-pending creation must not fan out, err=%v sent=%d", err, len(sender.sent))
	}
}

func TestHandleRequestWritten_PerRecipientIsolation(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uA": {ID: "uA", FCMToken: "tok-dead"},
		"uB": {ID: "uB", FCMToken: "tok-uB"},
	}}
	employees := &fakeEmployeeStore{employees: []*store.Employee{
		{ID: "e1", UserID: store.RefFromID("uA"), CategorieID: store.RefFromID("catA")},
		{ID: "e2", UserID: store.RefFromID("uB"), CategorieID: store.RefFromID("catA")},
	}}
	sender := &fakeSender{failTokens: map[string]error{
		"tok-dead": fmt.Errorf("%w: unregistered", messaging.ErrTokenInvalid),
	}}
	svc := newTestService(users, employees, nil, sender)

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		After:     pendingRequest("catA", "c-missing"),
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	tokens := sender.sentTokens()
	if !tokens["tok-uB"] {
		t.Fatal("the healthy recipient must still be delivered")
	}
	if len(users.cleared) != 1 || users.cleared[0] != "uA" {
		t.Fatalf("expected exactly uA's token cleared, got %v", users.cleared)
	}
	if users.users["uA"].FCMToken != "" {
		t.Fatal("dead token must be removed from the user record")
	}
}

func TestHandleRequestWritten_NoTokenRecipientSkipped(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uA": {ID: "uA"}, // registered but never stored a token
	}}
	employees := &fakeEmployeeStore{employees: []*store.Employee{
		{ID: "e1", UserID: store.RefFromID("uA"), CategorieID: store.RefFromID("catA")},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, employees, nil, sender)

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		After:     pendingRequest("catA", "c1"),
	})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("token-less recipient is a skip, err=%v sent=%d", err, len(sender.sent))
	}
	if len(users.cleared) != 0 {
		t.Fatalf("skip must not mutate the user record, cleared=%v", users.cleared)
	}
}

func TestHandleRequestWritten_EmployeeAcceptedSingular(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uClient": {ID: "uClient", FCMToken: "tok-client"},
	}}
	employees := &fakeEmployeeStore{employees: []*store.Employee{
		{ID: "e1", UserID: store.RefFromID("uE1"), CategorieID: store.RefFromID("catA"), Name: "Karim"},
	}}
	clients := &fakeClientStore{clients: map[string]*store.Client{
		"c1": {ID: "c1", UserID: store.RefFromID("uClient")},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, employees, clients, sender)

	before := pendingRequest("catA", "c1")
	after := pendingRequest("catA", "c1")
	after.AcceptedEmployeeIDs = []string{"e1"}

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		Before:    before,
		After:     after,
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery to the client, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Token != "tok-client" {
		t.Fatalf("expected delivery to client token, got %q", msg.Token)
	}
	if msg.Body != "Karim a accepté votre demande" {
		t.Fatalf("expected singular body with employee name, got %q", msg.Body)
	}
}

func TestHandleRequestWritten_EmployeeAcceptedPlural(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uClient": {ID: "uClient", FCMToken: "tok-client"},
	}}
	clients := &fakeClientStore{clients: map[string]*store.Client{
		"c1": {ID: "c1", UserID: store.RefFromID("uClient")},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, nil, clients, sender)

	before := pendingRequest("catA", "c1")
	before.AcceptedEmployeeIDs = []string{"e1"}
	after := pendingRequest("catA", "c1")
	after.AcceptedEmployeeIDs = []string{"e1", "e2", "e3"}

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		Before:    before,
		After:     after,
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 batched delivery, got %d", len(sender.sent))
	}
	if sender.sent[0].Body != "2 employés ont accepté votre demande" {
		t.Fatalf("expected plural body with count 2, got %q", sender.sent[0].Body)
	}
}

func TestHandleRequestWritten_CreationWithAcceptedFiresBothRules(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uEmp":    {ID: "uEmp", FCMToken: "tok-emp"},
		"uClient": {ID: "uClient", FCMToken: "tok-client"},
	}}
	employees := &fakeEmployeeStore{employees: []*store.Employee{
		{ID: "e1", UserID: store.RefFromID("uEmp"), CategorieID: store.RefFromID("catA"), Name: "Karim"},
	}}
	clients := &fakeClientStore{clients: map[string]*store.Client{
		"c1": {ID: "c1", UserID: store.RefFromID("uClient")},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, employees, clients, sender)

	// A creation that already carries an accepted employee must fan out
	// to the category and notify the client of the acceptance.
	after := pendingRequest("catA", "c1")
	after.AcceptedEmployeeIDs = []string{"e1"}

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		After:     after,
	})
	if err != nil {
		t.Fatalf("handler must not surface errors, got %v", err)
	}

	tokens := sender.sentTokens()
	if !tokens["tok-emp"] || !tokens["tok-client"] {
		t.Fatalf("expected both the fan-out and the acceptance delivery, got %v", tokens)
	}
}

func TestHandleRequestWritten_AcceptedRequesterUnresolvable(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(nil, nil, nil, sender)

	before := pendingRequest("catA", "c-missing")
	after := pendingRequest("catA", "c-missing")
	after.AcceptedEmployeeIDs = []string{"e1"}

	err := svc.HandleRequestWritten(context.Background(), events.RequestWritten{
		RequestID: "req-1",
		Before:    before,
		After:     after,
	})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("unresolvable requester is a skip, err=%v sent=%d", err, len(sender.sent))
	}
}

func TestClearTokenIdempotent(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"uA": {ID: "uA", FCMToken: "tok-dead"},
	}}
	svc := newTestService(users, nil, nil, &fakeSender{})

	svc.clearToken(context.Background(), "uA")
	svc.clearToken(context.Background(), "uA")

	if users.users["uA"].FCMToken != "" {
		t.Fatal("token must be gone after clearing")
	}
	if len(users.cleared) != 2 {
		t.Fatalf("both clears run without error, got %d", len(users.cleared))
	}
}

func TestSendTestCall(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"u2":        {ID: "u2", FCMToken: "tok-u2"},
		"tokenless": {ID: "tokenless"},
	}}
	sender := &fakeSender{}
	svc := newTestService(users, nil, nil, sender)
	ctx := context.Background()

	if _, err := svc.SendTestCall(ctx, "missing", "u1", "", "call-1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown callee must be a not-found error, got %v", err)
	}
	if _, err := svc.SendTestCall(ctx, "tokenless", "u1", "", "call-1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("callee without token must be a not-found error, got %v", err)
	}

	messageID, err := svc.SendTestCall(ctx, "u2", "u1", "", "call-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if messageID == "" {
		t.Fatal("expected a provider message id")
	}
	if !strings.Contains(sender.sent[0].Body, "Test Caller") {
		t.Fatalf("expected default test caller name, got %q", sender.sent[0].Body)
	}
}

func TestSendTestCall_DeliveryError(t *testing.T) {
	users := &fakeUserStore{users: map[string]*store.User{
		"u2": {ID: "u2", FCMToken: "tok-dead"},
	}}
	sender := &fakeSender{failTokens: map[string]error{
		"tok-dead": fmt.Errorf("%w: unregistered", messaging.ErrTokenInvalid),
	}}
	svc := newTestService(users, nil, nil, sender)

	_, err := svc.SendTestCall(context.Background(), "u2", "u1", "Bob", "call-1")
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("delivery failure must surface as internal error, got %v", err)
	}
	if len(users.cleared) != 1 {
		t.Fatalf("dead token must still be cleaned up, cleared=%v", users.cleared)
	}
}
