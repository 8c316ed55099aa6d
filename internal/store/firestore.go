package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lmaalem_backend/platform/apperr"
	"lmaalem_backend/platform/logger"
)

// Collection names as the mobile client writes them.
const (
	CollectionCalls      = "calls"
	CollectionRequests   = "requests"
	CollectionUsers      = "users"
	CollectionEmployees  = "employes"
	CollectionClients    = "clients"
	CollectionCategories = "categories"

	fieldFCMToken    = "fcmToken"
	fieldCategorieID = "categorieId"
)

// Firestore implements the store interfaces on a Firestore client.
type Firestore struct {
	client *firestore.Client
	log    *logger.Logger
}

// NewFirestore creates a Firestore-backed store.
func NewFirestore(client *firestore.Client, log *logger.Logger) *Firestore {
	return &Firestore{client: client, log: log}
}

// Client exposes the underlying Firestore client for the change watcher.
func (s *Firestore) Client() *firestore.Client {
	return s.client
}

// GetUser fetches a user record by id.
func (s *Firestore) GetUser(ctx context.Context, id string) (*User, error) {
	doc, err := s.client.Collection(CollectionUsers).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("user " + id + " not found").WithOp("store.GetUser")
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	data := doc.Data()
	return &User{
		ID:       doc.Ref.ID,
		FCMToken: stringField(data, fieldFCMToken),
	}, nil
}

// ClearUserToken deletes the fcmToken field from the user record.
// Idempotent: a missing field or a missing document both succeed.
func (s *Firestore) ClearUserToken(ctx context.Context, id string) error {
	_, err := s.client.Collection(CollectionUsers).Doc(id).Update(ctx, []firestore.Update{
		{Path: fieldFCMToken, Value: firestore.Delete},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("clear token for user %s: %w", id, err)
	}
	return nil
}

// GetEmployee fetches an employee record by id.
func (s *Firestore) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	doc, err := s.client.Collection(CollectionEmployees).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("employee " + id + " not found").WithOp("store.GetEmployee")
		}
		return nil, fmt.Errorf("get employee %s: %w", id, err)
	}
	return employeeFromDoc(doc), nil
}

// ListEmployeesByCategory queries employees by category membership.
// The categorieId field holds either a plain string id or a document
// reference depending on which client version wrote it, so both forms
// are queried and merged. Order within each form is query order.
func (s *Firestore) ListEmployeesByCategory(ctx context.Context, categoryID string) ([]*Employee, error) {
	categoryRef := s.client.Collection(CollectionCategories).Doc(categoryID)

	var employees []*Employee
	seen := make(map[string]struct{})

	for _, value := range []interface{}{categoryID, categoryRef} {
		iter := s.client.Collection(CollectionEmployees).
			Where(fieldCategorieID, "==", value).
			Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, fmt.Errorf("list employees for category %s: %w", categoryID, err)
			}
			if _, dup := seen[doc.Ref.ID]; dup {
				continue
			}
			seen[doc.Ref.ID] = struct{}{}
			employees = append(employees, employeeFromDoc(doc))
		}
		iter.Stop()
	}

	return employees, nil
}

// GetClient fetches a client record by id.
func (s *Firestore) GetClient(ctx context.Context, id string) (*Client, error) {
	doc, err := s.client.Collection(CollectionClients).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("client " + id + " not found").WithOp("store.GetClient")
		}
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	data := doc.Data()
	return &Client{
		ID:     doc.Ref.ID,
		UserID: RefFromValue(data["userId"]),
	}, nil
}

// Ping verifies the Firestore connection for health checks.
func (s *Firestore) Ping(ctx context.Context) error {
	iter := s.client.Collection(CollectionUsers).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func employeeFromDoc(doc *firestore.DocumentSnapshot) *Employee {
	data := doc.Data()
	name := stringField(data, "name")
	if name == "" {
		name = stringField(data, "nom")
	}
	return &Employee{
		ID:          doc.Ref.ID,
		UserID:      RefFromValue(data["userId"]),
		CategorieID: RefFromValue(data[fieldCategorieID]),
		Name:        name,
	}
}

// Compile-time checks that Firestore satisfies the store interfaces.
var (
	_ UserStore     = (*Firestore)(nil)
	_ EmployeeStore = (*Firestore)(nil)
	_ ClientStore   = (*Firestore)(nil)
)
