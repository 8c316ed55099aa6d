package store

import "context"

// UserStore reads user records and maintains their push token.
// Missing documents surface as apperr.KindNotFound; callers treat that
// as "unresolved", not as a failure.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	// ClearUserToken removes the fcmToken field from the user record.
	// Clearing an already-absent token is a no-op.
	ClearUserToken(ctx context.Context, id string) error
}

// EmployeeStore reads employee records.
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	// ListEmployeesByCategory returns all employees whose categorieId
	// resolves to the given category, in query order.
	ListEmployeesByCategory(ctx context.Context, categoryID string) ([]*Employee, error)
}

// ClientStore reads client records.
type ClientStore interface {
	GetClient(ctx context.Context, id string) (*Client, error)
}
