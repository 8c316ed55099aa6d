// Package store provides access to the Firestore document database:
// typed snapshots of the calls/requests collections and the user,
// employee and client records they reference.
package store

// CallStatus is the status enum of a call document. Anything the client
// writes that is not a known constant compares unequal and is treated as
// the non-triggering branch.
type CallStatus string

// CallType is the media type enum of a call document.
type CallType string

const (
	CallStatusRinging CallStatus = "ringing"
	CallTypeAudio     CallType   = "audio"
)

// RequestStatus is the status enum of a request document. The field is
// spelled "statut" in the documents (the client app is French).
type RequestStatus string

const (
	RequestStatusPending RequestStatus = "Pending"
)

// Call is a snapshot of a calls/{id} document.
type Call struct {
	Status     CallStatus
	Type       CallType
	CalleeID   string
	CallerID   string
	CallerName string
}

// Request is a snapshot of a requests/{id} document.
type Request struct {
	Statut              RequestStatus
	CategorieID         Ref
	ClientID            Ref
	Description         string
	Address             string
	AcceptedEmployeeIDs []string
}

// User is a users/{id} record. FCMToken is empty when the user has no
// registered device or the token was cleared after a dead-token delivery.
type User struct {
	ID       string
	FCMToken string
}

// Employee is an employes/{id} record.
type Employee struct {
	ID          string
	UserID      Ref
	CategorieID Ref
	Name        string
}

// Client is a clients/{id} record.
type Client struct {
	ID     string
	UserID Ref
}

// CallFromData decodes a raw Firestore document into a Call snapshot.
// Missing or mistyped fields decode to zero values, never errors.
func CallFromData(data map[string]interface{}) *Call {
	if data == nil {
		return nil
	}
	return &Call{
		Status:     CallStatus(stringField(data, "status")),
		Type:       CallType(stringField(data, "type")),
		CalleeID:   stringField(data, "calleeId"),
		CallerID:   stringField(data, "callerId"),
		CallerName: stringField(data, "callerName"),
	}
}

// RequestFromData decodes a raw Firestore document into a Request snapshot.
func RequestFromData(data map[string]interface{}) *Request {
	if data == nil {
		return nil
	}
	return &Request{
		Statut:              RequestStatus(stringField(data, "statut")),
		CategorieID:         RefFromValue(data["categorieId"]),
		ClientID:            RefFromValue(data["clientId"]),
		Description:         stringField(data, "description"),
		Address:             stringField(data, "address"),
		AcceptedEmployeeIDs: stringSlice(data["acceptedEmployeeIds"]),
	}
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func stringSlice(value interface{}) []string {
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
