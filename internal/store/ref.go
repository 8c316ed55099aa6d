package store

import (
	"cloud.google.com/go/firestore"
)

// Ref is a loosely-typed document reference as it appears in Firestore
// fields written by the mobile client: sometimes a plain string id,
// sometimes a real document reference, sometimes an embedded object
// carrying an "id" attribute. All three normalize through ID; business
// logic never branches on the stored shape.
type Ref struct {
	id string
	ok bool
}

// RefFromID builds a resolved Ref from a plain id. Used by decoders and tests.
func RefFromID(id string) Ref {
	if id == "" {
		return Ref{}
	}
	return Ref{id: id, ok: true}
}

// RefFromValue normalizes a raw Firestore field value into a Ref.
// Unknown shapes yield the unresolved Ref; decoding never fails.
func RefFromValue(value interface{}) Ref {
	switch v := value.(type) {
	case string:
		return RefFromID(v)
	case *firestore.DocumentRef:
		if v == nil {
			return Ref{}
		}
		return RefFromID(v.ID)
	case map[string]interface{}:
		if id, ok := v["id"].(string); ok {
			return RefFromID(id)
		}
		return Ref{}
	default:
		return Ref{}
	}
}

// ID returns the normalized id and whether the reference resolved.
func (r Ref) ID() (string, bool) {
	return r.id, r.ok
}

// Is reports whether the reference resolves to the given id.
func (r Ref) Is(id string) bool {
	return r.ok && r.id == id
}
