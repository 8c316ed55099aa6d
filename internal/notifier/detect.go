package notifier

import "lmaalem_backend/internal/store"

// The transition rules are edge-triggered: they fire only on the write
// that moves a document into the triggering condition, never while the
// condition merely remains true. Deletions (nil after) trigger nothing.

// detectRingingAudioCall reports whether this write newly put the call
// into the ringing/audio state. A metadata update to an already-ringing
// audio call does not re-trigger.
func detectRingingAudioCall(before, after *store.Call) bool {
	if after == nil || after.Status != store.CallStatusRinging || after.Type != store.CallTypeAudio {
		return false
	}
	if before != nil && before.Status == store.CallStatusRinging && before.Type == store.CallTypeAudio {
		return false
	}
	return true
}

// detectNewPendingRequest reports whether this write created a request
// document in the Pending state.
func detectNewPendingRequest(before, after *store.Request) bool {
	return before == nil && after != nil && after.Statut == store.RequestStatusPending
}

// newlyAcceptedEmployees returns the employee ids present in the after
// snapshot's acceptedEmployeeIds but not in the before snapshot's, in
// after order. The request must still be Pending; the result carries
// exactly the newly-added ids so simultaneous acceptances batch into one
// notification.
func newlyAcceptedEmployees(before, after *store.Request) []string {
	if after == nil || after.Statut != store.RequestStatusPending {
		return nil
	}

	previous := make(map[string]struct{})
	if before != nil {
		for _, id := range before.AcceptedEmployeeIDs {
			previous[id] = struct{}{}
		}
	}

	var added []string
	seen := make(map[string]struct{})
	for _, id := range after.AcceptedEmployeeIDs {
		if _, ok := previous[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, id)
	}
	return added
}
