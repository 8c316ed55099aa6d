package notifier

import (
	"fmt"
	"time"

	"lmaalem_backend/internal/messaging"
)

const (
	eventTypeIncomingAudioCall = "incoming_audio_call"
	eventTypeNewRequest        = "new_request"
	eventTypeEmployeeAccepted  = "employee_accepted"

	defaultCallerName   = "Someone"
	defaultEmployeeName = "Un employé"
	defaultDescription  = "Nouvelle demande"

	// Descriptions longer than this many runes are truncated with an
	// ellipsis. Exactly descriptionLimit runes pass through untouched.
	descriptionLimit = 50

	// A ringing-call notification delivered late is useless, so call
	// payloads carry a bounded TTL and high delivery priority.
	callTTL       = 30 * time.Second
	callChannelID = "incoming_calls"
)

// payload is the composed notification content for one event, before a
// recipient token is attached.
type payload struct {
	title        string
	body         string
	data         map[string]string
	highPriority bool
	ttl          time.Duration
	channelID    string
	badge        int
}

// message binds the payload to a recipient token.
func (p payload) message(token string) *messaging.Message {
	return &messaging.Message{
		Token:        token,
		Title:        p.title,
		Body:         p.body,
		Sound:        "default",
		Data:         p.data,
		HighPriority: p.highPriority,
		TTL:          p.ttl,
		ChannelID:    p.channelID,
		Badge:        p.badge,
	}
}

func composeIncomingAudioCall(callID, callerID, callerName string) payload {
	if callerName == "" {
		callerName = defaultCallerName
	}
	return payload{
		title: "Incoming Call",
		body:  "Audio call from " + callerName,
		data: map[string]string{
			"type":       eventTypeIncomingAudioCall,
			"callId":     callID,
			"callerId":   callerID,
			"callerName": callerName,
			"audio":      "true",
		},
		highPriority: true,
		ttl:          callTTL,
		channelID:    callChannelID,
		badge:        1,
	}
}

func composeNewRequest(requestID, description, address string) payload {
	if description == "" {
		description = defaultDescription
	}
	return payload{
		title: "Nouvelle demande",
		body:  truncateDescription(description) + "\nLocation: " + address,
		data: map[string]string{
			"type":      eventTypeNewRequest,
			"requestId": requestID,
		},
	}
}

// composeEmployeesAccepted builds the acceptance notification. count is
// the number of newly-accepted employees; firstName is the display name
// of the single employee when count is one (empty when the record is
// missing).
func composeEmployeesAccepted(requestID, firstName string, count int) payload {
	var body string
	if count == 1 {
		if firstName == "" {
			firstName = defaultEmployeeName
		}
		body = firstName + " a accepté votre demande"
	} else {
		body = fmt.Sprintf("%d employés ont accepté votre demande", count)
	}
	return payload{
		title: "Demande acceptée",
		body:  body,
		data: map[string]string{
			"type":      eventTypeEmployeeAccepted,
			"requestId": requestID,
		},
	}
}

func truncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= descriptionLimit {
		return s
	}
	return string(runes[:descriptionLimit]) + "..."
}
