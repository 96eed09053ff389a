package realtime

import (
	"encoding/json"
	"time"
)

// EventKind is the fixed set of event types carried over the realtime
// channel, in both directions.
type EventKind string

const (
	// Outbound
	KindStatusUpdated  EventKind = "status-updated"
	KindCallLogUpdated EventKind = "call-log-updated"
	KindEmergencyAlert EventKind = "emergency-alert"

	// Inbound
	KindJoinSession      EventKind = "join-session"
	KindLeaveSession     EventKind = "leave-session"
	KindJoinAdmin        EventKind = "join-admin"
	KindCallStatusUpdate EventKind = "call-status-update"
)

// Message is the wire envelope for realtime traffic.
type Message struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is a session status transition pushed to subscribers.
type Event struct {
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Emergency bool      `json:"emergency,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JoinPayload is the inbound payload for join-session/leave-session.
type JoinPayload struct {
	SessionID string `json:"sessionId"`
}

// Notifier pushes session transitions to interested parties. Delivery is
// best-effort, at-most-once per connected subscriber; there is no buffering
// or replay for subscribers that are not connected.
type Notifier interface {
	// PublishStatus delivers a transition to the session's own subscribers
	// and mirrors it to the admin scope.
	PublishStatus(ev Event)

	// PublishEmergency raises a distinguished alert on the admin scope.
	PublishEmergency(ev Event)
}

// Fanout broadcasts to several notifiers; used to mirror admin-scope events
// to the ops publisher alongside the websocket hub.
type Fanout []Notifier

func (f Fanout) PublishStatus(ev Event) {
	for _, n := range f {
		n.PublishStatus(ev)
	}
}

func (f Fanout) PublishEmergency(ev Event) {
	for _, n := range f {
		n.PublishEmergency(ev)
	}
}

// NopNotifier drops every event. Used in tests and when no realtime channel
// is wired.
type NopNotifier struct{}

func (NopNotifier) PublishStatus(Event)    {}
func (NopNotifier) PublishEmergency(Event) {}

func encode(kind EventKind, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Payload: raw})
}
