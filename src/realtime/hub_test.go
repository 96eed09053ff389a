package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, kind EventKind, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	msg, err := json.Marshal(Message{Type: kind, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (Message, Event) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	var ev Event
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	return msg, ev
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg Message
	err := conn.ReadJSON(&msg)
	require.Error(t, err, "expected no message, got %+v", msg)
}

func TestHubRoomScoping(t *testing.T) {
	hub, url := startHub(t)

	member := dial(t, url)
	send(t, member, KindJoinSession, JoinPayload{SessionID: "s1"})

	outsider := dial(t, url)
	send(t, outsider, KindJoinSession, JoinPayload{SessionID: "s2"})

	admin := dial(t, url)
	send(t, admin, KindJoinAdmin, struct{}{})

	// Let the joins land before publishing.
	time.Sleep(100 * time.Millisecond)

	hub.PublishStatus(Event{SessionID: "s1", Status: "active", Message: "connected", Timestamp: time.Now()})

	msg, ev := readEnvelope(t, member)
	assert.Equal(t, KindStatusUpdated, msg.Type)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "active", ev.Status)

	// The admin room sees every session as a call-log update.
	msg, ev = readEnvelope(t, admin)
	assert.Equal(t, KindCallLogUpdated, msg.Type)
	assert.Equal(t, "s1", ev.SessionID)

	// Other rooms hear nothing.
	expectSilence(t, outsider)
}

func TestHubEmergencyAlertsAdminsOnly(t *testing.T) {
	hub, url := startHub(t)

	member := dial(t, url)
	send(t, member, KindJoinSession, JoinPayload{SessionID: "s1"})

	admin := dial(t, url)
	send(t, admin, KindJoinAdmin, struct{}{})

	time.Sleep(100 * time.Millisecond)

	hub.PublishStatus(Event{SessionID: "s1", Status: "active", Emergency: true, Timestamp: time.Now()})

	// The member sees the plain status update only.
	msg, _ := readEnvelope(t, member)
	assert.Equal(t, KindStatusUpdated, msg.Type)
	expectSilence(t, member)

	// The admin sees the call log update and then the alert.
	msg, _ = readEnvelope(t, admin)
	assert.Equal(t, KindCallLogUpdated, msg.Type)
	msg, ev := readEnvelope(t, admin)
	assert.Equal(t, KindEmergencyAlert, msg.Type)
	assert.True(t, ev.Emergency)
}

func TestHubClientStatusRebroadcast(t *testing.T) {
	_, url := startHub(t)

	observer := dial(t, url)
	send(t, observer, KindJoinSession, JoinPayload{SessionID: "s1"})

	reporter := dial(t, url)
	time.Sleep(100 * time.Millisecond)

	send(t, reporter, KindCallStatusUpdate, Event{SessionID: "s1", Status: "connecting"})

	msg, ev := readEnvelope(t, observer)
	assert.Equal(t, KindStatusUpdated, msg.Type)
	assert.Equal(t, "connecting", ev.Status)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestHubLeaveSession(t *testing.T) {
	hub, url := startHub(t)

	member := dial(t, url)
	send(t, member, KindJoinSession, JoinPayload{SessionID: "s1"})
	time.Sleep(100 * time.Millisecond)

	send(t, member, KindLeaveSession, JoinPayload{SessionID: "s1"})
	time.Sleep(100 * time.Millisecond)

	hub.PublishStatus(Event{SessionID: "s1", Status: "active", Timestamp: time.Now()})
	expectSilence(t, member)
}

func TestFanoutBroadcastsToAll(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{}
	f := Fanout{a, b}

	f.PublishStatus(Event{SessionID: "s1"})
	f.PublishEmergency(Event{SessionID: "s1"})

	assert.Equal(t, 1, a.status)
	assert.Equal(t, 1, b.status)
	assert.Equal(t, 1, a.alerts)
	assert.Equal(t, 1, b.alerts)
}

type countingNotifier struct {
	status int
	alerts int
}

func (n *countingNotifier) PublishStatus(Event)    { n.status++ }
func (n *countingNotifier) PublishEmergency(Event) { n.alerts++ }
