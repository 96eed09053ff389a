package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"call-session-service/src/realtime"
	"call-session-service/src/schemas"
)

// CallState is the client-side view of the call lifecycle.
type CallState int32

const (
	StateIdle CallState = iota
	StateConnecting
	StateConnected
	StateFailed
	StateEnded
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateFailed:
		return "FAILED"
	case StateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeHandler observes client state transitions.
type StateChangeHandler func(oldState, newState CallState)

// Config holds the client call controller settings.
type Config struct {
	BaseURL string
	WSURL   string
	Token   string

	HTTPTimeout     time.Duration
	MaxConnectTries uint64

	// ResetDelay is how long a terminal state is displayed before the
	// controller returns to idle, ready for a new call.
	ResetDelay time.Duration
}

// DefaultConfig returns the settings used by the browser client.
func DefaultConfig(baseURL, wsURL string) *Config {
	return &Config{
		BaseURL:         baseURL,
		WSURL:           wsURL,
		HTTPTimeout:     10 * time.Second,
		MaxConnectTries: 3,
		ResetDelay:      5 * time.Second,
	}
}

// CallController drives a single call session from the client side: it
// initiates the call, tracks the lifecycle, mirrors server-pushed status
// updates, and falls back to the emergency contact directory when even the
// backend cannot be reached.
type CallController struct {
	config *Config
	http   *http.Client
	widget VoiceWidget

	state atomic.Int32

	mu        sync.RWMutex
	sessionID string
	startedAt time.Time
	endedAt   time.Time
	contacts  map[string]schemas.EmergencyContact

	onStateChange StateChangeHandler

	// wsMu guards the realtime subscription so terminal states can tear it
	// down while the listener is blocked on a read.
	wsMu sync.Mutex
	ws   *websocket.Conn

	resetMu    sync.Mutex
	resetTimer *time.Timer
}

// NewCallController creates an idle controller.
func NewCallController(cfg *Config, widget VoiceWidget) *CallController {
	if widget == nil {
		widget = NopWidget{}
	}
	return &CallController{
		config: cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		widget: widget,
	}
}

// SetStateChangeHandler registers the transition observer. Must be called
// before StartWebCall.
func (c *CallController) SetStateChangeHandler(handler StateChangeHandler) {
	c.onStateChange = handler
}

// State returns the current call state.
func (c *CallController) State() CallState {
	return CallState(c.state.Load())
}

// SessionID returns the active session id, empty when idle.
func (c *CallController) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Duration returns the elapsed call seconds: live while connected, frozen
// once the call ends, zero when idle.
func (c *CallController) Duration() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.startedAt.IsZero() {
		return 0
	}
	end := c.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	d := int64(end.Sub(c.startedAt).Seconds())
	if d < 0 {
		return 0
	}
	return d
}

// EmergencyContacts returns the fallback directory. It is populated once the
// controller gives up on the backend, and always safe to call.
func (c *CallController) EmergencyContacts() map[string]schemas.EmergencyContact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contacts
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// StartWebCall initiates a web call. The request is retried with exponential
// backoff; if every try fails the controller enters the failed state and
// surfaces the emergency contact directory instead of an error page.
func (c *CallController) StartWebCall(ctx context.Context, userInfo *schemas.UserInfoPayload) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return fmt.Errorf("call already in progress: %s", c.State())
	}
	c.notify(StateIdle, StateConnecting)

	var result schemas.SessionResult
	operation := func() error {
		return c.postJSON(ctx, "/api/web-call", schemas.InitiateWebCallRequest{UserInfo: userInfo}, &result)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.config.MaxConnectTries),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.fail()
		return fmt.Errorf("failed to start call: %w", err)
	}

	c.mu.Lock()
	c.sessionID = result.SessionID
	c.startedAt = time.Now()
	c.endedAt = time.Time{}
	c.mu.Unlock()

	if result.Mock && c.widget.IsAvailable() {
		c.widget.Open(result.Message)
	}

	// Only an active session is connected; a session still connecting stays
	// in that state until a pushed status promotes it.
	if result.Status == "active" {
		c.transition(StateConnecting, StateConnected)
	}

	go c.listen(ctx, result.SessionID)

	return nil
}

// End terminates the session server-side and moves the controller to ended.
func (c *CallController) End(ctx context.Context, outcome, notes string) error {
	sessionID := c.SessionID()
	if sessionID == "" {
		return fmt.Errorf("no active session")
	}

	var result schemas.SessionResult
	err := c.postJSON(ctx, "/api/web-call/end", schemas.EndSessionRequest{
		SessionID: sessionID,
		Outcome:   outcome,
		Notes:     notes,
	}, &result)
	if err != nil {
		return fmt.Errorf("failed to end call: %w", err)
	}

	c.finish(StateEnded)
	return nil
}

// ApplyStatus mirrors a server-reported session status onto the client state
// machine. Application is idempotent: repeated or stale statuses that map to
// the current state are ignored.
func (c *CallController) ApplyStatus(status string) {
	var target CallState
	switch status {
	case "initiated", "connecting":
		target = StateConnecting
	case "active":
		target = StateConnected
	case "ended":
		target = StateEnded
	case "failed":
		target = StateFailed
	default:
		return
	}

	current := c.State()
	if current == target || current == StateIdle {
		return
	}
	// Terminal client states only move through the reset path.
	if current == StateEnded || current == StateFailed {
		return
	}

	if target == StateEnded || target == StateFailed {
		c.finish(target)
		return
	}
	c.transition(current, target)
}

// listen follows the session's realtime room and applies pushed status
// updates. Reconnects are bounded; losing the push channel never fails the
// call itself.
func (c *CallController) listen(ctx context.Context, sessionID string) {
	operation := func() error {
		if s := c.State(); s == StateEnded || s == StateFailed || s == StateIdle {
			return nil
		}
		return c.followSession(ctx, sessionID)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.config.MaxConnectTries),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		slog.Warn("Realtime channel lost, continuing without push updates",
			"session_id", sessionID,
			"error", err.Error())
	}
}

func (c *CallController) followSession(ctx context.Context, sessionID string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.WSURL, nil)
	if err != nil {
		return err
	}
	c.trackConn(conn)
	defer c.releaseConn(conn)

	// The call may have ended while the dial was in flight.
	if s := c.State(); s == StateEnded || s == StateFailed || s == StateIdle {
		return nil
	}

	join, err := json.Marshal(realtime.JoinPayload{SessionID: sessionID})
	if err != nil {
		return err
	}
	msg, err := json.Marshal(realtime.Message{Type: realtime.KindJoinSession, Payload: join})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}

	for {
		if s := c.State(); s == StateEnded || s == StateFailed || s == StateIdle {
			return nil
		}

		var envelope realtime.Message
		if err := conn.ReadJSON(&envelope); err != nil {
			return err
		}
		if envelope.Type != realtime.KindStatusUpdated {
			continue
		}

		var ev realtime.Event
		if err := json.Unmarshal(envelope.Payload, &ev); err != nil {
			continue
		}
		if ev.SessionID == sessionID {
			c.ApplyStatus(ev.Status)
		}
	}
}

func (c *CallController) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if out != nil && envelope.Data != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// fail marks the call failed and surfaces the emergency directory.
func (c *CallController) fail() {
	old := c.State()
	c.state.Store(int32(StateFailed))

	c.mu.Lock()
	c.contacts = schemas.DefaultEmergencyContacts()
	if !c.startedAt.IsZero() && c.endedAt.IsZero() {
		c.endedAt = time.Now()
	}
	c.mu.Unlock()

	c.closeWS()
	c.notify(old, StateFailed)
	c.scheduleReset()
}

// finish freezes duration accounting and enters a terminal client state. A
// failed call surfaces the emergency directory no matter how the failure
// arrived, locally or as a pushed event.
func (c *CallController) finish(target CallState) {
	old := c.State()

	c.mu.Lock()
	if c.endedAt.IsZero() {
		c.endedAt = time.Now()
	}
	if target == StateFailed {
		c.contacts = schemas.DefaultEmergencyContacts()
	}
	c.mu.Unlock()

	c.state.Store(int32(target))
	c.widget.Close()
	c.closeWS()
	c.notify(old, target)
	c.scheduleReset()
}

func (c *CallController) trackConn(conn *websocket.Conn) {
	c.wsMu.Lock()
	c.ws = conn
	c.wsMu.Unlock()
}

func (c *CallController) releaseConn(conn *websocket.Conn) {
	c.wsMu.Lock()
	if c.ws == conn {
		c.ws = nil
	}
	c.wsMu.Unlock()
	conn.Close()
}

// closeWS closes the realtime subscription, unblocking the listener's read.
func (c *CallController) closeWS() {
	c.wsMu.Lock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.wsMu.Unlock()
}

func (c *CallController) transition(from, to CallState) {
	if c.state.CompareAndSwap(int32(from), int32(to)) {
		c.notify(from, to)
	}
}

func (c *CallController) notify(from, to CallState) {
	if c.onStateChange != nil && from != to {
		c.onStateChange(from, to)
	}
}

// scheduleReset returns the controller to idle after ResetDelay so the next
// call can start from a clean slate.
func (c *CallController) scheduleReset() {
	if c.config.ResetDelay <= 0 {
		return
	}

	c.resetMu.Lock()
	defer c.resetMu.Unlock()

	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetTimer = time.AfterFunc(c.config.ResetDelay, c.Reset)
}

// Reset returns a terminal controller to idle immediately.
func (c *CallController) Reset() {
	old := c.State()
	if old != StateEnded && old != StateFailed {
		return
	}

	c.mu.Lock()
	c.sessionID = ""
	c.startedAt = time.Time{}
	c.endedAt = time.Time{}
	c.mu.Unlock()

	c.closeWS()
	c.state.Store(int32(StateIdle))
	c.notify(old, StateIdle)
}
