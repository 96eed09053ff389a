package models

import "time"

// SessionType identifies the kind of crisis-support session.
type SessionType string

const (
	TypeWebCall   SessionType = "web_call"
	TypePhoneCall SessionType = "phone_call"
	TypeChat      SessionType = "chat"
	TypeVoice     SessionType = "voice"
)

// SessionStatus represents the lifecycle status of a session
type SessionStatus string

const (
	StatusInitiated  SessionStatus = "initiated"
	StatusConnecting SessionStatus = "connecting"
	StatusActive     SessionStatus = "active"
	StatusEnded      SessionStatus = "ended"
	StatusFailed     SessionStatus = "failed"
)

// IsTerminal reports whether the status is a terminal lifecycle state.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusFailed
}

// ParseSessionStatus validates a status string coming from a client.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch SessionStatus(raw) {
	case StatusInitiated, StatusConnecting, StatusActive, StatusEnded, StatusFailed:
		return SessionStatus(raw), nil
	default:
		return "", ErrInvalidSessionStatus
	}
}

// Outcome records how a session concluded.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeReferred   Outcome = "referred"
	OutcomeEscalated  Outcome = "escalated"
	OutcomeIncomplete Outcome = "incomplete"
)

// ParseOutcome validates an outcome string coming from a client.
func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeResolved, OutcomeReferred, OutcomeEscalated, OutcomeIncomplete:
		return Outcome(raw), nil
	default:
		return "", ErrInvalidOutcome
	}
}

// CrisisLevel is the assessed severity of a session.
type CrisisLevel string

const (
	CrisisLow       CrisisLevel = "low"
	CrisisMedium    CrisisLevel = "medium"
	CrisisHigh      CrisisLevel = "high"
	CrisisEmergency CrisisLevel = "emergency"
)

// UserInfo is the snapshot of caller details captured at initiation.
type UserInfo struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Counselor identifies the counselor assigned to a session, real or mock.
type Counselor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Metadata carries request-level context captured at initiation.
type Metadata struct {
	UserAgent  string `json:"user_agent,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
}

// Session represents one crisis-support call attempt, web or phone,
// tracked end-to-end.
type Session struct {
	SessionID   string        `json:"session_id"`
	UserID      *string       `json:"user_id,omitempty"`
	Type        SessionType   `json:"type"`
	Status      SessionStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     *time.Time    `json:"end_time,omitempty"`
	UserInfo    UserInfo      `json:"user_info"`
	Counselor   *Counselor    `json:"counselor,omitempty"`
	CrisisLevel CrisisLevel   `json:"crisis_level"`
	Outcome     Outcome       `json:"outcome"`
	Notes       string        `json:"notes,omitempty"`
	Emergency   bool          `json:"emergency"`
	Mock        bool          `json:"mock"`
	WebCallURL  string        `json:"web_call_url,omitempty"`
	ProviderRef string        `json:"provider_ref,omitempty"`
	Metadata    Metadata      `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Duration returns the session duration in whole seconds. For a terminal
// session it is fixed at EndTime-StartTime; while active it runs against
// the clock. Never negative.
func (s *Session) Duration(now time.Time) int64 {
	var d int64
	switch {
	case s.EndTime != nil:
		d = int64(s.EndTime.Sub(s.StartTime).Seconds())
	case s.Status == StatusActive:
		d = int64(now.Sub(s.StartTime).Seconds())
	}
	if d < 0 {
		return 0
	}
	return d
}

// Terminate stamps a terminal status and the end time. Callers must have
// already checked that the session is not terminal.
func (s *Session) Terminate(status SessionStatus, now time.Time) {
	s.Status = status
	if s.EndTime == nil {
		end := now
		s.EndTime = &end
	}
	s.UpdatedAt = now
}
