package schemas

import (
	"time"

	"call-session-service/src/models"
)

// UserInfoPayload is the caller-supplied snapshot accepted on initiation.
// All fields are optional; present fields must be well-formed.
type UserInfoPayload struct {
	Name      string `json:"name" binding:"omitempty,max=100"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,max=20"`
	Emergency bool   `json:"emergency"`
}

// InitiateWebCallRequest represents the body of POST /api/web-call.
type InitiateWebCallRequest struct {
	UserInfo *UserInfoPayload `json:"userInfo"`
}

// InitiatePhoneCallRequest represents the body of POST /api/phone-call.
type InitiatePhoneCallRequest struct {
	PhoneNumber string           `json:"phoneNumber"`
	UserID      string           `json:"userId"`
	UserInfo    *UserInfoPayload `json:"userInfo"`
}

// UpdateSessionStatusRequest represents the body for updating session status
type UpdateSessionStatusRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Notes     string `json:"notes" binding:"omitempty,max=500"`
}

// EndSessionRequest represents the body for ending a session
type EndSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Outcome   string `json:"outcome"`
	Notes     string `json:"notes" binding:"omitempty,max=500"`
}

// SessionResult is the envelope payload returned by initiation and mutation
// operations.
type SessionResult struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	Mock          bool   `json:"mock"`
	Fallback      bool   `json:"fallback,omitempty"`
	WebCallURL    string `json:"webCallUrl,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	EstimatedWait string `json:"estimatedWait,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Duration      int64  `json:"duration"`
}

// SessionView is the read projection returned by GET, with duration computed
// live while the session is active.
type SessionView struct {
	SessionID     string          `json:"session_id"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Duration      int64           `json:"duration"`
	CounselorName string          `json:"counselor_name"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       *time.Time      `json:"end_time,omitempty"`
	Outcome       string          `json:"outcome"`
	Emergency     bool            `json:"emergency"`
	Mock          bool            `json:"mock"`
	UserInfo      models.UserInfo `json:"user_info"`
}

// SessionListResult is the paged admin listing.
type SessionListResult struct {
	Sessions    []*models.Session `json:"sessions"`
	Total       int               `json:"total"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
}

// SessionStats is the aggregate served on the admin surface.
type SessionStats struct {
	TotalSessions  int     `json:"totalSessions"`
	ActiveSessions int     `json:"activeSessions"`
	AvgDuration    float64 `json:"avgDuration"`
	TotalDuration  int64   `json:"totalDuration"`
}

// APIResponse is the uniform success/error envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
