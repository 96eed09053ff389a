package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"call-session-service/src/models"
	"call-session-service/src/provider"
	"call-session-service/src/realtime"
	"call-session-service/src/repository"
	"call-session-service/src/schemas"
)

// InitiateParams carries everything needed to open a session.
type InitiateParams struct {
	Kind        models.SessionType
	UserID      string
	PhoneNumber string
	UserInfo    *schemas.UserInfoPayload
	Metadata    models.Metadata
}

// SessionService coordinates the call-session lifecycle: it creates the
// session record, drives the provider attempt, applies status transitions,
// and pushes every transition to the realtime channel.
type SessionService struct {
	repo     repository.SessionRepository
	adapter  provider.Adapter
	notifier realtime.Notifier
	validate *validator.Validate

	// now is swappable in tests
	now func() time.Time
}

// NewSessionService creates a new session coordinator.
func NewSessionService(repo repository.SessionRepository, adapter provider.Adapter, notifier realtime.Notifier) *SessionService {
	v := validator.New()
	// Reuse the binding tags declared on the request schemas.
	v.SetTagName("binding")

	return &SessionService{
		repo:     repo,
		adapter:  adapter,
		notifier: notifier,
		validate: v,
		now:      time.Now,
	}
}

// Initiate validates the request, creates the session record, attempts the
// call through the provider, and returns the resulting state. Provider
// failures never surface here: the adapter degrades to a mock counselor and
// the session still comes back connected. Only validation and storage
// failures produce errors.
func (s *SessionService) Initiate(ctx context.Context, p InitiateParams) (*schemas.SessionResult, error) {
	instance := "/api/" + routeName(p.Kind)

	// Reject before any record is created.
	if p.Kind == models.TypePhoneCall && p.PhoneNumber == "" {
		return nil, schemas.ValidationFailedError("Phone number is required", instance)
	}
	if p.UserInfo != nil {
		if err := s.validate.Struct(p.UserInfo); err != nil {
			return nil, schemas.ValidationFailedError(
				fmt.Sprintf("Invalid user information: %v", err), instance)
		}
	}

	now := s.now()
	sessionID := uuid.New().String()
	session := s.buildSession(sessionID, p, now)

	if err := s.repo.Create(ctx, session); err != nil {
		slog.Error("Failed to create session record",
			"session_id", sessionID,
			"error", err.Error())
		return nil, schemas.NewInternalError("Failed to create session", instance)
	}

	s.publish(session, string(p.Kind)+" session initiated")

	target := p.PhoneNumber
	result, err := s.adapter.AttemptCall(ctx, p.Kind, sessionID, target, session.UserInfo)
	if err != nil {
		// Context cancellation only; the adapter absorbs vendor failures.
		return nil, schemas.NewInternalError("Call attempt cancelled", instance)
	}

	session.Status = result.Status
	session.Counselor = &result.Counselor
	session.Mock = result.Mock
	session.ProviderRef = result.Ref
	session.WebCallURL = result.WebCallURL
	session.UpdatedAt = s.now()
	if result.Mock {
		session.Notes = "Using mock response - provider not reachable"
	}

	if err := s.repo.Update(ctx, session); err != nil {
		slog.Error("Failed to persist provider result",
			"session_id", sessionID,
			"error", err.Error())
		return nil, schemas.NewInternalError("Failed to update session", instance)
	}

	s.publish(session, result.Message)

	slog.Info("Session initiated",
		"session_id", sessionID,
		"type", session.Type,
		"status", session.Status,
		"mock", session.Mock)

	return &schemas.SessionResult{
		SessionID:     sessionID,
		Status:        string(session.Status),
		Message:       result.Message,
		Mock:          result.Mock,
		Fallback:      result.Mock,
		WebCallURL:    result.WebCallURL,
		PhoneNumber:   p.PhoneNumber,
		EstimatedWait: result.EstimatedWait,
		Duration:      0,
	}, nil
}

// UpdateStatus applies a client- or admin-issued transition. Terminal
// sessions are immutable: any attempt against an ended or failed session is
// rejected, uniformly across every path. The instance is the route the
// request arrived on, reported back in error responses.
func (s *SessionService) UpdateStatus(ctx context.Context, sessionID, rawStatus, notes, instance string) (*schemas.SessionResult, error) {
	status, err := models.ParseSessionStatus(rawStatus)
	if err != nil {
		return nil, schemas.ValidationFailedError("Invalid status: "+rawStatus, instance)
	}

	session, lerr := s.load(ctx, sessionID, instance)
	if lerr != nil {
		return nil, lerr
	}

	if session.Status.IsTerminal() {
		return nil, schemas.SessionTerminalError(
			fmt.Sprintf("session %s is already %s", sessionID, session.Status), instance)
	}

	now := s.now()
	if status.IsTerminal() {
		session.Terminate(status, now)
	} else {
		session.Status = status
		session.UpdatedAt = now
	}
	if notes != "" {
		session.Notes = notes
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, s.storageError(err, sessionID, instance)
	}

	message := notes
	if message == "" {
		message = "Session status updated to " + string(status)
	}
	s.publish(session, message)

	return &schemas.SessionResult{
		SessionID: sessionID,
		Status:    string(session.Status),
		Message:   "Session status updated successfully",
		Mock:      session.Mock,
		Duration:  session.Duration(now),
	}, nil
}

// End forces the session to its ended state, records the outcome, and stamps
// duration accounting.
func (s *SessionService) End(ctx context.Context, sessionID, rawOutcome, notes, instance string) (*schemas.SessionResult, error) {
	outcome := models.OutcomeResolved
	if rawOutcome != "" {
		parsed, err := models.ParseOutcome(rawOutcome)
		if err != nil {
			return nil, schemas.ValidationFailedError("Invalid outcome: "+rawOutcome, instance)
		}
		outcome = parsed
	}

	session, lerr := s.load(ctx, sessionID, instance)
	if lerr != nil {
		return nil, lerr
	}

	if session.Status.IsTerminal() {
		return nil, schemas.SessionTerminalError(
			fmt.Sprintf("session %s is already %s", sessionID, session.Status), instance)
	}

	now := s.now()
	session.Terminate(models.StatusEnded, now)
	session.Outcome = outcome
	if notes != "" {
		session.Notes = notes
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, s.storageError(err, sessionID, instance)
	}

	s.publish(session, "Session ended with outcome: "+string(outcome))

	slog.Info("Session ended",
		"session_id", sessionID,
		"outcome", outcome,
		"duration", session.Duration(now))

	return &schemas.SessionResult{
		SessionID: sessionID,
		Status:    string(models.StatusEnded),
		Message:   "Session ended successfully",
		Mock:      session.Mock,
		Outcome:   string(outcome),
		Duration:  session.Duration(now),
	}, nil
}

// Get returns the read projection, with duration computed live while the
// session is active.
func (s *SessionService) Get(ctx context.Context, sessionID, instance string) (*schemas.SessionView, error) {
	session, lerr := s.load(ctx, sessionID, instance)
	if lerr != nil {
		return nil, lerr
	}

	counselorName := "Unassigned"
	if session.Counselor != nil {
		counselorName = session.Counselor.Name
	}

	return &schemas.SessionView{
		SessionID:     session.SessionID,
		Type:          string(session.Type),
		Status:        string(session.Status),
		Duration:      session.Duration(s.now()),
		CounselorName: counselorName,
		StartTime:     session.StartTime,
		EndTime:       session.EndTime,
		Outcome:       string(session.Outcome),
		Emergency:     session.Emergency,
		Mock:          session.Mock,
		UserInfo:      session.UserInfo,
	}, nil
}

// List returns a page of sessions for the admin surface.
func (s *SessionService) List(ctx context.Context, filter repository.SessionFilter, page, limit int) (*schemas.SessionListResult, error) {
	instance := "/api/web-call/admin/sessions"

	if limit < 1 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	sessions, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		slog.Error("Failed to list sessions", "error", err.Error())
		return nil, schemas.NewInternalError("Failed to get sessions", instance)
	}

	totalPages := (total + limit - 1) / limit

	return &schemas.SessionListResult{
		Sessions:    sessions,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// Stats returns the aggregate session statistics for the admin surface.
func (s *SessionService) Stats(ctx context.Context) (*schemas.SessionStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		slog.Error("Failed to aggregate session stats", "error", err.Error())
		return nil, schemas.NewInternalError("Failed to get session stats", "/api/web-call/admin/stats")
	}

	return &schemas.SessionStats{
		TotalSessions:  stats.TotalSessions,
		ActiveSessions: stats.ActiveSessions,
		AvgDuration:    stats.AvgDuration,
		TotalDuration:  stats.TotalDuration,
	}, nil
}

func (s *SessionService) buildSession(sessionID string, p InitiateParams, now time.Time) *models.Session {
	info := models.UserInfo{IsAnonymous: true}
	emergency := false
	if p.UserInfo != nil {
		info.Name = p.UserInfo.Name
		info.Email = p.UserInfo.Email
		info.Phone = p.UserInfo.Phone
		emergency = p.UserInfo.Emergency
	}
	if p.Kind == models.TypePhoneCall {
		info.Phone = p.PhoneNumber
	}
	if info.Name == "" {
		info.Name = "Anonymous User"
	} else {
		info.IsAnonymous = false
	}

	crisisLevel := models.CrisisMedium
	if emergency {
		crisisLevel = models.CrisisEmergency
	}

	var userID *string
	if p.UserID != "" {
		uid := p.UserID
		userID = &uid
	}

	return &models.Session{
		SessionID:   sessionID,
		UserID:      userID,
		Type:        p.Kind,
		Status:      models.StatusInitiated,
		StartTime:   now,
		UserInfo:    info,
		CrisisLevel: crisisLevel,
		Outcome:     models.OutcomeIncomplete,
		Emergency:   emergency,
		Metadata:    p.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *SessionService) load(ctx context.Context, sessionID, instance string) (*models.Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil, schemas.NewNotFoundError("Session not found", instance)
		}
		slog.Error("Failed to load session",
			"session_id", sessionID,
			"error", err.Error())
		return nil, schemas.NewInternalError("Failed to get session", instance)
	}
	return session, nil
}

func (s *SessionService) storageError(err error, sessionID, instance string) error {
	if errors.Is(err, models.ErrSessionNotFound) {
		return schemas.NewNotFoundError("Session not found", instance)
	}
	slog.Error("Failed to persist session",
		"session_id", sessionID,
		"error", err.Error())
	return schemas.NewInternalError("Failed to update session", instance)
}

func (s *SessionService) publish(session *models.Session, message string) {
	s.notifier.PublishStatus(realtime.Event{
		SessionID: session.SessionID,
		Status:    string(session.Status),
		Message:   message,
		Emergency: session.Emergency,
		Timestamp: s.now(),
	})
}

func routeName(kind models.SessionType) string {
	if kind == models.TypePhoneCall {
		return "phone-call"
	}
	return "web-call"
}
