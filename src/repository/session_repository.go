package repository

import (
	"context"

	"call-session-service/src/models"
)

// SessionFilter narrows admin listings.
type SessionFilter struct {
	Status    models.SessionStatus
	Type      models.SessionType
	Emergency *bool
}

// Stats is the aggregate over all stored sessions.
type Stats struct {
	TotalSessions  int
	ActiveSessions int
	AvgDuration    float64
	TotalDuration  int64
}

// SessionRepository is the persistence boundary for sessions. Two
// implementations exist: the durable Postgres store and an ephemeral
// in-process store selected at startup when no database is configured.
// Business logic never branches on which one is behind the interface.
type SessionRepository interface {
	// Create persists a new session record.
	Create(ctx context.Context, session *models.Session) error

	// GetByID loads a session, returning models.ErrSessionNotFound when no
	// record exists for the identifier.
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)

	// Update persists mutations to an existing session.
	Update(ctx context.Context, session *models.Session) error

	// List returns a page of sessions ordered by start time descending,
	// along with the total count matching the filter.
	List(ctx context.Context, filter SessionFilter, page, limit int) ([]*models.Session, int, error)

	// Stats aggregates session counts and durations.
	Stats(ctx context.Context) (*Stats, error)
}
