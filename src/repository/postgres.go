package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"call-session-service/src/db"
	"call-session-service/src/models"
)

// PostgresSessionRepository handles all database operations for sessions
type PostgresSessionRepository struct {
	db *db.DB
}

// NewPostgresSessionRepository creates a new Postgres-backed session repository
func NewPostgresSessionRepository(database *db.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		db: database,
	}
}

const sessionColumns = `session_id, user_id, type, status, start_time, end_time,
	user_name, user_phone, user_email, is_anonymous,
	counselor_id, counselor_name, crisis_level, outcome, notes,
	emergency, mock, web_call_url, provider_ref,
	user_agent, ip_address, device_type, created_at, updated_at`

// Create persists a new session record.
func (r *PostgresSessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	counselorID, counselorName := counselorFields(s.Counselor)

	_, err := r.db.GetConnection().ExecContext(ctx, query,
		s.SessionID, s.UserID, s.Type, s.Status, s.StartTime, s.EndTime,
		s.UserInfo.Name, s.UserInfo.Phone, s.UserInfo.Email, s.UserInfo.IsAnonymous,
		counselorID, counselorName, s.CrisisLevel, s.Outcome, s.Notes,
		s.Emergency, s.Mock, s.WebCallURL, s.ProviderRef,
		s.Metadata.UserAgent, s.Metadata.IPAddress, s.Metadata.DeviceType,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Created session record",
		"session_id", s.SessionID,
		"type", s.Type)

	return nil
}

// GetByID loads a single session by its identifier.
func (r *PostgresSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = $1`

	row := r.db.GetConnection().QueryRowContext(ctx, query, sessionID)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// Update persists mutations to an existing session.
func (r *PostgresSessionRepository) Update(ctx context.Context, s *models.Session) error {
	query := `
		UPDATE sessions SET
			status = $2, end_time = $3,
			counselor_id = $4, counselor_name = $5,
			crisis_level = $6, outcome = $7, notes = $8,
			emergency = $9, mock = $10, web_call_url = $11, provider_ref = $12,
			updated_at = $13
		WHERE session_id = $1
	`

	counselorID, counselorName := counselorFields(s.Counselor)

	result, err := r.db.GetConnection().ExecContext(ctx, query,
		s.SessionID, s.Status, s.EndTime,
		counselorID, counselorName,
		s.CrisisLevel, s.Outcome, s.Notes,
		s.Emergency, s.Mock, s.WebCallURL, s.ProviderRef,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return models.ErrSessionNotFound
	}

	return nil
}

// List returns a page of sessions matching the filter, newest first.
func (r *PostgresSessionRepository) List(ctx context.Context, filter SessionFilter, page, limit int) ([]*models.Session, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	arg := 1
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", arg)
		args = append(args, filter.Status)
		arg++
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", arg)
		args = append(args, filter.Type)
		arg++
	}
	if filter.Emergency != nil {
		where += fmt.Sprintf(" AND emergency = $%d", arg)
		args = append(args, *filter.Emergency)
		arg++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM sessions " + where
	if err := r.db.GetConnection().QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT "+sessionColumns+" FROM sessions %s ORDER BY start_time DESC LIMIT $%d OFFSET $%d",
		where, arg, arg+1,
	)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.GetConnection().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, total, nil
}

// Stats aggregates session counts and durations across all records.
func (r *PostgresSessionRepository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time))::BIGINT), 0)
		FROM sessions
	`

	var stats Stats
	err := r.db.GetConnection().QueryRowContext(ctx, query).Scan(
		&stats.TotalSessions,
		&stats.ActiveSessions,
		&stats.TotalDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate session stats: %w", err)
	}

	if stats.TotalSessions > 0 {
		stats.AvgDuration = float64(stats.TotalDuration) / float64(stats.TotalSessions)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s             models.Session
		counselorID   sql.NullString
		counselorName sql.NullString
	)

	err := row.Scan(
		&s.SessionID, &s.UserID, &s.Type, &s.Status, &s.StartTime, &s.EndTime,
		&s.UserInfo.Name, &s.UserInfo.Phone, &s.UserInfo.Email, &s.UserInfo.IsAnonymous,
		&counselorID, &counselorName, &s.CrisisLevel, &s.Outcome, &s.Notes,
		&s.Emergency, &s.Mock, &s.WebCallURL, &s.ProviderRef,
		&s.Metadata.UserAgent, &s.Metadata.IPAddress, &s.Metadata.DeviceType,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if counselorID.Valid || counselorName.Valid {
		s.Counselor = &models.Counselor{
			ID:   counselorID.String,
			Name: counselorName.String,
		}
	}

	return &s, nil
}

func counselorFields(c *models.Counselor) (sql.NullString, sql.NullString) {
	if c == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: c.ID, Valid: true},
		sql.NullString{String: c.Name, Valid: true}
}
