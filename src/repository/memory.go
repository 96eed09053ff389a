package repository

import (
	"context"
	"sort"
	"sync"

	"call-session-service/src/models"
)

// MemorySessionRepository is the ephemeral fallback store used when no
// database is configured. Records do not survive a restart; everything else
// behaves like the durable store.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemorySessionRepository creates an empty in-process session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*models.Session),
	}
}

// Create stores a copy of the session record.
func (r *MemorySessionRepository) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

// GetByID returns a copy of the stored session.
func (r *MemorySessionRepository) GetByID(_ context.Context, sessionID string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}

	cp := *s
	return &cp, nil
}

// Update replaces the stored record. Last write wins, matching the durable
// store's semantics.
func (r *MemorySessionRepository) Update(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.SessionID]; !ok {
		return models.ErrSessionNotFound
	}

	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

// List pages through stored sessions, newest first.
func (r *MemorySessionRepository) List(_ context.Context, filter SessionFilter, page, limit int) ([]*models.Session, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	matched := make([]*models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.Emergency != nil && s.Emergency != *filter.Emergency {
			continue
		}
		cp := *s
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.After(matched[j].StartTime)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*models.Session{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	return matched[start:end], total, nil
}

// Stats aggregates counts and durations over stored sessions.
func (r *MemorySessionRepository) Stats(_ context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	for _, s := range r.sessions {
		stats.TotalSessions++
		if s.Status == models.StatusActive {
			stats.ActiveSessions++
		}
		if s.EndTime != nil {
			stats.TotalDuration += int64(s.EndTime.Sub(s.StartTime).Seconds())
		}
	}

	if stats.TotalSessions > 0 {
		stats.AvgDuration = float64(stats.TotalDuration) / float64(stats.TotalSessions)
	}

	return stats, nil
}
