package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-session-service/src/models"
)

func newTestSession(id string, status models.SessionStatus, start time.Time) *models.Session {
	return &models.Session{
		SessionID: id,
		Type:      models.TypeWebCall,
		Status:    status,
		StartTime: start,
		Outcome:   models.OutcomeIncomplete,
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func TestMemoryRepositoryCreateAndGet(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	start := time.Now()

	require.NoError(t, repo.Create(ctx, newTestSession("s1", models.StatusInitiated, start)))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, models.StatusInitiated, got.Status)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestMemoryRepositoryCopiesOnReadAndWrite(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	s := newTestSession("s1", models.StatusInitiated, time.Now())
	require.NoError(t, repo.Create(ctx, s))

	// Mutating the original must not leak into the store.
	s.Status = models.StatusFailed

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, got.Status)

	// Mutating a loaded copy must not leak either.
	got.Status = models.StatusActive
	again, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, again.Status)
}

func TestMemoryRepositoryUpdate(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	s := newTestSession("s1", models.StatusInitiated, time.Now())
	require.NoError(t, repo.Create(ctx, s))

	s.Status = models.StatusActive
	require.NoError(t, repo.Update(ctx, s))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	missing := newTestSession("missing", models.StatusActive, time.Now())
	assert.ErrorIs(t, repo.Update(ctx, missing), models.ErrSessionNotFound)
}

func TestMemoryRepositoryListPagingAndFilter(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s := newTestSession(fmt.Sprintf("s%d", i), models.StatusActive, base.Add(time.Duration(i)*time.Minute))
		if i == 4 {
			s.Emergency = true
		}
		require.NoError(t, repo.Create(ctx, s))
	}

	// Newest first.
	page1, total, err := repo.List(ctx, SessionFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "s4", page1[0].SessionID)
	assert.Equal(t, "s3", page1[1].SessionID)

	page3, total, err := repo.List(ctx, SessionFilter{}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, "s0", page3[0].SessionID)

	// Page past the end is empty, not an error.
	empty, total, err := repo.List(ctx, SessionFilter{}, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)

	emergency := true
	flagged, total, err := repo.List(ctx, SessionFilter{Emergency: &emergency}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, flagged, 1)
	assert.Equal(t, "s4", flagged[0].SessionID)
}

func TestMemoryRepositoryStats(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	active := newTestSession("active", models.StatusActive, base)
	require.NoError(t, repo.Create(ctx, active))

	ended := newTestSession("ended", models.StatusEnded, base)
	end := base.Add(100 * time.Second)
	ended.EndTime = &end
	require.NoError(t, repo.Create(ctx, ended))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, int64(100), stats.TotalDuration)
	assert.InDelta(t, 50.0, stats.AvgDuration, 0.01)
}
