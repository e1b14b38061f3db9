package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/payments"
)

// recordingRepo captures the order and arguments of repository calls.
type recordingRepo struct {
	queries    []time.Time
	deleted    []time.Time
	aggregates map[time.Duration]payments.WindowAggregate
	now        time.Time
	queryErr   error
	deleteErr  error
}

func (r *recordingRepo) Insert(ctx context.Context, p *models.Payment) (uint, error) {
	return 0, errors.New("not used")
}

func (r *recordingRepo) QueryWindow(ctx context.Context, since time.Time) (payments.WindowAggregate, error) {
	if r.queryErr != nil {
		return payments.WindowAggregate{}, r.queryErr
	}
	r.queries = append(r.queries, since)
	return r.aggregates[r.now.Sub(since)], nil
}

func (r *recordingRepo) DeleteOlderThan(ctx context.Context, horizon time.Time) error {
	r.deleted = append(r.deleted, horizon)
	return r.deleteErr
}

func TestComputeAndCleanup_WindowsAndHorizon(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &recordingRepo{
		now: now,
		aggregates: map[time.Duration]payments.WindowAggregate{
			Window24h: {Count: 1, Sum: 10},
			Window7d:  {Count: 5, Sum: 50},
			Window28d: {Count: 9, Sum: 90},
		},
	}

	snap, err := NewEngine(repo, 28).ComputeAndCleanup(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.Last24h.Count)
	assert.Equal(t, int64(5), snap.Last7d.Count)
	assert.Equal(t, int64(9), snap.Last28d.Count)
	assert.InDelta(t, 90.0, snap.Last28d.Sum, 0.001)

	require.Len(t, repo.queries, 3)
	assert.Equal(t, now.Add(-24*time.Hour), repo.queries[0])
	assert.Equal(t, now.Add(-7*24*time.Hour), repo.queries[1])
	assert.Equal(t, now.Add(-28*24*time.Hour), repo.queries[2])

	require.Len(t, repo.deleted, 1)
	assert.Equal(t, now.Add(-28*24*time.Hour), repo.deleted[0])
}

func TestComputeAndCleanup_ComputesBeforeCleanup(t *testing.T) {
	now := time.Now().UTC()
	repo := &recordingRepo{now: now, aggregates: map[time.Duration]payments.WindowAggregate{}}

	_, err := NewEngine(repo, 7).ComputeAndCleanup(context.Background(), now)
	require.NoError(t, err)

	// All three window queries must land before the sweep runs.
	require.Len(t, repo.queries, 3)
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, now.Add(-7*24*time.Hour), repo.deleted[0])
}

func TestComputeAndCleanup_CleanupFailureKeepsSnapshot(t *testing.T) {
	now := time.Now().UTC()
	repo := &recordingRepo{
		now:       now,
		deleteErr: errors.New("disk full"),
		aggregates: map[time.Duration]payments.WindowAggregate{
			Window24h: {Count: 2, Sum: 20},
		},
	}

	snap, err := NewEngine(repo, 28).ComputeAndCleanup(context.Background(), now)
	require.NoError(t, err, "cleanup failure must not void the snapshot")
	assert.Equal(t, int64(2), snap.Last24h.Count)
}

func TestComputeAndCleanup_QueryFailurePropagates(t *testing.T) {
	repo := &recordingRepo{queryErr: errors.New("connection lost")}

	_, err := NewEngine(repo, 28).ComputeAndCleanup(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Empty(t, repo.deleted, "no cleanup after a failed window query")
}
