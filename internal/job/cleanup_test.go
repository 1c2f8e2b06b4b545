package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPruner struct {
	mock.Mock
}

func (m *mockPruner) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func TestNewCleanupScheduler_InvalidSchedule(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)

	_, err := NewCleanupScheduler(svc, time.Hour, "every tuesday", nil)
	assert.Error(t, err)
}

func TestCleanupScheduler_Sweep(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	old := NewWithID("old", "p", "s", 9)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.Create(ctx, old))
	require.NoError(t, store.Create(ctx, NewWithID("new", "p", "s", 9)))

	pruner := new(mockPruner)
	pruner.On("PruneOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= 24*time.Hour
	})).Return(4, nil)

	sched, err := NewCleanupScheduler(svc, 24*time.Hour, "@daily", nil, WithPruner(pruner))
	require.NoError(t, err)

	n, err := sched.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrJobNotFound)
	pruner.AssertExpectations(t)
}

func TestCleanupScheduler_Sweep_PrunerError(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	pruner := new(mockPruner)
	pruner.On("PruneOlderThan", mock.Anything, mock.Anything).Return(0, errors.New("disk gone"))

	sched, err := NewCleanupScheduler(svc, time.Hour, "@every 1h", nil, WithPruner(pruner))
	require.NoError(t, err)

	_, err = sched.Sweep(context.Background())
	assert.ErrorContains(t, err, "disk gone")
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)
	old := NewWithID("old", "p", "s", 9)
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Create(context.Background(), old))

	sched, err := NewCleanupScheduler(svc, time.Minute, "@every 1s", nil, WithSweepTimeout(time.Second))
	require.NoError(t, err)

	sched.Start()
	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), "old")
		return errors.Is(err, ErrJobNotFound)
	}, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sched.Stop(ctx)
}
