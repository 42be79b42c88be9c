package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/materializer"
	"github.com/julianstephens/lifeplan/internal/planner"
	"github.com/julianstephens/lifeplan/internal/storage/memory"
)

func newPlanner(t *testing.T) (*planner.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	clock := logicalday.FixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	p := planner.New(store, planner.WithClock(clock))

	for _, user := range []string{"alice", "bob"} {
		_, _, err := p.CreateHabit(context.Background(), user, planner.HabitInput{
			Name: "Read",
			Rule: planner.RuleSpec{Type: constants.RuleDaily},
		})
		require.NoError(t, err)
	}
	return p, store
}

func TestRunOnce(t *testing.T) {
	p, store := newPlanner(t)
	s := New(p, []string{"alice", "bob"}, 7)

	runs := s.RunOnce(context.Background())
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.NoError(t, run.Err)
		assert.Equal(t, 7, run.Result.Inserted, run.UserID)
		assert.Equal(t, "2024-01-01", run.Result.Start.String())
		assert.Equal(t, "2024-01-07", run.Result.End.String())
	}

	instances, err := store.ListInstances(context.Background(), "alice",
		logicalday.MustParse("2024-01-01"), logicalday.MustParse("2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, instances, 7)

	// A second pass finds everything in place
	runs = s.RunOnce(context.Background())
	for _, run := range runs {
		require.NoError(t, run.Err)
		assert.Equal(t, 0, run.Result.Inserted)
		assert.Equal(t, 7, run.Result.Existing)
	}
	assert.Equal(t, runs, s.Last())
}

type flakyPlanner struct {
	Planner
	failFor string
}

func (f flakyPlanner) Ensure(ctx context.Context, userID string, start, end logicalday.Date) (materializer.Result, error) {
	if userID == f.failFor {
		return materializer.Result{}, errors.New("database is locked")
	}
	return f.Planner.Ensure(ctx, userID, start, end)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	p, _ := newPlanner(t)
	s := New(flakyPlanner{Planner: p, failFor: "alice"}, []string{"alice", "bob"}, 3)

	runs := s.RunOnce(context.Background())
	require.Len(t, runs, 2)
	assert.Error(t, runs[0].Err)
	require.NoError(t, runs[1].Err)
	assert.Equal(t, 3, runs[1].Result.Inserted)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	p, _ := newPlanner(t)
	s := New(p, []string{"alice"}, 7)
	assert.Error(t, s.Start("every tuesday"))
	s.Stop()
}

func TestStartRunsImmediately(t *testing.T) {
	p, _ := newPlanner(t)
	s := New(p, []string{"alice"}, 2)
	require.NoError(t, s.Start("@every 1h"))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		last := s.Last()
		return len(last) == 1 && last[0].Err == nil && last[0].Result.Inserted == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, s.Start("@every 1h"), "second Start should fail")
}

// blockingPlanner holds every Ensure until its context is cancelled
type blockingPlanner struct {
	Planner
	started  chan struct{}
	once     sync.Once
	calls    atomic.Int32
	finished atomic.Bool
}

func newBlockingPlanner(p Planner) *blockingPlanner {
	return &blockingPlanner{Planner: p, started: make(chan struct{})}
}

func (b *blockingPlanner) Ensure(ctx context.Context, _ string, _, _ logicalday.Date) (materializer.Result, error) {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	b.finished.Store(true)
	return materializer.Result{}, ctx.Err()
}

func waitStarted(t *testing.T, b *blockingPlanner) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("initial pass never started")
	}
}

func TestStopWaitsForInitialPass(t *testing.T) {
	p, _ := newPlanner(t)
	b := newBlockingPlanner(p)
	s := New(b, []string{"alice"}, 7)
	require.NoError(t, s.Start("@every 1h"))
	waitStarted(t, b)

	s.Stop()
	assert.True(t, b.finished.Load(), "Stop returned while the initial pass was still running")

	last := s.Last()
	require.Len(t, last, 1)
	assert.ErrorIs(t, last[0].Err, context.Canceled)

	// stopping twice is harmless
	s.Stop()
}

func TestInitialPassBlocksOverlappingTick(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	p, _ := newPlanner(t)
	b := newBlockingPlanner(p)
	s := New(b, []string{"alice"}, 7)
	require.NoError(t, s.Start("@every 1s"))
	waitStarted(t, b)

	// at least one tick fires while the first pass is still blocked
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), b.calls.Load())
	s.Stop()
}
