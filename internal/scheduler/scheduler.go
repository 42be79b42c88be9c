// Package scheduler keeps users' upcoming instances materialized in the background.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/lifeplan/internal/logger"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/materializer"
)

// Planner is the part of the planner service the scheduler drives
type Planner interface {
	Horizon(ctx context.Context, userID string, days int) (logicalday.Date, logicalday.Date, error)
	Ensure(ctx context.Context, userID string, start, end logicalday.Date) (materializer.Result, error)
}

// Run is the outcome of one pass for one user
type Run struct {
	UserID string
	Result materializer.Result
	Err    error
}

type Scheduler struct {
	planner Planner
	users   []string
	days    int

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	last   []Run

	// first tracks the pass Start kicks off outside the cron loop
	first sync.WaitGroup
}

func New(p Planner, users []string, days int) *Scheduler {
	return &Scheduler{planner: p, users: users, days: days}
}

// RunOnce ensures every user's horizon. Failures are logged and reported per user;
// one user's failure does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) []Run {
	runs := make([]Run, 0, len(s.users))
	for _, user := range s.users {
		run := Run{UserID: user}
		start, end, err := s.planner.Horizon(ctx, user, s.days)
		if err != nil {
			run.Err = fmt.Errorf("failed to resolve horizon: %w", err)
		} else {
			run.Result, run.Err = s.planner.Ensure(ctx, user, start, end)
		}

		if run.Err != nil {
			logger.Warn("Background materialization failed", "user", user, "error", run.Err)
		} else {
			logger.Debug("Background materialization", "user", user,
				"start", run.Result.Start, "end", run.Result.End,
				"inserted", run.Result.Inserted, "existing", run.Result.Existing)
		}
		runs = append(runs, run)
	}

	s.mu.Lock()
	s.last = runs
	s.mu.Unlock()
	return runs
}

// Last returns the runs of the most recent pass
func (s *Scheduler) Last() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Run(nil), s.last...)
}

// Start runs a pass immediately and then on spec (standard five-field cron or a
// descriptor such as "@every 1h"). Overlapping passes are skipped, the first one included.
func (s *Scheduler) Start(spec string) error {
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(spec, func() { s.RunOnce(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("scheduler already started")
	}
	s.cron = c
	s.cancel = cancel
	s.first.Add(1)
	s.mu.Unlock()

	job := c.Entry(id).WrappedJob
	go func() {
		defer s.first.Done()
		job.Run()
	}()
	c.Start()
	return nil
}

// Stop cancels the running pass, halts the schedule, and returns once every pass
// (the initial one included) has finished.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.first.Wait()
}
