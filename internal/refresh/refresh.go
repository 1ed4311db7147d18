// Package refresh re-fetches calendar feeds on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "dualcal/internal/log"
)

// Refresher is anything that can reload its data, typically *ics.Store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs a Refresher once at start and then on every tick of a
// standard five-field cron expression.
type Scheduler struct {
	spec   string
	target Refresher
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
}

// New validates spec and prepares a scheduler evaluating it in loc.
func New(spec string, target Refresher, loc *time.Location) (*Scheduler, error) {
	if target == nil {
		return nil, fmt.Errorf("refresh: nil target")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh: invalid cron spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		spec:   spec,
		target: target,
		cron:   cron.New(cron.WithLocation(loc)),
	}, nil
}

// Run refreshes immediately, then on schedule until ctx is canceled.
// Ticks that fire while a refresh is still running are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	appLog.Info("refresh scheduler started", "cron", s.spec)

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("refresh scheduler stopped")
	return nil
}

// RunOnce performs a single refresh unless one is already in flight.
// It reports whether a refresh actually ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		appLog.Debug("refresh skipped, previous run still active")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	if err := s.target.Refresh(ctx); err != nil {
		appLog.Error("refresh failed", err, "elapsed", time.Since(start).String())
		return true
	}
	appLog.Debug("refresh completed", "elapsed", time.Since(start).String())
	return true
}
