package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const DefaultPurgeSchedule = "@daily"

// Scheduler runs maintenance tasks on cron schedules. A task still running when its next
// slot arrives is skipped.
type Scheduler struct {
	log  *logger.Logger
	cron *cron.Cron
}

func NewScheduler(baseLog *logger.Logger) *Scheduler {
	return &Scheduler{
		log:  baseLog.With("component", "Scheduler"),
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Register adds fn under spec. Each run gets its own context bounded by timeout.
func (s *Scheduler) Register(name, spec string, timeout time.Duration, fn func(ctx context.Context) error) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("schedule for %s is empty", name)
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.log.Warn("scheduled task failed", "task", name, "error", err)
			return
		}
		s.log.Debug("scheduled task done", "task", name, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("register %s (%q): %w", name, spec, err)
	}
	s.log.Info("scheduled task registered", "task", name, "schedule", spec)
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for running tasks or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries reports how many tasks are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func RegisterTokenPurge(s *Scheduler, p *TokenPurger, spec string) error {
	if spec == "" {
		spec = DefaultPurgeSchedule
	}
	return s.Register("token_purge", spec, 2*time.Minute, func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	})
}
