// Package scheduler runs the periodic maintenance jobs of SivetachiBot.
//
// Jobs are registered with 5-field cron expressions and run with panic recovery.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/flow"
	"github.com/BTreeMap/SivetachiBot/internal/store"
	"github.com/robfig/cron/v3"
)

// Default maintenance settings.
const (
	// EvictionSpec runs idle conversation eviction every five minutes.
	EvictionSpec = "*/5 * * * *"
	// DedupPurgeSpec purges old deduplication records hourly.
	DedupPurgeSpec = "0 * * * *"
	// DedupRetention is how long inbound message ids are remembered.
	DedupRetention = 24 * time.Hour
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c, now: time.Now}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// ScheduleEviction drops conversations idle for longer than ttl. A non-positive ttl
// keeps conversations forever and registers nothing.
func (s *Scheduler) ScheduleEviction(states *flow.StateStore, ttl time.Duration) error {
	if ttl <= 0 {
		slog.Debug("Scheduler.ScheduleEviction: idle eviction disabled")
		return nil
	}
	return s.AddJob(EvictionSpec, func() { s.evictIdle(states, ttl) })
}

func (s *Scheduler) evictIdle(states *flow.StateStore, ttl time.Duration) int {
	n := states.EvictIdle(s.now().Add(-ttl))
	if n > 0 {
		slog.Info("Scheduler.evictIdle: conversations evicted", "count", n, "remaining", states.Len())
	}
	return n
}

// ScheduleDedupPurge forgets inbound message ids older than DedupRetention.
func (s *Scheduler) ScheduleDedupPurge(dedup store.DedupRepo) error {
	return s.AddJob(DedupPurgeSpec, func() { s.purgeDedup(dedup) })
}

func (s *Scheduler) purgeDedup(dedup store.DedupRepo) int64 {
	n, err := dedup.PurgeBefore(s.now().Add(-DedupRetention))
	if err != nil {
		slog.Error("Scheduler.purgeDedup: purge failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Debug("Scheduler.purgeDedup: records purged", "count", n)
	}
	return n
}

// Run blocks until ctx is done and then stops the scheduler, waiting for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
