package sweep

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// passRunner runs one sweep pass.
type passRunner interface {
	RunOnce(ctx context.Context) (Result, error)
}

// Scheduler runs sweep passes at a fixed interval, plus once at startup.
// Passes never overlap and a panicking pass does not stop the schedule.
type Scheduler struct {
	runner   passRunner
	interval time.Duration
	logger   *log.Logger
}

// NewScheduler creates a Scheduler. Zero interval uses DefaultInterval.
func NewScheduler(runner passRunner, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, then waits for the running pass to return.
func (s *Scheduler) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(s.logger)
	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() { s.pass(ctx) }))

	c := cron.New(cron.WithLogger(cronLogger))
	if _, err := c.AddJob(fmt.Sprintf("@every %s", s.interval), job); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.logger.Printf("Sweep scheduled every %s", s.interval)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func (s *Scheduler) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Printf("Sweep pass failed: %v", err)
	}
}
