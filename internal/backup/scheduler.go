package backup

import (
	"context"
	"log/slog"
	"time"
)

// Creator takes one backup and reports success.
type Creator interface {
	CreateBackup() bool
}

// Scheduler triggers backups on start, on every interval, and on exit.
// The triggers are not deduplicated: an exit backup right after a tick
// may share its timestamp and overwrite it.
type Scheduler struct {
	creator  Creator
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler returns a Scheduler firing creator every interval. A
// non-positive interval falls back to DefaultInterval.
func NewScheduler(creator Creator, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		logger.Warn("non-positive backup interval, using default",
			"interval", interval, "default", DefaultInterval)
		interval = DefaultInterval
	}
	return &Scheduler{creator: creator, interval: interval, logger: logger}
}

// Run takes a backup immediately, then one per interval until ctx is
// cancelled, then a final one before returning.
func (s *Scheduler) Run(ctx context.Context) {
	s.fire("start")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.fire("exit")
			return
		case <-ticker.C:
			s.fire("interval")
		}
	}
}

// Start runs the scheduler in a goroutine. The returned stop function
// cancels it and waits for the exit backup to finish.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *Scheduler) fire(trigger string) {
	ok := s.creator.CreateBackup()
	s.logger.Debug("scheduled backup", "trigger", trigger, "ok", ok)
}
