package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TimeOfDay is a wall-clock time such as 08:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// NextRun returns the first instant strictly after now at which the wall
// clock in loc reads at.
func NextRun(now time.Time, at TimeOfDay, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}

// Scheduler runs a scan once a day at a fixed time of day.
type Scheduler struct {
	scanner *Scanner
	at      TimeOfDay
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(scanner *Scanner, at TimeOfDay, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scanner: scanner,
		at:      at,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// Start begins the daily loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			next := NextRun(s.now(), s.at, s.loc)
			s.logger.Info("next reminder scan scheduled", "at", next.Format(time.RFC3339))

			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.RunOnce(ctx)
			}
		}
	}()

	s.logger.Info("reminder scheduler started", "at", s.at.String(), "zone", s.loc.String())
}

// Stop cancels the loop and waits for an in-flight scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.logger.Info("reminder scheduler stopped")
}

// RunOnce performs one scan and logs its report.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	report, err := s.scanner.ScanAndNotify(ctx)
	if err != nil {
		s.logger.Error("reminder scan failed", "error", err)
		return
	}
	s.logger.Info("reminder scan complete",
		"owners", report.Owners,
		"bills", report.Bills,
		"sent", report.Sent,
		"failed", report.Failed,
		"duration", time.Since(start),
	)
}
