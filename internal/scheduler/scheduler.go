package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crucial707/auditlog-admin/internal/metrics"
)

// Flusher deletes log entries older than a cutoff.
type Flusher interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention flushes log entries older than Days on a cron schedule.
type Retention struct {
	Store    Flusher
	Days     int
	Schedule string
	// OnFlush runs after a flush that removed entries.
	OnFlush func(removed int64)

	now  func() time.Time
	mu   sync.Mutex
	cron *cron.Cron
}

func NewRetention(store Flusher, days int, schedule string) *Retention {
	return &Retention{Store: store, Days: days, Schedule: schedule, now: time.Now}
}

// Cutoff is the oldest timestamp kept by a flush at t.
func (r *Retention) Cutoff(t time.Time) time.Time {
	return t.AddDate(0, 0, -r.Days)
}

// Flush removes entries older than the retention window once.
func (r *Retention) Flush(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.Cutoff(r.now())
	n, err := r.Store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("flush before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	metrics.AddEntriesFlushed("retention", n)
	if n > 0 && r.OnFlush != nil {
		r.OnFlush(n)
	}
	slog.Info("retention flush", "cutoff", cutoff, "removed", n)
	return n, nil
}

// Start schedules Flush. It is a no-op when Days is 0.
func (r *Retention) Start() error {
	if r.Days <= 0 {
		slog.Info("retention disabled")
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(r.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := r.Flush(ctx); err != nil {
			slog.Error("retention flush failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid flush schedule %q: %w", r.Schedule, err)
	}
	r.cron = c
	c.Start()
	slog.Info("retention scheduled", "days", r.Days, "schedule", r.Schedule)
	return nil
}

// Stop waits for a running flush to finish.
func (r *Retention) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
