// Package housekeeping runs the wall-clock jobs that sit beside the
// tick-driven TDMA core: periodic fragment-table garbage collection and a
// hangtime-expiry backstop, scheduled with gocron rather than tied to any
// particular timeslot. The hangtime job is a safety net beside the sweep
// CMCE already runs every tick; the fragment job is the only place fragment
// chains are expired.
package housekeeping

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	defaultFragmentGCInterval = 5 * time.Second
	defaultHangtimeGCInterval = 2 * time.Second
)

// Housekeeping owns the gocron scheduler and the two registered jobs.
type Housekeeping struct {
	scheduler gocron.Scheduler

	fragmentGC       func() int
	hangtimeGC       func() int
	fragmentInterval time.Duration
	hangtimeInterval time.Duration
}

// New builds a Housekeeping around fragmentGC (the UMAC defragmenter's
// ExpireOlderThan, closed over the latest observed TDMA time) and
// hangtimeGC (CMCE's SweepHangtime). Either may be nil to skip that job.
func New(fragmentGC, hangtimeGC func() int) (*Housekeeping, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Housekeeping{
		scheduler:        s,
		fragmentGC:       fragmentGC,
		hangtimeGC:       hangtimeGC,
		fragmentInterval: defaultFragmentGCInterval,
		hangtimeInterval: defaultHangtimeGCInterval,
	}, nil
}

// WithIntervals overrides the default job periods; tests use this to keep
// runs short.
func (h *Housekeeping) WithIntervals(fragmentInterval, hangtimeInterval time.Duration) *Housekeeping {
	h.fragmentInterval = fragmentInterval
	h.hangtimeInterval = hangtimeInterval
	return h
}

// Start registers the jobs and starts the scheduler.
func (h *Housekeeping) Start() error {
	if h.fragmentGC != nil {
		if _, err := h.scheduler.NewJob(
			gocron.DurationJob(h.fragmentInterval),
			gocron.NewTask(func() {
				if n := h.fragmentGC(); n > 0 {
					slog.Debug("swept stale fragment chains", "count", n)
				}
			}),
			gocron.WithName("fragment-gc"),
		); err != nil {
			return err
		}
	}
	if h.hangtimeGC != nil {
		if _, err := h.scheduler.NewJob(
			gocron.DurationJob(h.hangtimeInterval),
			gocron.NewTask(func() {
				if n := h.hangtimeGC(); n > 0 {
					slog.Debug("swept expired hangtime circuits", "count", n)
				}
			}),
			gocron.WithName("hangtime-gc"),
		); err != nil {
			return err
		}
	}
	h.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for any in-flight job to finish.
func (h *Housekeeping) Stop() error {
	return h.scheduler.Shutdown()
}
