package component

import (
	"context"
	"time"

	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
)

// Purger removes old terminal rows from durable storage. Optional; nil when
// the archive database is disabled.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweep periodically evicts terminal jobs older than the retention
// window, bounding memory for a long-lived process.
type RetentionSweep struct {
	store    repo.JobStore
	purger   Purger
	interval time.Duration
	maxAge   time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRetentionSweep creates the sweep task.
func NewRetentionSweep(cfg config.RetentionConfig, store repo.JobStore, purger Purger) *RetentionSweep {
	return &RetentionSweep{
		store:    store,
		purger:   purger,
		interval: cfg.SweepInterval,
		maxAge:   cfg.MaxAge,
	}
}

// Name identifies the sweep to the background task manager.
func (s *RetentionSweep) Name() string { return "retention-sweep" }

// Start launches the sweep loop.
func (s *RetentionSweep) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		logger.Infof("retention sweep started interval=%s max_age=%s", s.interval, s.maxAge)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.sweep(loopCtx)
			}
		}
	}()
	return nil
}

// Stop halts the sweep loop.
func (s *RetentionSweep) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

func (s *RetentionSweep) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge)

	n, err := s.store.EvictTerminalBefore(ctx, cutoff)
	if err != nil {
		logger.Errorf("retention sweep evict: %v", err)
	} else if n > 0 {
		logger.Infof("retention sweep evicted %d terminal jobs", n)
	}

	if s.purger != nil {
		purged, err := s.purger.PurgeBefore(ctx, cutoff)
		if err != nil {
			logger.Errorf("retention sweep purge: %v", err)
		} else if purged > 0 {
			logger.Infof("retention sweep purged %d archived rows", purged)
		}
	}
}
