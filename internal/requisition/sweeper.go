package requisition

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper deactivates expired jobs on a fixed interval
type Sweeper struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger
	mutex    sync.Mutex
	isActive bool
}

func NewSweeper(svc *Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Start sweeps once, then on every tick until ctx is cancelled. A second
// call while running returns immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.isActive {
		s.mutex.Unlock()
		return nil
	}
	s.isActive = true
	s.mutex.Unlock()
	defer s.Stop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.svc.SweepExpiredJobs(ctx); err != nil {
		s.logger.Error("initial job sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.svc.SweepExpiredJobs(ctx); err != nil {
				s.logger.Error("periodic job sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.isActive = false
}

// Running reports whether Start is in its loop
func (s *Sweeper) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isActive
}
