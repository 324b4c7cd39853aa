package sweeper

import (
	"context"
	"time"

	"github.com/somalearn/payclaims/internal/repository"
	"go.uber.org/zap"
)

// Sweeper periodically expires stale pending claims. It is a convenience,
// not a correctness dependency: verification performs its own staleness
// check, and the sweep itself is an idempotent conditional update.
type Sweeper struct {
	claims   *repository.ClaimRepo
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	now      func() time.Time
}

func New(claims *repository.ClaimRepo, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		claims:   claims,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting expiration sweeper",
		zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop terminates the background loop.
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// First sweep immediately on startup.
	s.sweepOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopChan:
			s.logger.Info("Expiration sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Expiration sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	count, err := s.Sweep(s.now())
	if err != nil {
		s.logger.Error("Sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("Expired stale claims", zap.Int("count", count))
	}
}

// Sweep expires every pending claim whose window passed before now and
// returns how many rows changed.
func (s *Sweeper) Sweep(now time.Time) (int, error) {
	return s.claims.SweepExpired(now)
}
