package memory

import (
	"context"
	"sync"
	"time"

	"forge/internal/logging"
)

// Sweeper runs the TTL sweep on a fixed interval. The engine works fine
// without one; the CLI sweep command covers deployments that prefer cron.
type Sweeper struct {
	engine   *Engine
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool
}

// NewSweeper creates a sweeper. Intervals under a minute are raised to a
// minute so a config typo cannot turn the sweep into a busy loop.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{engine: engine, interval: interval}
}

// Start launches the sweep loop. Starting a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.doneCh = done
	go s.run(ctx, done)

	logging.Memory("TTL sweeper started: interval=%v", s.interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.doneCh
	s.mu.Unlock()

	cancel()
	<-done
	logging.Memory("TTL sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.engine.SweepExpired(ctx, time.Now()); err != nil {
				logging.MemoryWarn("Scheduled sweep failed: %v", err)
			}
		}
	}
}
