package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestNewSweeperFloorsInterval(t *testing.T) {
	e, _ := newTestEngine(t)
	s := NewSweeper(e, time.Second)
	if s.interval != time.Minute {
		t.Errorf("interval = %v, want the one-minute floor", s.interval)
	}
}

func TestSweeperPurgesOnTick(t *testing.T) {
	// Registered before newTestEngine's cleanup so it runs after the
	// store is closed (cleanups run LIFO); a plain defer would check
	// before t.Cleanup closes the database. The opencensus worker is
	// started by that package's init and never exits.
	t.Cleanup(func() {
		goleak.VerifyNone(t,
			goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
	})

	e, st := newTestEngine(t)
	ctx := context.Background()

	// A sighting eight days back is expired against the real clock the
	// sweeper runs on.
	stale := time.Now().UTC().Add(-8 * 24 * time.Hour)
	if _, err := e.Process(ctx, "user-1", "conv-1", anxietyCandidate(), ProcessOptions{Now: stale}); err != nil {
		t.Fatalf("Process error = %v", err)
	}

	s := NewSweeper(e, time.Hour)
	s.interval = 10 * time.Millisecond
	s.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		signals, err := st.ListSignals(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListSignals error = %v", err)
		}
		if len(signals) == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Stop()
	s.Stop() // idempotent

	signals, err := st.ListSignals(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSignals error = %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expired signal still present after sweeper ran: %+v", signals)
	}
}

func TestSweeperStartTwice(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t,
			goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
	})

	e, _ := newTestEngine(t)
	s := NewSweeper(e, time.Hour)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // no second loop
	s.Stop()
}
