package agent

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bourse/internal/exchange"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStrategy records how often Decide runs.
type countingStrategy struct {
	calls atomic.Int64
}

func (s *countingStrategy) Name() string { return "counting" }

func (s *countingStrategy) Decide(acct *exchange.Account, venue *exchange.Venue) {
	s.calls.Add(1)
}

func TestAgentRunsUntilCanceled(t *testing.T) {
	v := exchange.NewVenue(exchange.Config{}, testLogger(), nil)
	acct := exchange.NewAccount(v.NextAccountID(), decimal.NewFromInt(100), 0)
	v.RegisterAccount(acct)

	strat := &countingStrategy{}
	a := New(acct, strat, v, time.Millisecond)

	if a.Account() != acct {
		t.Error("Account() should return the driven account")
	}
	if a.StrategyName() != "counting" {
		t.Errorf("StrategyName() = %s", a.StrategyName())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for strat.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if strat.calls.Load() < 3 {
		t.Fatalf("expected at least 3 decisions, got %d", strat.calls.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("agent did not stop after cancel")
	}

	// No decisions after Run returned.
	n := strat.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if strat.calls.Load() != n {
		t.Error("strategy still deciding after stop")
	}
}

func TestSupervisorStopsFleetTogether(t *testing.T) {
	v := exchange.NewVenue(exchange.Config{}, testLogger(), nil)

	sup := NewSupervisor(testLogger())
	strats := make([]*countingStrategy, 3)
	for i := range strats {
		strats[i] = &countingStrategy{}
		acct := exchange.NewAccount(v.NextAccountID(), decimal.NewFromInt(100), 0)
		v.RegisterAccount(acct)
		sup.Add(New(acct, strats[i], v, time.Millisecond))
	}
	if len(sup.Agents()) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(sup.Agents()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sup.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	allRan := func() bool {
		for _, s := range strats {
			if s.calls.Load() == 0 {
				return false
			}
		}
		return true
	}
	for !allRan() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !allRan() {
		t.Fatal("not every agent made a decision")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil && err != context.Canceled {
			t.Errorf("unexpected supervisor error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}
