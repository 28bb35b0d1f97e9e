package circuitbreaker

import (
	"context"
	"testing"

	"github.com/predictiq/engine/internal/ledger"
)

func newTestBreaker(t *testing.T) *Breaker {
	t.Helper()
	store := ledger.NewMemStore()
	t.Cleanup(func() { _ = store.Close() })
	return New(store, nil)
}

func TestDefaultStateIsClosed(t *testing.T) {
	b := newTestBreaker(t)
	s, err := b.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != Closed {
		t.Fatalf("got %v, want Closed", s)
	}
}

func TestSetRejectsPaused(t *testing.T) {
	b := newTestBreaker(t)
	if err := b.Set(context.Background(), Paused); err != ledger.ErrNotAuthorized {
		t.Fatalf("got %v, want ErrNotAuthorized; Paused must only be reachable via Pause()", err)
	}
}

func TestPauseBlocksHighRiskButOpenDoesNot(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	if err := b.Set(ctx, Open); err != nil {
		t.Fatalf("Set(Open): %v", err)
	}
	if err := b.RequireNotPausedForHighRisk(); err != nil {
		t.Fatalf("Open should not block high-risk ops, got %v", err)
	}
	if err := b.RequireClosed(); err != ledger.ErrCircuitBreakerOpen {
		t.Fatalf("RequireClosed under Open: got %v, want ErrCircuitBreakerOpen", err)
	}

	if err := b.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := b.RequireNotPausedForHighRisk(); err != ledger.ErrContractPaused {
		t.Fatalf("got %v, want ErrContractPaused", err)
	}

	if err := b.Unpause(ctx); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	s, _ := b.Get()
	if s != Closed {
		t.Fatalf("Unpause should return to Closed, got %v", s)
	}
}

func TestRecordFailureAutoTripsPastThreshold(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < autoTripThreshold; i++ {
		if err := b.RecordFailure(ctx); err != nil {
			t.Fatalf("RecordFailure #%d: %v", i, err)
		}
		s, _ := b.Get()
		if s != Closed {
			t.Fatalf("breaker tripped early at failure #%d", i)
		}
	}
	// one more failure crosses the threshold (count > 10)
	if err := b.RecordFailure(ctx); err != nil {
		t.Fatalf("RecordFailure final: %v", err)
	}
	s, _ := b.Get()
	if s != Open {
		t.Fatalf("breaker should auto-trip to Open past the threshold, got %v", s)
	}
}

func TestResetFailuresClearsCounter(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()
	for i := 0; i < autoTripThreshold+1; i++ {
		_ = b.RecordFailure(ctx)
	}
	s, _ := b.Get()
	if s != Open {
		t.Fatal("expected breaker to have tripped")
	}
	if err := b.Set(ctx, Closed); err != nil {
		t.Fatalf("Set(Closed): %v", err)
	}
	if err := b.ResetFailures(); err != nil {
		t.Fatalf("ResetFailures: %v", err)
	}
	// after reset, it should take another full threshold run to re-trip
	for i := 0; i < autoTripThreshold; i++ {
		_ = b.RecordFailure(ctx)
		s, _ := b.Get()
		if s != Closed {
			t.Fatalf("breaker retripped early after reset at failure #%d", i)
		}
	}
}
