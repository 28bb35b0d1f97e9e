package voting

import (
	"context"
	"testing"

	"github.com/predictiq/engine/internal/ledger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store := ledger.NewMemStore()
	t.Cleanup(func() { _ = store.Close() })
	return New(store, nil)
}

func TestCastVoteRejectsDoubleVote(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if err := e.CastVote(ctx, nil, 1, 0, 2, "alice", 0, ledger.NewAmount(100)); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	err := e.CastVote(ctx, nil, 1, 0, 2, "alice", 1, ledger.NewAmount(50))
	if err != ledger.ErrAlreadyVoted {
		t.Fatalf("got %v, want ErrAlreadyVoted", err)
	}
}

func TestCastVoteRejectsOutOfRangeOutcome(t *testing.T) {
	e := newTestEngine(t)
	err := e.CastVote(context.Background(), nil, 1, 0, 2, "alice", 5, ledger.NewAmount(100))
	if err != ledger.ErrInvalidOutcome {
		t.Fatalf("got %v, want ErrInvalidOutcome", err)
	}
}

func TestCastVoteAllowsCancelSentinel(t *testing.T) {
	e := newTestEngine(t)
	err := e.CastVote(context.Background(), nil, 1, 0, 2, "alice", ledger.CancelOutcomeSentinel, ledger.NewAmount(100))
	if err != nil {
		t.Fatalf("cancel-sentinel vote should be accepted: %v", err)
	}
}

// TestOutcomeSupermajorityBoundary checks the exact 60% threshold: 600/1000
// passes (TestOutcomeFailsBelowSupermajority covers 599/1000).
func TestOutcomeSupermajorityBoundary(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CastVote(ctx, nil, 10, 0, 2, "a", 0, ledger.NewAmount(600)); err != nil {
		t.Fatalf("vote a: %v", err)
	}
	if err := e.CastVote(ctx, nil, 10, 0, 2, "b", 1, ledger.NewAmount(400)); err != nil {
		t.Fatalf("vote b: %v", err)
	}
	winner, ok, err := e.Outcome(10, 2)
	if err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if !ok || winner != 0 {
		t.Fatalf("expected outcome 0 to win at exactly 60%%, got winner=%d ok=%v", winner, ok)
	}
}

func TestOutcomeFailsBelowSupermajority(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CastVote(ctx, nil, 11, 0, 2, "a", 0, ledger.NewAmount(599)); err != nil {
		t.Fatalf("vote a: %v", err)
	}
	if err := e.CastVote(ctx, nil, 11, 0, 2, "b", 1, ledger.NewAmount(401)); err != nil {
		t.Fatalf("vote b: %v", err)
	}
	_, ok, err := e.Outcome(11, 2)
	if err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if ok {
		t.Fatal("599/1000 should not reach the 60% supermajority")
	}
}

func TestCancelRatioMetBoundary(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if err := e.CastVote(ctx, nil, 20, 0, 2, "a", ledger.CancelOutcomeSentinel, ledger.NewAmount(750)); err != nil {
		t.Fatalf("cancel vote: %v", err)
	}
	if err := e.CastVote(ctx, nil, 20, 0, 2, "b", 0, ledger.NewAmount(250)); err != nil {
		t.Fatalf("outcome vote: %v", err)
	}
	met, err := e.CancelRatioMet(20, 2)
	if err != nil {
		t.Fatalf("CancelRatioMet: %v", err)
	}
	if !met {
		t.Fatal("750/1000 should meet the 75% cancel threshold")
	}
}

func TestUnlockTokensRejectsBeforeUnlockTime(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LockTokens(1, "alice", ledger.NewAmount(100), 1000); err != nil {
		t.Fatalf("LockTokens: %v", err)
	}
	if _, err := e.UnlockTokens(1, "alice", 500); err != ledger.ErrVotingNotStarted {
		t.Fatalf("got %v, want ErrVotingNotStarted", err)
	}
	amt, err := e.UnlockTokens(1, "alice", 1000)
	if err != nil {
		t.Fatalf("UnlockTokens: %v", err)
	}
	if amt.Int64() != 100 {
		t.Fatalf("got %d, want 100", amt.Int64())
	}
	// second call: nothing left
	amt2, err := e.UnlockTokens(1, "alice", 1000)
	if err != nil {
		t.Fatalf("second UnlockTokens: %v", err)
	}
	if !amt2.IsZero() {
		t.Fatalf("expected zero on second unlock, got %d", amt2.Int64())
	}
}

func TestCastVoteEnforcesSnapshotWeight(t *testing.T) {
	e := newTestEngine(t)
	snap := func(ctx context.Context, voter string, snapshotLedger uint32) (ledger.Amount, bool, error) {
		return ledger.NewAmount(50), true, nil
	}
	err := e.CastVote(context.Background(), snap, 1, 0, 2, "alice", 0, ledger.NewAmount(100))
	if err != ledger.ErrInsufficientVotingWeight {
		t.Fatalf("got %v, want ErrInsufficientVotingWeight", err)
	}
}
