package market

import (
	"context"
	"testing"

	"github.com/predictiq/engine/internal/circuitbreaker"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/oracle"
	"github.com/predictiq/engine/internal/token"
	"github.com/predictiq/engine/internal/voting"
)

type resolutionHarness struct {
	registry *Registry
	oracleA  *oracle.Adapter
	votingE  *voting.Engine
	breaker  *circuitbreaker.Breaker
	tok      *token.MemoryToken
	resolver *Resolver
}

func newResolutionHarness(t *testing.T) *resolutionHarness {
	t.Helper()
	store := ledger.NewMemStore()
	t.Cleanup(func() { _ = store.Close() })
	registry := New(store, nil)
	oracleA := oracle.New(store, nil)
	votingE := voting.New(store, nil)
	breaker := circuitbreaker.New(store, nil)
	tok := token.NewMemoryToken(nil)
	resolver := NewResolver(registry, oracleA, votingE, breaker, tok, nil)
	return &resolutionHarness{registry: registry, oracleA: oracleA, votingE: votingE, breaker: breaker, tok: tok, resolver: resolver}
}

func (h *resolutionHarness) createMarket(t *testing.T) uint64 {
	t.Helper()
	id, err := h.registry.Create(context.Background(), CreateParams{
		Creator: "creator", Options: []string{"yes", "no"}, Deadline: 100, ResolutionDeadline: 200, Now: 0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestOracleHappyPath(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)

	if err := h.oracleA.SetResult(ctx, id, 0, 1, "admin"); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	if err := h.resolver.AttemptOracleResolution(ctx, id, 200); err != nil {
		t.Fatalf("AttemptOracleResolution: %v", err)
	}
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != PendingResolution {
		t.Fatalf("got %v, want PendingResolution", m.Status)
	}

	if err := h.resolver.FinalizeResolution(ctx, id, 200+DisputeWindowSeconds); err != nil {
		t.Fatalf("FinalizeResolution: %v", err)
	}
	m, err = h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != Resolved || m.WinningOutcome == nil || *m.WinningOutcome != 0 {
		t.Fatalf("expected Resolved with outcome 0, got status=%v outcome=%v", m.Status, m.WinningOutcome)
	}
}

func TestFinalizeResolutionRejectsBeforeDisputeWindowCloses(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)
	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")
	_ = h.resolver.AttemptOracleResolution(ctx, id, 200)

	err := h.resolver.FinalizeResolution(ctx, id, 200+DisputeWindowSeconds-1)
	if err != ledger.ErrDisputeWindowStillOpen {
		t.Fatalf("got %v, want ErrDisputeWindowStillOpen", err)
	}
}

func TestFileDisputeRejectsAfterWindowCloses(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)
	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")
	_ = h.resolver.AttemptOracleResolution(ctx, id, 200)

	err := h.resolver.FileDispute(ctx, id, 200+DisputeWindowSeconds, 2, "challenger")
	if err != ledger.ErrDisputeWindowClosed {
		t.Fatalf("got %v, want ErrDisputeWindowClosed", err)
	}
}

func TestDisputeWithMajorityResolves(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)
	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")
	_ = h.resolver.AttemptOracleResolution(ctx, id, 200)

	if err := h.resolver.FileDispute(ctx, id, 201, 2, "challenger"); err != nil {
		t.Fatalf("FileDispute: %v", err)
	}
	if err := h.votingE.CastVote(ctx, nil, id, 2, 2, "a", 1, ledger.NewAmount(700)); err != nil {
		t.Fatalf("CastVote a: %v", err)
	}
	if err := h.votingE.CastVote(ctx, nil, id, 2, 2, "b", 0, ledger.NewAmount(300)); err != nil {
		t.Fatalf("CastVote b: %v", err)
	}

	disputeTime := uint64(201)
	if err := h.resolver.FinalizeResolution(ctx, id, disputeTime+VotingPeriodSeconds); err != nil {
		t.Fatalf("FinalizeResolution: %v", err)
	}
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != Resolved || m.WinningOutcome == nil || *m.WinningOutcome != 1 {
		t.Fatalf("expected Resolved with outcome 1 (voting overturned the oracle), got status=%v outcome=%v", m.Status, m.WinningOutcome)
	}
}

func TestDisputeWithoutMajorityRequiresAdminOverride(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)
	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")
	_ = h.resolver.AttemptOracleResolution(ctx, id, 200)
	_ = h.resolver.FileDispute(ctx, id, 201, 2, "challenger")

	// a near-even split never reaches the 60% supermajority
	_ = h.votingE.CastVote(ctx, nil, id, 2, 2, "a", 1, ledger.NewAmount(500))
	_ = h.votingE.CastVote(ctx, nil, id, 2, 2, "b", 0, ledger.NewAmount(500))

	err := h.resolver.FinalizeResolution(ctx, id, 201+VotingPeriodSeconds)
	if err != ledger.ErrNoMajorityReached {
		t.Fatalf("got %v, want ErrNoMajorityReached", err)
	}

	if err := h.resolver.ResolveMarket(ctx, id, 1, 201+VotingPeriodSeconds+1); err != nil {
		t.Fatalf("ResolveMarket admin override: %v", err)
	}
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != Resolved || *m.WinningOutcome != 1 {
		t.Fatalf("expected admin override to resolve outcome 1, got status=%v outcome=%v", m.Status, m.WinningOutcome)
	}
}

func TestFinalizeResolutionRefundsCreationDeposit(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id, err := h.registry.Create(ctx, CreateParams{
		Creator: "creator", Options: []string{"yes", "no"}, Deadline: 100, ResolutionDeadline: 200,
		TokenAddress: "USDC", CreationDeposit: ledger.NewAmount(500), Now: 0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.tok.Credit("USDC", ledger.NewAmount(500))

	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")
	_ = h.resolver.AttemptOracleResolution(ctx, id, 200)
	if err := h.resolver.FinalizeResolution(ctx, id, 200+DisputeWindowSeconds); err != nil {
		t.Fatalf("FinalizeResolution: %v", err)
	}

	bal, err := h.tok.Balance(ctx, "creator")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Int64() != 500 {
		t.Fatalf("creator's refunded deposit: got %d, want 500", bal.Int64())
	}
}

func TestAttemptOracleResolutionRejectsBeforeResolutionDeadline(t *testing.T) {
	h := newResolutionHarness(t)
	ctx := context.Background()
	id := h.createMarket(t)
	_ = h.oracleA.SetResult(ctx, id, 0, 1, "admin")

	err := h.resolver.AttemptOracleResolution(ctx, id, 50)
	if err != ledger.ErrResolutionNotReady {
		t.Fatalf("got %v, want ErrResolutionNotReady", err)
	}
}
