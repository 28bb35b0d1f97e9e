package cancellation

import (
	"context"
	"testing"

	"github.com/predictiq/engine/internal/bets"
	"github.com/predictiq/engine/internal/fees"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
	"github.com/predictiq/engine/internal/token"
	"github.com/predictiq/engine/internal/voting"
)

type cancellationHarness struct {
	store    *ledger.Store
	registry *market.Registry
	votingE  *voting.Engine
	feesE    *fees.Engine
	tok      *token.MemoryToken
	engine   *Engine
}

func newCancellationHarness(t *testing.T, opening map[string]ledger.Amount) *cancellationHarness {
	t.Helper()
	store := ledger.NewMemStore()
	t.Cleanup(func() { _ = store.Close() })
	registry := market.New(store, nil)
	votingE := voting.New(store, nil)
	feesE := fees.New(store, nil)
	tok := token.NewMemoryToken(opening)
	guard := ledger.NewReentrancyGuard()
	engine := New(store, registry, votingE, feesE, tok, guard, nil)
	return &cancellationHarness{store: store, registry: registry, votingE: votingE, feesE: feesE, tok: tok, engine: engine}
}

func (h *cancellationHarness) createMarket(t *testing.T) uint64 {
	t.Helper()
	id, err := h.registry.Create(context.Background(), market.CreateParams{
		Creator: "creator", Options: []string{"yes", "no"}, Deadline: 100, ResolutionDeadline: 200, Now: 0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func (h *cancellationHarness) putBet(t *testing.T, marketID uint64, bettor string, outcome uint32, amount int64) {
	t.Helper()
	b := bets.Bet{MarketID: marketID, Bettor: bettor, Outcome: outcome, Amount: ledger.NewAmount(amount)}
	if err := h.store.Put(ledger.KeyBet(marketID, bettor), b); err != nil {
		t.Fatalf("Put bet: %v", err)
	}
}

func TestCancelMarketAdminRejectsAlreadyResolved(t *testing.T) {
	h := newCancellationHarness(t, nil)
	id := h.createMarket(t)
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	m.Status = market.Resolved
	if err := h.registry.Put(m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := h.engine.CancelMarketAdmin(context.Background(), id, false); err != ledger.ErrMarketNotActive {
		t.Fatalf("got %v, want ErrMarketNotActive", err)
	}
}

func TestCancelMarketAdminTransitionsToCancelled(t *testing.T) {
	h := newCancellationHarness(t, nil)
	id := h.createMarket(t)
	if err := h.engine.CancelMarketAdmin(context.Background(), id, false); err != nil {
		t.Fatalf("CancelMarketAdmin: %v", err)
	}
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != market.Cancelled {
		t.Fatalf("got %v, want Cancelled", m.Status)
	}
}

func TestCancelMarketAdminRefundsCreationDepositWithoutCause(t *testing.T) {
	h := newCancellationHarness(t, map[string]ledger.Amount{"escrow": ledger.NewAmount(500)})
	ctx := context.Background()
	id, err := h.registry.Create(ctx, market.CreateParams{
		Creator: "creator", Options: []string{"yes", "no"}, Deadline: 100, ResolutionDeadline: 200,
		TokenAddress: "escrow", CreationDeposit: ledger.NewAmount(500), Now: 0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.engine.CancelMarketAdmin(ctx, id, false); err != nil {
		t.Fatalf("CancelMarketAdmin: %v", err)
	}
	bal, err := h.tok.Balance(ctx, "creator")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Int64() != 500 {
		t.Fatalf("creator's refunded deposit: got %d, want 500", bal.Int64())
	}
	rev, err := h.feesE.Revenue("escrow")
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if !rev.IsZero() {
		t.Fatalf("no deposit should be forfeited to fee revenue without forCause, got %s", rev.String())
	}
}

func TestCancelMarketAdminForfeitsCreationDepositForCause(t *testing.T) {
	h := newCancellationHarness(t, map[string]ledger.Amount{"escrow": ledger.NewAmount(500)})
	ctx := context.Background()
	id, err := h.registry.Create(ctx, market.CreateParams{
		Creator: "creator", Options: []string{"yes", "no"}, Deadline: 100, ResolutionDeadline: 200,
		TokenAddress: "escrow", CreationDeposit: ledger.NewAmount(500), Now: 0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.engine.CancelMarketAdmin(ctx, id, true); err != nil {
		t.Fatalf("CancelMarketAdmin: %v", err)
	}
	bal, err := h.tok.Balance(ctx, "creator")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("creator should not be refunded when forCause is true, got %s", bal.String())
	}
	rev, err := h.feesE.Revenue("escrow")
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if rev.Int64() != 500 {
		t.Fatalf("forfeited deposit: got %d, want 500 in fee revenue", rev.Int64())
	}
}

func TestCancelMarketClawbackForcesStatus(t *testing.T) {
	h := newCancellationHarness(t, nil)
	id := h.createMarket(t)
	if err := h.engine.CancelMarketClawback(context.Background(), id); err != nil {
		t.Fatalf("CancelMarketClawback: %v", err)
	}
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != market.Cancelled {
		t.Fatalf("got %v, want Cancelled", m.Status)
	}
}

func TestCancelMarketVoteRequiresDisputedStatus(t *testing.T) {
	h := newCancellationHarness(t, nil)
	id := h.createMarket(t)
	if err := h.engine.CancelMarketVote(context.Background(), id); err != ledger.ErrMarketNotDisputed {
		t.Fatalf("got %v, want ErrMarketNotDisputed", err)
	}
}

func TestCancelMarketVoteRequires75PercentRatio(t *testing.T) {
	h := newCancellationHarness(t, nil)
	id := h.createMarket(t)
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	m.Status = market.Disputed
	if err := h.registry.Put(m); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ctx := context.Background()
	if err := h.votingE.CastVote(ctx, nil, id, 0, 2, "a", ledger.CancelOutcomeSentinel, ledger.NewAmount(600)); err != nil {
		t.Fatalf("cast vote a: %v", err)
	}
	if err := h.votingE.CastVote(ctx, nil, id, 0, 2, "b", 0, ledger.NewAmount(400)); err != nil {
		t.Fatalf("cast vote b: %v", err)
	}
	if err := h.engine.CancelMarketVote(ctx, id); err != ledger.ErrNoMajorityReached {
		t.Fatalf("600/1000 = 60%% should not meet the 75%% cancel threshold, got %v", err)
	}

	if err := h.votingE.CastVote(ctx, nil, id, 0, 2, "c", ledger.CancelOutcomeSentinel, ledger.NewAmount(600)); err != nil {
		t.Fatalf("cast vote c: %v", err)
	}
	if err := h.engine.CancelMarketVote(ctx, id); err != nil {
		t.Fatalf("1200/1600 = 75%% should meet the threshold, got %v", err)
	}
	m, err = h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	if m.Status != market.Cancelled {
		t.Fatalf("got %v, want Cancelled", m.Status)
	}
}

func TestWithdrawRefundIsFullPrincipalNoFeeAndIdempotent(t *testing.T) {
	h := newCancellationHarness(t, map[string]ledger.Amount{"escrow": ledger.NewAmount(10000)})
	id := h.createMarket(t)
	h.putBet(t, id, "alice", 0, 1000)
	m, err := h.registry.MustGet(id)
	if err != nil {
		t.Fatalf("MustGet: %v", err)
	}
	m.Status = market.Cancelled
	m.TokenAddress = "escrow"
	if err := h.registry.Put(m); err != nil {
		t.Fatalf("Put: %v", err)
	}

	amt, err := h.engine.WithdrawRefund(context.Background(), "alice", id)
	if err != nil {
		t.Fatalf("WithdrawRefund: %v", err)
	}
	if amt.Int64() != 1000 {
		t.Fatalf("got %d, want full principal 1000 with no fee deducted", amt.Int64())
	}
	bal, err := h.tok.Balance(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Int64() != 1000 {
		t.Fatalf("alice balance got %d, want 1000", bal.Int64())
	}

	if _, err := h.engine.WithdrawRefund(context.Background(), "alice", id); err != ledger.ErrBetNotFound {
		t.Fatalf("second withdraw should find the bet already deleted, got %v", err)
	}
}

func TestWithdrawRefundRejectsWhenMarketNotCancelled(t *testing.T) {
	h := newCancellationHarness(t, map[string]ledger.Amount{"escrow": ledger.NewAmount(10000)})
	id := h.createMarket(t)
	h.putBet(t, id, "alice", 0, 1000)
	if _, err := h.engine.WithdrawRefund(context.Background(), "alice", id); err != ledger.ErrMarketNotCancelled {
		t.Fatalf("got %v, want ErrMarketNotCancelled", err)
	}
}
