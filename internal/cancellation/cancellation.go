// Package cancellation implements admin and community-vote cancellation
// plus principal refunds (spec §4.7), grounded on the teacher's
// internal/service/market_service.go CancelMarket + resolution_service.go
// RefundAll, and original_source's modules/cancellation.rs for the exact
// 75% threshold and withdraw_refund semantics.
package cancellation

import (
	"context"

	"github.com/predictiq/engine/internal/bets"
	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/fees"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
	"github.com/predictiq/engine/internal/token"
	"github.com/predictiq/engine/internal/voting"
)

// Engine drives cancellation and refund.
type Engine struct {
	store    *ledger.Store
	registry *market.Registry
	votingE  *voting.Engine
	feesE    *fees.Engine
	tok      token.Token
	guard    *ledger.ReentrancyGuard
	emitter  events.Emitter
}

// New wires a cancellation Engine.
func New(store *ledger.Store, registry *market.Registry, votingE *voting.Engine, feesE *fees.Engine, tok token.Token, guard *ledger.ReentrancyGuard, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, registry: registry, votingE: votingE, feesE: feesE, tok: tok, guard: guard, emitter: emitter}
}

// CancelMarketAdmin is spec §4.7's cancel_market_admin. forCause, when
// true, forfeits the market's creation deposit to fee revenue instead of
// refunding it to the creator (SPEC_FULL.md §12.3). Callers that don't use
// creation deposits can always pass false.
func (e *Engine) CancelMarketAdmin(ctx context.Context, marketID uint64, forCause bool) error {
	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status == market.Resolved || m.Status == market.Cancelled {
		return ledger.ErrMarketNotActive
	}
	m.Status = market.Cancelled
	if err := e.registry.Put(m); err != nil {
		return err
	}
	e.emitter.Emit(ctx, events.New(events.MarketCancelled, marketID, m.Creator, map[string]any{"clawback": false, "for_cause": forCause}))

	if !m.CreationDeposit.IsPositive() {
		return nil
	}
	if forCause {
		return e.feesE.CollectFee(ctx, m.TokenAddress, m.CreationDeposit)
	}
	return e.tok.Transfer(ctx, m.TokenAddress, m.Creator, m.CreationDeposit)
}

// CancelMarketClawback auto-cancels a market after a detected token
// clawback (spec §4.11), emitting market_cancelled(clawback=true).
func (e *Engine) CancelMarketClawback(ctx context.Context, marketID uint64) error {
	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	m.Status = market.Cancelled
	if err := e.registry.Put(m); err != nil {
		return err
	}
	e.emitter.Emit(ctx, events.New(events.MarketCancelled, marketID, m.Creator, map[string]any{"clawback": true}))
	return nil
}

// CancelMarketVote is spec §4.7's cancel_market_vote: requires Disputed
// and a >=75% cancel-vote ratio.
func (e *Engine) CancelMarketVote(ctx context.Context, marketID uint64) error {
	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status != market.Disputed {
		return ledger.ErrMarketNotDisputed
	}
	met, err := e.votingE.CancelRatioMet(marketID, uint32(len(m.Options)))
	if err != nil {
		return err
	}
	if !met {
		return ledger.ErrNoMajorityReached
	}
	m.Status = market.Cancelled
	if err := e.registry.Put(m); err != nil {
		return err
	}
	e.emitter.Emit(ctx, events.New(events.MarketCancelledVote, marketID, m.Creator, nil))
	return nil
}

// WithdrawRefund is spec §4.7's withdraw_refund: full principal, no fee,
// bet deleted before transfer (idempotence).
func (e *Engine) WithdrawRefund(ctx context.Context, bettor string, marketID uint64) (ledger.Amount, error) {
	release, err := e.guard.Acquire()
	if err != nil {
		return ledger.Zero, err
	}
	defer release()

	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return ledger.Zero, err
	}
	if m.Status != market.Cancelled {
		return ledger.Zero, ledger.ErrMarketNotCancelled
	}

	var b bets.Bet
	key := ledger.KeyBet(marketID, bettor)
	ok, err := e.store.Get(key, &b)
	if err != nil {
		return ledger.Zero, err
	}
	if !ok {
		return ledger.Zero, ledger.ErrBetNotFound
	}

	if err := e.store.Delete(key); err != nil {
		return ledger.Zero, err
	}

	e.emitter.Emit(ctx, events.New(events.RefundWithdrawn, marketID, bettor, map[string]any{"amount": b.Amount.String()}))

	if err := e.tok.Transfer(ctx, m.TokenAddress, bettor, b.Amount); err != nil {
		return ledger.Zero, err
	}
	return b.Amount, nil
}
