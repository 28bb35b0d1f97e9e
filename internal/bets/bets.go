// Package bets implements parimutuel wagering (spec §4.2), grounded on the
// teacher's internal/service/bet_service.go for the place-then-transfer
// effects ordering and internal/service/resolution_service.go's
// calculatePayout for the pro-rata settlement shape, generalized from a
// binary UP/DOWN market to N discrete outcomes and from the teacher's
// commission-on-pool model to the spec's per-claim tiered fee.
package bets

import (
	"context"

	"github.com/predictiq/engine/internal/circuitbreaker"
	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/fees"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
	"github.com/predictiq/engine/internal/oracle"
	"github.com/predictiq/engine/internal/token"
)

// Bet is spec §3's Bet record.
type Bet struct {
	MarketID uint64
	Bettor   string
	Outcome  uint32
	Amount   ledger.Amount
}

// Engine places and settles bets.
type Engine struct {
	store    *ledger.Store
	registry *market.Registry
	oracleA  *oracle.Adapter
	feesE    *fees.Engine
	breaker  *circuitbreaker.Breaker
	identity token.IdentityVerifier
	tok      token.Token
	guard    *ledger.ReentrancyGuard
	emitter  events.Emitter
}

// New wires a bets Engine. identity may be token.AlwaysVerified{} to
// disable the identity gate.
func New(store *ledger.Store, registry *market.Registry, oracleA *oracle.Adapter, feesE *fees.Engine, breaker *circuitbreaker.Breaker, identity token.IdentityVerifier, tok token.Token, guard *ledger.ReentrancyGuard, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, registry: registry, oracleA: oracleA, feesE: feesE, breaker: breaker, identity: identity, tok: tok, guard: guard, emitter: emitter}
}

func (e *Engine) get(marketID uint64, bettor string) (*Bet, bool, error) {
	var b Bet
	ok, err := e.store.Get(ledger.KeyBet(marketID, bettor), &b)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &b, true, nil
}

// PlaceBetParams carries place_bet's arguments (spec §4.2, §6).
type PlaceBetParams struct {
	Bettor   string
	MarketID uint64
	Outcome  uint32
	Amount   ledger.Amount
	Token    string
	Referrer *string
	Now      uint64
	Seq      uint32
}

// PlaceBet is spec §4.2's place_bet. Effects ordering: acquire guard,
// validate, write all state, emit events, transfer last.
func (e *Engine) PlaceBet(ctx context.Context, p PlaceBetParams) error {
	release, err := e.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := e.oracleA.CheckFreshness(p.MarketID, p.Seq); err != nil {
		return err
	}
	verified, err := e.identity.IsVerified(ctx, p.Bettor)
	if err != nil {
		return err
	}
	if !verified {
		return ledger.ErrIdentityVerificationRequired
	}
	if err := e.breaker.RequireNotPausedForHighRisk(); err != nil {
		return err
	}

	m, err := e.registry.MustGet(p.MarketID)
	if err != nil {
		return err
	}
	if m.Status != market.Active {
		return ledger.ErrMarketNotActive
	}
	if p.Now >= m.Deadline {
		return ledger.ErrMarketClosed
	}
	if p.Outcome >= uint32(len(m.Options)) {
		return ledger.ErrInvalidOutcome
	}
	if p.Amount.IsZero() || p.Amount.IsNegative() {
		return ledger.ErrInvalidBetAmount
	}
	if p.Token != m.TokenAddress {
		return ledger.ErrInvalidBetAmount
	}
	if m.IsConditional() {
		parent, err := e.registry.MustGet(m.ParentID)
		if err != nil {
			return err
		}
		if parent.Status != market.Resolved {
			return ledger.ErrParentMarketNotResolved
		}
		if parent.WinningOutcome == nil || *parent.WinningOutcome != m.ParentOutcomeIdx {
			return ledger.ErrParentMarketInvalidOutcome
		}
	}
	if p.Referrer != nil && *p.Referrer == p.Bettor {
		return ledger.ErrInvalidReferrer
	}

	existing, has, err := e.get(p.MarketID, p.Bettor)
	if err != nil {
		return err
	}
	newAmount := p.Amount
	if has {
		if existing.Outcome != p.Outcome {
			return ledger.ErrCannotChangeOutcome
		}
		newAmount = existing.Amount.Add(p.Amount)
	}

	// Write all engine state before any external call.
	b := &Bet{MarketID: p.MarketID, Bettor: p.Bettor, Outcome: p.Outcome, Amount: newAmount}
	if err := e.store.Put(ledger.KeyBet(p.MarketID, p.Bettor), b); err != nil {
		return err
	}

	m.TotalStaked = m.TotalStaked.Add(p.Amount)
	m.OutcomeStakes[p.Outcome] = m.OutcomeStakes[p.Outcome].Add(p.Amount)
	if err := e.registry.Put(m); err != nil {
		return err
	}

	if p.Referrer != nil {
		fee, err := e.feesE.CalculateTieredFee(p.Amount, m.Tier)
		if err != nil {
			return err
		}
		if err := e.feesE.AddReferralReward(*p.Referrer, p.Token, fee); err != nil {
			return err
		}
	}

	e.emitter.Emit(ctx, events.New(events.BetPlaced, p.MarketID, p.Bettor, map[string]any{
		"outcome": p.Outcome, "amount": p.Amount.String(),
	}))

	// External call last.
	return e.tok.Transfer(ctx, p.Bettor, m.TokenAddress, p.Amount)
}

// ClaimWinnings is spec §4.2's claim_winnings, single-purpose (per spec
// §9 Open Questions, the editing-error duplication in the Rust source is
// not reproduced here).
func (e *Engine) ClaimWinnings(ctx context.Context, bettor string, marketID uint64) (ledger.Amount, error) {
	release, err := e.guard.Acquire()
	if err != nil {
		return ledger.Zero, err
	}
	defer release()

	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return ledger.Zero, err
	}
	if m.Status != market.Resolved || m.WinningOutcome == nil {
		return ledger.Zero, ledger.ErrMarketNotResolved
	}

	b, has, err := e.get(marketID, bettor)
	if err != nil {
		return ledger.Zero, err
	}
	if !has || b.Outcome != *m.WinningOutcome {
		return ledger.Zero, ledger.ErrNoWinnings
	}

	payout, fee, err := ComputePayout(*m, b.Amount, e.feesE)
	if err != nil {
		return ledger.Zero, err
	}

	// Delete the bet record before transferring: idempotence (spec §4.2 —
	// a second call finds no record and returns NoWinnings).
	if err := e.store.Delete(ledger.KeyBet(marketID, bettor)); err != nil {
		return ledger.Zero, err
	}
	if !fee.IsZero() {
		if err := e.feesE.CollectFee(ctx, m.TokenAddress, fee); err != nil {
			return ledger.Zero, err
		}
	}

	e.emitter.Emit(ctx, events.New(events.WinningsClaimed, marketID, bettor, map[string]any{
		"payout": payout.String(), "is_refund": false,
	}))

	if err := e.tok.Transfer(ctx, m.TokenAddress, bettor, payout); err != nil {
		return ledger.Zero, err
	}
	return payout, nil
}

// ComputePayout implements spec §4.2's pro-rata payout formula:
//
//	W = outcome_stakes[winning_outcome]; L = T - W; f = tiered_fee(L)
//	payout = s + floor(s * (L - f) / W)
//
// f is the single market-wide fee on the losing pool; since claims happen
// one winner at a time (spec §4.2: "Fees are collected per-claim into
// fee_revenue[token]"), each claim contributes its proportional share of
// f, floor(s * f / W), to fee_revenue — the same floor-division dust rule
// spec §8 states for the payout itself, so fee collection and payout
// together partition L exactly as floor(s*(L-f)/W) + floor(s*f/W) <= s's
// theoretical share, with dust left in the contract.
//
// Exported so resolution-path push-mode iteration and tests can reuse the
// exact formula without re-deriving it.
func ComputePayout(m market.Market, stake ledger.Amount, feesE *fees.Engine) (payout, fee ledger.Amount, err error) {
	w := m.OutcomeStakes[*m.WinningOutcome]
	l := m.TotalStaked.Sub(w)
	if l.IsZero() {
		// push: all stakes on the winning outcome.
		return stake, ledger.Zero, nil
	}
	totalFee, err := feesE.CalculateTieredFee(l, m.Tier)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	p := l.Sub(totalFee)
	share := stake.MulDivFloor(p, w)
	feeShare := stake.MulDivFloor(totalFee, w)
	return stake.Add(share), feeShare, nil
}
