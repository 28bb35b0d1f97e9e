// Package amm implements the constant-product market maker (spec §4.3),
// grounded on original_source's modules/amm.rs for the exact constants and
// formulas, and on the teacher's internal/service/mm_service.go for the
// shape of a liquidity-management service sitting alongside the parimutuel
// bet engine (repurposed here from "platform market-maker bets into the
// pari-mutuel pool" to "constant-product share pool per outcome").
package amm

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
	"github.com/predictiq/engine/internal/token"
)

// InitialShareReserve is the fixed virtual anchor for share_reserve
// (original_source amm.rs: INITIAL_LIQUIDITY = 1_000_000_0000000 = 10^13).
// share_reserve is never backed by real tokens — only usdc_reserve is real
// custody (spec §9 "AMM virtual reserve").
const InitialShareReserve = 10_000_000_000_000

// FeeBps is the 0.3% trading fee (original_source amm.rs: FEE_BPS = 30).
const FeeBps = 30

// feeComplementBps is 10000 - FeeBps = 9970, applied as usdc_in * 9970 /
// 10000 on buy and symmetric on sell proceeds.
const feeComplementBps = 10000 - FeeBps

// InvariantToleranceDenominator bounds |x*y - k| <= k / 10000 (spec §3,
// §4.3, §9 — "a direct consequence of integer-division rounding").
const InvariantToleranceDenominator = 10000

// Pool is spec §3's AMM pool record, per (market_id, outcome).
type Pool struct {
	MarketID          uint64
	Outcome           uint32
	USDCReserve       ledger.Amount
	ShareReserve      ledger.Amount
	K                 ledger.Amount
	TotalSharesIssued ledger.Amount
}

// Engine owns pool storage and user share balances.
type Engine struct {
	store    *ledger.Store
	registry *market.Registry
	tok      token.Token
	emitter  events.Emitter
}

// New wires an amm Engine. registry resolves a market's token_address for
// custody transfers; tok is the same external token collaborator the
// bets/cancellation engines use (spec §4.3: "the token transfer pulls
// usdc_in in" / "transfer out").
func New(store *ledger.Store, registry *market.Registry, tok token.Token, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, registry: registry, tok: tok, emitter: emitter}
}

// InitializePools is initialize_pools(market_id, N, initial_usdc) (spec
// §4.3). It moves no tokens, and neither it nor Engine.InitializeAMMPools
// checks the caller's authority: any caller may initialize the pools.
func (e *Engine) InitializePools(marketID uint64, numOutcomes uint32, initialUSDC ledger.Amount) error {
	if numOutcomes == 0 {
		return ledger.ErrInvalidOutcome
	}
	perOutcome := initialUSDC.DivFloor(ledger.NewAmount(int64(numOutcomes)))
	shareReserve := ledger.NewAmount(InitialShareReserve)
	k := perOutcome.Mul(shareReserve)
	for o := uint32(0); o < numOutcomes; o++ {
		p := Pool{
			MarketID:          marketID,
			Outcome:           o,
			USDCReserve:       perOutcome,
			ShareReserve:      shareReserve,
			K:                 k,
			TotalSharesIssued: ledger.Zero,
		}
		if err := e.store.Put(ledger.KeyPool(marketID, o), p); err != nil {
			return err
		}
	}
	return nil
}

// GetPool is a pure read.
func (e *Engine) GetPool(marketID uint64, outcome uint32) (*Pool, bool, error) {
	var p Pool
	ok, err := e.store.Get(ledger.KeyPool(marketID, outcome), &p)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &p, true, nil
}

func (e *Engine) mustGetPool(marketID uint64, outcome uint32) (*Pool, error) {
	p, ok, err := e.GetPool(marketID, outcome)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ledger.ErrMarketNotFound
	}
	return p, nil
}

func userSharesKey(marketID uint64, user string, outcome uint32) []byte {
	return ledger.KeyUserShares(marketID, user, outcome)
}

// GetUserShares returns a user's current share balance for (market, outcome).
func (e *Engine) GetUserShares(marketID uint64, user string, outcome uint32) (ledger.Amount, error) {
	var shares ledger.Amount
	_, err := e.store.Get(userSharesKey(marketID, user, outcome), &shares)
	return shares, err
}

// QuoteBuy is the side-effect-free computation behind Buy: given usdc_in,
// returns shares_out without mutating the pool.
func (e *Engine) QuoteBuy(marketID uint64, outcome uint32, usdcIn ledger.Amount) (sharesOut ledger.Amount, err error) {
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return ledger.Zero, err
	}
	return quoteBuy(*p, usdcIn)
}

func quoteBuy(p Pool, usdcIn ledger.Amount) (ledger.Amount, error) {
	usdcEff := usdcIn.MulInt64(feeComplementBps).DivFloor(ledger.NewAmount(10000))
	xPrime := p.USDCReserve.Add(usdcEff)
	if xPrime.IsZero() {
		return ledger.Zero, ledger.ErrInvalidBetAmount
	}
	yPrime := p.K.DivFloor(xPrime)
	sharesOut := p.ShareReserve.Sub(yPrime)
	if !sharesOut.IsPositive() {
		return ledger.Zero, ledger.ErrInvalidBetAmount
	}
	return sharesOut, nil
}

// Buy executes spec §4.3's Buy: applies the 0.3% fee, updates reserves,
// credits user shares. Pool state is written before the token transfer
// pulls usdc_in in (spec: "Pool state must be written before the token
// transfer pulls usdc_in in").
func (e *Engine) Buy(ctx context.Context, marketID uint64, outcome uint32, buyer string, usdcIn ledger.Amount) (sharesOut, newUSDCReserve ledger.Amount, err error) {
	if !usdcIn.IsPositive() {
		return ledger.Zero, ledger.Zero, ledger.ErrInvalidBetAmount
	}
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	usdcEff := usdcIn.MulInt64(feeComplementBps).DivFloor(ledger.NewAmount(10000))
	xPrime := p.USDCReserve.Add(usdcEff)
	if xPrime.IsZero() {
		return ledger.Zero, ledger.Zero, ledger.ErrInvalidBetAmount
	}
	yPrime := p.K.DivFloor(xPrime)
	shares := p.ShareReserve.Sub(yPrime)
	if !shares.IsPositive() {
		return ledger.Zero, ledger.Zero, ledger.ErrInvalidBetAmount
	}

	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	p.USDCReserve = xPrime
	p.ShareReserve = yPrime
	p.TotalSharesIssued = p.TotalSharesIssued.Add(shares)
	if err := e.store.Put(ledger.KeyPool(marketID, outcome), *p); err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	bal, err := e.GetUserShares(marketID, buyer, outcome)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	bal = bal.Add(shares)
	if err := e.store.Put(userSharesKey(marketID, buyer, outcome), bal); err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	e.emitter.Emit(ctx, events.New(events.BetPlaced, marketID, buyer, map[string]any{
		"amm": true, "outcome": outcome, "usdc_in": usdcIn.String(), "shares_out": shares.String(),
	}))

	// External call last: pull usdc_in from the buyer into contract custody.
	if err := e.tok.Transfer(ctx, buyer, m.TokenAddress, usdcIn); err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	return shares, xPrime, nil
}

// QuoteSell mirrors Sell without mutation.
func (e *Engine) QuoteSell(marketID uint64, outcome uint32, sharesIn ledger.Amount) (usdcOut ledger.Amount, err error) {
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return ledger.Zero, err
	}
	return quoteSell(*p, sharesIn)
}

func quoteSell(p Pool, sharesIn ledger.Amount) (ledger.Amount, error) {
	yPrime := p.ShareReserve.Add(sharesIn)
	xPrime := p.K.DivFloor(yPrime)
	usdcPre := p.USDCReserve.Sub(xPrime)
	if !usdcPre.IsPositive() {
		return ledger.Zero, ledger.ErrInvalidBetAmount
	}
	return usdcPre.MulInt64(feeComplementBps).DivFloor(ledger.NewAmount(10000)), nil
}

// Sell executes spec §4.3's Sell.
func (e *Engine) Sell(ctx context.Context, marketID uint64, outcome uint32, seller string, sharesIn ledger.Amount) (usdcOut, newUSDCReserve ledger.Amount, err error) {
	if !sharesIn.IsPositive() {
		return ledger.Zero, ledger.Zero, ledger.ErrInvalidBetAmount
	}
	bal, err := e.GetUserShares(marketID, seller, outcome)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	if bal.LessThan(sharesIn) {
		return ledger.Zero, ledger.Zero, ledger.ErrInsufficientBalance
	}
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	yPrime := p.ShareReserve.Add(sharesIn)
	xPrime := p.K.DivFloor(yPrime)
	usdcPre := p.USDCReserve.Sub(xPrime)
	if !usdcPre.IsPositive() {
		return ledger.Zero, ledger.Zero, ledger.ErrInvalidBetAmount
	}
	usdcOut = usdcPre.MulInt64(feeComplementBps).DivFloor(ledger.NewAmount(10000))

	m, err := e.registry.MustGet(marketID)
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	p.USDCReserve = xPrime
	p.ShareReserve = yPrime
	p.TotalSharesIssued = p.TotalSharesIssued.Sub(sharesIn)
	if err := e.store.Put(ledger.KeyPool(marketID, outcome), *p); err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	bal = bal.Sub(sharesIn)
	if err := e.store.Put(userSharesKey(marketID, seller, outcome), bal); err != nil {
		return ledger.Zero, ledger.Zero, err
	}

	e.emitter.Emit(ctx, events.New(events.BetPlaced, marketID, seller, map[string]any{
		"amm": true, "outcome": outcome, "shares_in": sharesIn.String(), "usdc_out": usdcOut.String(),
	}))

	// External call last: push usdc_out from contract custody to the seller.
	if err := e.tok.Transfer(ctx, m.TokenAddress, seller, usdcOut); err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	return usdcOut, xPrime, nil
}

// MarginalPrice returns x/y scaled by 10^7 (spec §4.3).
func (e *Engine) MarginalPrice(marketID uint64, outcome uint32) (ledger.Amount, error) {
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return ledger.Zero, err
	}
	return p.USDCReserve.MulInt64(10_000_000).DivFloor(p.ShareReserve), nil
}

// VerifyInvariant checks |x*y - k| <= k/10000 (spec §4.3, §8).
func (e *Engine) VerifyInvariant(marketID uint64, outcome uint32) (bool, error) {
	p, err := e.mustGetPool(marketID, outcome)
	if err != nil {
		return false, err
	}
	product := p.USDCReserve.Mul(p.ShareReserve)
	diff := product.Sub(p.K)
	if diff.IsNegative() {
		diff = ledger.Zero.Sub(diff)
	}
	tolerance := p.K.DivFloor(ledger.NewAmount(InvariantToleranceDenominator))
	return diff.Cmp(tolerance) <= 0, nil
}
