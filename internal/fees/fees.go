// Package fees implements the base-fee + tier-multiplier fee engine and
// referral accrual (spec §4.10), grounded on original_source's
// modules/fees.rs for the exact bps arithmetic and on the teacher's
// market.go CommissionRate field for the "single configurable rate read
// through a narrow accessor" shape.
package fees

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// tierMultiplierBps returns the tier's multiplier in basis points of the
// base fee: Basic 100% (10000), Pro 75% (7500), Institutional 50% (5000).
func tierMultiplierBps(t ledger.Tier) int64 {
	switch t {
	case ledger.Pro:
		return 7500
	case ledger.Institutional:
		return 5000
	default:
		return 10000
	}
}

// ReferralShareBps is the referrer's cut of the fee (10%, spec §4.2/§4.10).
const ReferralShareBps = 1000

// maxBaseFeeBps caps set_base_fee inputs (spec §7: FeeTooHigh guard). 10%
// is a generous but finite ceiling consistent with "basis points" staying
// meaningfully below 1.0.
const maxBaseFeeBps = 1000

// Engine reads/writes the base fee singleton and the per-token fee-revenue
// and referral-balance key families.
type Engine struct {
	store   *ledger.Store
	emitter events.Emitter
}

// New wires a fee Engine to its store and emitter.
func New(store *ledger.Store, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, emitter: emitter}
}

// SetBaseFee is admin-only at the engine-façade authorization layer; here
// it only enforces the FeeTooHigh bound.
func (e *Engine) SetBaseFee(bps int64) error {
	if bps < 0 || bps > maxBaseFeeBps {
		return ledger.ErrFeeTooHigh
	}
	return e.store.Put(ledger.KeyBaseFee(), bps)
}

// BaseFee returns the current base fee in basis points.
func (e *Engine) BaseFee() (int64, error) {
	var bps int64
	_, err := e.store.Get(ledger.KeyBaseFee(), &bps)
	return bps, err
}

// CalculateTieredFee computes floor(amount * base_fee_bps * tier_mult_bps /
// 10000 / 10000), matching spec §4.2's "calculate_tiered_fee(amount,
// tier)": base_fee_bps and tier_mult_bps are both expressed out of 10000
// (e.g. 100 = 1%, 7500 = 75%), so the fee fraction is their product over
// 10000*10000.
func (e *Engine) CalculateTieredFee(amount ledger.Amount, tier ledger.Tier) (ledger.Amount, error) {
	baseBps, err := e.BaseFee()
	if err != nil {
		return ledger.Zero, err
	}
	mult := tierMultiplierBps(tier)
	// amount * baseBps * mult / 10000 / 10000, multiplication before division.
	scaled := amount.MulInt64(baseBps).MulInt64(mult)
	step1 := scaled.DivFloor(ledger.NewAmount(10000))
	return step1.DivFloor(ledger.NewAmount(10000)), nil
}

// CollectFee records amount into fee_revenue[token] and emits fee_collected.
func (e *Engine) CollectFee(ctx context.Context, token string, amount ledger.Amount) error {
	var revenue ledger.Amount
	if _, err := e.store.Get(ledger.KeyFeeRevenue(token), &revenue); err != nil {
		return err
	}
	revenue = revenue.Add(amount)
	if err := e.store.Put(ledger.KeyFeeRevenue(token), revenue); err != nil {
		return err
	}
	e.emitter.Emit(ctx, events.New(events.FeeCollected, events.GlobalMarketID, token, map[string]any{"amount": amount.String()}))
	return nil
}

// Revenue returns the accrued fee revenue for token.
func (e *Engine) Revenue(token string) (ledger.Amount, error) {
	var revenue ledger.Amount
	_, err := e.store.Get(ledger.KeyFeeRevenue(token), &revenue)
	return revenue, err
}

// AddReferralReward credits referrer's balance with 10% of fee for token
// (spec §4.2: "Accrues referral: reward = calculate_fee(amount) * 10%").
func (e *Engine) AddReferralReward(referrer, token string, fee ledger.Amount) error {
	reward := fee.MulInt64(ReferralShareBps).DivFloor(ledger.NewAmount(10000))
	var bal ledger.Amount
	key := ledger.KeyReferralReward(referrer, token)
	if _, err := e.store.Get(key, &bal); err != nil {
		return err
	}
	bal = bal.Add(reward)
	return e.store.Put(key, bal)
}

// ClaimReferralRewards zeroes the referrer's accrued balance
// for token, returning the amount claimed. Callers are responsible for the
// actual token transfer; this only manages the bookkeeping balance.
func (e *Engine) ClaimReferralRewards(referrer, token string) (ledger.Amount, error) {
	key := ledger.KeyReferralReward(referrer, token)
	var bal ledger.Amount
	if _, err := e.store.Get(key, &bal); err != nil {
		return ledger.Zero, err
	}
	if err := e.store.Put(key, ledger.Zero); err != nil {
		return ledger.Zero, err
	}
	return bal, nil
}
