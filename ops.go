package engine

import (
	"context"

	"github.com/predictiq/engine/internal/circuitbreaker"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/voting"
)

// GetAdmin is a pure read (spec §6: get_admin()).
func (e *Engine) GetAdmin() (string, bool, error) { return e.Admin.GetAdmin() }

// SetBaseFee is admin-only (spec §6: set_base_fee(amount)).
func (e *Engine) SetBaseFee(caller string, bps int64) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Fees.SetBaseFee(bps)
}

// ClaimReferralRewards is spec §6's claim_referral_rewards(addr, token);
// the actual transfer is made through the caller-supplied tok argument.
func (e *Engine) ClaimReferralRewards(ctx context.Context, tok TokenTransferer, addr, token string) (Amount, error) {
	amt, err := e.Fees.ClaimReferralRewards(addr, token)
	if err != nil {
		return ledger.Zero, err
	}
	if amt.IsZero() {
		return amt, nil
	}
	if err := tok.Transfer(ctx, token, addr, amt); err != nil {
		return ledger.Zero, err
	}
	return amt, nil
}

// TokenTransferer is the minimal slice of token.Token needed to pay out a
// referral claim, named locally so callers don't need the internal/token
// import just to call ClaimReferralRewards.
type TokenTransferer interface {
	Transfer(ctx context.Context, from, to string, amount Amount) error
}

// SetGuardians is admin-only (spec §6).
func (e *Engine) SetGuardians(caller string, guardians []string) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Recovery.SetGuardians(guardians)
}

// SignResetAdmin is spec §4.8/§6's sign_reset_admin.
func (e *Engine) SignResetAdmin(guardian, newAdmin string, now uint64) error {
	return e.Recovery.SignResetAdmin(guardian, newAdmin, now)
}

// FinalizeRecovery is spec §4.8/§6's finalize_recovery().
func (e *Engine) FinalizeRecovery(ctx context.Context, now uint64) (string, error) {
	newAdmin, err := e.Recovery.FinalizeRecovery(ctx, now)
	if err != nil {
		return "", err
	}
	e.logger.Info("admin rotated via guardian recovery", "new_admin", newAdmin)
	return newAdmin, nil
}

// SetCircuitBreaker is admin-only (spec §6: set_circuit_breaker(state)).
func (e *Engine) SetCircuitBreaker(caller string, state circuitbreaker.State) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Breaker.Set(context.Background(), state)
}

// Pause is guardian-only (spec §6).
func (e *Engine) Pause(caller string) error {
	if err := e.Admin.RequireGuardian(caller); err != nil {
		return err
	}
	return e.Breaker.Pause(context.Background())
}

// Unpause is guardian-only (spec §6).
func (e *Engine) Unpause(caller string) error {
	if err := e.Admin.RequireGuardian(caller); err != nil {
		return err
	}
	return e.Breaker.Unpause(context.Background())
}

// SetOracleResult is admin-only (spec §6: set_oracle_result(id, outcome)).
func (e *Engine) SetOracleResult(ctx context.Context, caller string, marketID uint64, outcome uint32, seq uint32) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Oracle.SetResult(ctx, marketID, outcome, seq, caller)
}

// CastVote is spec §4.6/§6's cast_vote. No real governance-token snapshot
// source is wired (spec §4.6's primary path), so every vote here takes the
// stated fallback: weight is locked via LockTokens before it is tallied,
// redeemable through unlock_tokens once the market's resolution deadline
// plus voting.UnlockGraceSeconds has passed, rather
// than tallying a caller-supplied weight with nothing backing it.
func (e *Engine) CastVote(ctx context.Context, voter string, marketID uint64, outcome uint32, weight Amount) error {
	m, err := e.Registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status != Disputed {
		return ledger.ErrMarketNotDisputed
	}
	unlockTime := m.ResolutionDeadline + voting.UnlockGraceSeconds
	if err := e.Voting.LockTokens(marketID, voter, weight, unlockTime); err != nil {
		return err
	}
	return e.Voting.CastVote(ctx, nil, marketID, derefU32(m.DisputeSnapshotLedger), uint32(len(m.Options)), voter, outcome, weight)
}

func derefU32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

// UnlockTokens is spec §4.6/§6's unlock_tokens.
func (e *Engine) UnlockTokens(voter string, marketID uint64, now uint64) (Amount, error) {
	return e.Voting.UnlockTokens(marketID, voter, now)
}

// FileDispute is spec §4.5/§6's file_dispute.
func (e *Engine) FileDispute(ctx context.Context, actor string, marketID uint64, now uint64, seq uint32) error {
	return e.Resolver.FileDispute(ctx, marketID, now, seq, actor)
}

// AttemptOracleResolution is spec §4.5/§6's attempt_oracle_resolution.
func (e *Engine) AttemptOracleResolution(ctx context.Context, marketID uint64, now uint64) error {
	return e.Resolver.AttemptOracleResolution(ctx, marketID, now)
}

// FinalizeResolution is spec §4.5/§6's finalize_resolution.
func (e *Engine) FinalizeResolution(ctx context.Context, marketID uint64, now uint64) error {
	return e.Resolver.FinalizeResolution(ctx, marketID, now)
}

// ResolveMarket is the admin-override spec §4.5/§6's resolve_market.
func (e *Engine) ResolveMarket(ctx context.Context, caller string, marketID uint64, outcome uint32, now uint64) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Resolver.ResolveMarket(ctx, marketID, outcome, now)
}

// CancelMarketAdmin is admin-only (spec §4.7/§6). forCause forfeits the
// market's creation deposit to fee revenue instead of refunding it to the
// creator (SPEC_FULL.md §12.3).
func (e *Engine) CancelMarketAdmin(ctx context.Context, caller string, marketID uint64, forCause bool) error {
	if err := e.Admin.RequireAdmin(caller); err != nil {
		return err
	}
	return e.Cancel.CancelMarketAdmin(ctx, marketID, forCause)
}

// CancelMarketVote is spec §4.7/§6's cancel_market_vote.
func (e *Engine) CancelMarketVote(ctx context.Context, marketID uint64) error {
	return e.Cancel.CancelMarketVote(ctx, marketID)
}

// WithdrawRefund is spec §4.7/§6's withdraw_refund.
func (e *Engine) WithdrawRefund(ctx context.Context, bettor string, marketID uint64) (Amount, error) {
	return e.Cancel.WithdrawRefund(ctx, bettor, marketID)
}

// GetBuyPrice quotes Buy without mutating state (spec §6: read-only
// quote_buy / get_buy_price).
func (e *Engine) GetBuyPrice(marketID uint64, outcome uint32, usdcIn Amount) (Amount, error) {
	return e.AMM.QuoteBuy(marketID, outcome, usdcIn)
}

// QuoteSell quotes Sell without mutating state.
func (e *Engine) QuoteSell(marketID uint64, outcome uint32, sharesIn Amount) (Amount, error) {
	return e.AMM.QuoteSell(marketID, outcome, sharesIn)
}

// GetUserShares is a pure read (spec §6: get_user_shares).
func (e *Engine) GetUserShares(marketID uint64, user string, outcome uint32) (Amount, error) {
	return e.AMM.GetUserShares(marketID, user, outcome)
}

// GetAMMPool is a pure read (spec §6: get_amm_pool).
func (e *Engine) GetAMMPool(marketID uint64, outcome uint32) (*Pool, bool, error) {
	return e.AMM.GetPool(marketID, outcome)
}

// VerifyPoolInvariant is spec §6/§8's verify_pool_invariant.
func (e *Engine) VerifyPoolInvariant(marketID uint64, outcome uint32) (bool, error) {
	return e.AMM.VerifyInvariant(marketID, outcome)
}

// MarginalPrice returns the current marginal price for (market, outcome).
func (e *Engine) MarginalPrice(marketID uint64, outcome uint32) (Amount, error) {
	return e.AMM.MarginalPrice(marketID, outcome)
}

// CollectGarbage is SPEC_FULL.md §12.2's storage GC, open to any caller.
func (e *Engine) CollectGarbage(marketID uint64, bettor string, now uint64) (Amount, error) {
	return e.GC.CollectBet(marketID, bettor, now)
}

// DetectClawback wires SPEC_FULL.md §12.5's clawback path: on detection it
// auto-cancels the market (spec §4.11).
func (e *Engine) DetectClawback(ctx context.Context, detector *ledger.ClawbackDetector, contractAddress string, marketID uint64, bookedTotal Amount) (bool, error) {
	clawed, err := detector.Detect(ctx, contractAddress, bookedTotal)
	if err != nil {
		return false, err
	}
	if clawed {
		if err := e.Cancel.CancelMarketClawback(ctx, marketID); err != nil {
			return true, err
		}
	}
	return clawed, nil
}
