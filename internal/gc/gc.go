// Package gc implements storage garbage collection for resolved markets
// (spec §2's "Storage GC (2%)" line item, detailed in SPEC_FULL.md §12.2),
// grounded on original_source's modules/gc.rs: any caller may collect a
// losing bet record after a long retention window and is told a small
// flat reward amount.
package gc

import (
	"context"

	"github.com/predictiq/engine/internal/bets"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
)

// RetentionSeconds is the minimum age, after resolution, before a losing
// bet record becomes collectible (original_source gc.rs:
// CLEANUP_PERIOD_SECONDS = 15552000, 180 days).
const RetentionSeconds = 15_552_000

// CleanupReward is the flat reward amount CollectBet returns to the caller
// (original_source gc.rs: CLEANUP_REWARD = 100). CollectBet moves no tokens
// and does not debit fee revenue; it only reports this amount.
var CleanupReward = ledger.NewAmount(100)

// Collector deletes stale bet records on a resolved market's losing
// outcomes.
type Collector struct {
	store    *ledger.Store
	registry *market.Registry
	audit    *AuditLog // optional side channel; nil disables it
}

// New wires a Collector with no audit side channel.
func New(store *ledger.Store, registry *market.Registry) *Collector {
	return &Collector{store: store, registry: registry}
}

// WithAuditLog attaches an optional Postgres audit trail to c.
func (c *Collector) WithAuditLog(audit *AuditLog) *Collector {
	c.audit = audit
	return c
}

// CollectBet removes a resolved market's bet record for bettor once
// RetentionSeconds have elapsed since resolution, returning CleanupReward.
// ClaimWinnings deletes a winner's bet record the moment it pays out, so a
// surviving record on the winning outcome this long after resolution is an
// unclaimed payout, not abandonment. Collecting it would destroy that
// payout, so only a losing bettor's never-claimable record is collectible.
func (c *Collector) CollectBet(marketID uint64, bettor string, now uint64) (ledger.Amount, error) {
	m, err := c.registry.MustGet(marketID)
	if err != nil {
		return ledger.Zero, err
	}
	if m.Status != market.Resolved || m.ResolvedAt == nil {
		return ledger.Zero, ledger.ErrMarketNotResolved
	}
	if now-*m.ResolvedAt < RetentionSeconds {
		return ledger.Zero, ledger.ErrResolutionNotReady
	}

	key := ledger.KeyBet(marketID, bettor)
	var b bets.Bet
	has, err := c.store.Get(key, &b)
	if err != nil {
		return ledger.Zero, err
	}
	if !has {
		return ledger.Zero, ledger.ErrBetNotFound
	}
	if m.WinningOutcome != nil && b.Outcome == *m.WinningOutcome {
		return ledger.Zero, ledger.ErrNoWinnings
	}
	if err := c.store.Delete(key); err != nil {
		return ledger.Zero, err
	}
	if err := c.audit.RecordCollection(context.Background(), marketID, bettor, now, CleanupReward.String()); err != nil {
		// The audit trail is advisory; a write failure here must never
		// unwind the reclaim that has already committed.
		_ = err
	}
	return CleanupReward, nil
}
