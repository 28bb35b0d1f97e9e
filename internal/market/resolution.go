package market

import (
	"context"

	"github.com/predictiq/engine/internal/circuitbreaker"
	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/oracle"
	"github.com/predictiq/engine/internal/token"
	"github.com/predictiq/engine/internal/voting"
)

// DisputeWindowSeconds is the window, after entering PendingResolution,
// during which file_dispute may be called (original_source resolution.rs:
// DISPUTE_WINDOW_SECONDS = 86400).
const DisputeWindowSeconds = 86400

// VotingPeriodSeconds is the dispute voting window (original_source
// resolution.rs: VOTING_PERIOD_SECONDS = 259200).
const VotingPeriodSeconds = 259200

// Resolver drives the state machine transitions of spec §4.5.
type Resolver struct {
	registry *Registry
	oracleA  *oracle.Adapter
	votingE  *voting.Engine
	breaker  *circuitbreaker.Breaker
	tok      token.Token
	emitter  events.Emitter
}

// NewResolver wires a Resolver. tok refunds a market's creation deposit to
// its creator the moment the market settles normally (SPEC_FULL.md §12.3).
func NewResolver(registry *Registry, oracleA *oracle.Adapter, votingE *voting.Engine, breaker *circuitbreaker.Breaker, tok token.Token, emitter events.Emitter) *Resolver {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Resolver{registry: registry, oracleA: oracleA, votingE: votingE, breaker: breaker, tok: tok, emitter: emitter}
}

// refundCreationDeposit returns m's creation deposit to its creator on a
// normal resolution (SPEC_FULL.md §12.3: forfeiture is reserved for
// cancel_market_admin's forCause path, not ordinary resolution).
func (r *Resolver) refundCreationDeposit(ctx context.Context, m *Market) error {
	if !m.CreationDeposit.IsPositive() {
		return nil
	}
	return r.tok.Transfer(ctx, m.TokenAddress, m.Creator, m.CreationDeposit)
}

// AttemptOracleResolution is spec §4.5's attempt_oracle_resolution.
func (r *Resolver) AttemptOracleResolution(ctx context.Context, marketID uint64, now uint64) error {
	if err := r.breaker.RequireClosed(); err != nil {
		return err
	}
	m, err := r.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status != Active {
		return ledger.ErrMarketNotActive
	}
	if now < m.ResolutionDeadline {
		return ledger.ErrResolutionNotReady
	}
	outcome, ok, err := r.oracleA.GetResult(marketID)
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrOracleFailure
	}
	m.Status = PendingResolution
	m.WinningOutcome = &outcome
	pt := now
	m.PendingResolutionTime = &pt
	if err := r.registry.Put(m); err != nil {
		return err
	}
	r.emitter.Emit(ctx, events.New(events.OracleResolved, marketID, m.Creator, map[string]any{"outcome": outcome}))
	return nil
}

// FileDispute is spec §4.5's file_dispute.
func (r *Resolver) FileDispute(ctx context.Context, marketID uint64, now uint64, seq uint32, actor string) error {
	m, err := r.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status != PendingResolution {
		return ledger.ErrMarketNotPendingResolution
	}
	if m.PendingResolutionTime == nil || now >= *m.PendingResolutionTime+DisputeWindowSeconds {
		return ledger.ErrDisputeWindowClosed
	}
	m.Status = Disputed
	m.DisputeTimestamp = &now
	snap := seq
	m.DisputeSnapshotLedger = &snap
	if err := r.registry.Put(m); err != nil {
		return err
	}
	r.emitter.Emit(ctx, events.New(events.MarketDisputed, marketID, actor, map[string]any{"snapshot_ledger": seq}))
	return nil
}

// FinalizeResolution is spec §4.5's finalize_resolution.
func (r *Resolver) FinalizeResolution(ctx context.Context, marketID uint64, now uint64) error {
	m, err := r.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	switch m.Status {
	case PendingResolution:
		if m.PendingResolutionTime == nil || now < *m.PendingResolutionTime+DisputeWindowSeconds {
			return ledger.ErrDisputeWindowStillOpen
		}
		m.Status = Resolved
		ra := now
		m.ResolvedAt = &ra
		if err := r.registry.Put(m); err != nil {
			return err
		}
		r.emitter.Emit(ctx, events.New(events.MarketFinalized, marketID, m.Creator, map[string]any{"outcome": *m.WinningOutcome}))
		return r.refundCreationDeposit(ctx, m)
	case Disputed:
		if m.DisputeTimestamp == nil || now < *m.DisputeTimestamp+VotingPeriodSeconds {
			return ledger.ErrDisputeWindowStillOpen
		}
		winner, ok, err := r.votingE.Outcome(marketID, uint32(len(m.Options)))
		if err != nil {
			return err
		}
		if !ok {
			return ledger.ErrNoMajorityReached
		}
		m.Status = Resolved
		m.WinningOutcome = &winner
		ra := now
		m.ResolvedAt = &ra
		if err := r.registry.Put(m); err != nil {
			return err
		}
		r.emitter.Emit(ctx, events.New(events.DisputeResolved, marketID, m.Creator, map[string]any{"outcome": winner}))
		return r.refundCreationDeposit(ctx, m)
	case Resolved:
		return ledger.ErrCannotChangeOutcome
	default:
		return ledger.ErrResolutionNotReady
	}
}

// ResolveMarket is the admin-override resolve_market(id, outcome), used
// only after NoMajorityReached (spec §4.5).
func (r *Resolver) ResolveMarket(ctx context.Context, marketID uint64, outcome uint32, now uint64) error {
	m, err := r.registry.MustGet(marketID)
	if err != nil {
		return err
	}
	if m.Status == Resolved {
		return ledger.ErrCannotChangeOutcome
	}
	if outcome >= uint32(len(m.Options)) {
		return ledger.ErrInvalidOutcome
	}
	m.Status = Resolved
	m.WinningOutcome = &outcome
	ra := now
	m.ResolvedAt = &ra
	if err := r.registry.Put(m); err != nil {
		return err
	}
	r.emitter.Emit(ctx, events.New(events.MarketResolved, marketID, m.Creator, map[string]any{"outcome": outcome}))
	return r.refundCreationDeposit(ctx, m)
}
