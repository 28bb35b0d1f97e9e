// Package voting implements snapshot-weighted dispute voting (spec §4.6),
// grounded on original_source's modules/voting.rs for cast_vote/get_tally
// and modules/resolution.rs's calculate_voting_outcome for the
// supermajority computation, with the balance-snapshot check the spec
// describes in more depth than the Rust source (spec §4.6's "fallback ...
// lock weight tokens ... until unlock_tokens").
package voting

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// MajorityThresholdBps is the 60% supermajority required to resolve a
// disputed market (original_source resolution.rs: MAJORITY_THRESHOLD_BPS
// = 6000).
const MajorityThresholdBps = 6000

// CancelThresholdBps is the 75% supermajority required to cancel via
// community vote (original_source cancellation.rs: FAILED_MARKET_THRESHOLD_BPS
// = 7500).
const CancelThresholdBps = 7500

// Vote is spec §3's Vote record.
type Vote struct {
	MarketID uint64
	Voter    string
	Outcome  uint32
	Weight   ledger.Amount
}

// Engine persists votes and tallies through the store.
type Engine struct {
	store   *ledger.Store
	emitter events.Emitter
}

// New wires a voting Engine.
func New(store *ledger.Store, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, emitter: emitter}
}

// SnapshotBalance resolves a voter's governance-token balance at a given
// ledger sequence. Injected, since the governance token and its
// historical-balance index are external collaborators (spec §4.6:
// "snapshot ledger is the governance-token balance reference"); nil means
// the snapshot lookup is unavailable and the fallback lock-token path
// applies.
type SnapshotBalance func(ctx context.Context, voter string, snapshotLedger uint32) (ledger.Amount, bool, error)

// CastVote records one (market_id, voter) vote. numOutcomes bounds the
// valid non-sentinel outcome range. weight is validated against the
// snapshot balance when snapshotFn is non-nil and returns a definite
// answer; otherwise the caller (the engine façade's CastVote) is expected
// to have already locked weight tokens and this call proceeds unchecked,
// matching spec §4.6's stated fallback.
func (e *Engine) CastVote(ctx context.Context, snapshotFn SnapshotBalance, marketID uint64, snapshotLedger uint32, numOutcomes uint32, voter string, outcome uint32, weight ledger.Amount) error {
	if weight.IsZero() || weight.IsNegative() {
		return ledger.ErrInvalidBetAmount
	}
	if outcome != ledger.CancelOutcomeSentinel && outcome >= numOutcomes {
		return ledger.ErrInvalidOutcome
	}

	key := ledger.KeyVote(marketID, voter)
	has, err := e.store.Has(key)
	if err != nil {
		return err
	}
	if has {
		return ledger.ErrAlreadyVoted
	}

	if snapshotFn != nil {
		bal, ok, err := snapshotFn(ctx, voter, snapshotLedger)
		if err != nil {
			return err
		}
		if ok && weight.Cmp(bal) > 0 {
			return ledger.ErrInsufficientVotingWeight
		}
	}

	v := Vote{MarketID: marketID, Voter: voter, Outcome: outcome, Weight: weight}
	if err := e.store.Put(key, v); err != nil {
		return err
	}

	tallyKey := ledger.KeyVoteTally(marketID, outcome)
	var tally ledger.Amount
	if _, err := e.store.Get(tallyKey, &tally); err != nil {
		return err
	}
	tally = tally.Add(weight)
	if err := e.store.Put(tallyKey, tally); err != nil {
		return err
	}

	e.emitter.Emit(ctx, events.New(events.VoteCast, marketID, voter, map[string]any{
		"outcome": outcome, "weight": weight.String(),
	}))
	return nil
}

// Tally returns tally[(market_id, outcome)].
func (e *Engine) Tally(marketID uint64, outcome uint32) (ledger.Amount, error) {
	var t ledger.Amount
	_, err := e.store.Get(ledger.KeyVoteTally(marketID, outcome), &t)
	return t, err
}

// Outcome computes the voting-outcome winner over the real (non-sentinel)
// outcomes [0, numOutcomes): T = sum of tallies; o* = argmax, ties broken
// by lower index; succeeds iff tally[o*]/T >= 0.60 (spec §4.6).
func (e *Engine) Outcome(marketID uint64, numOutcomes uint32) (winner uint32, ok bool, err error) {
	var total ledger.Amount
	best := ledger.Zero
	var bestOutcome uint32
	haveBest := false

	for o := uint32(0); o < numOutcomes; o++ {
		t, err := e.Tally(marketID, o)
		if err != nil {
			return 0, false, err
		}
		total = total.Add(t)
		if !haveBest || t.Cmp(best) > 0 {
			best = t
			bestOutcome = o
			haveBest = true
		}
	}
	if total.IsZero() {
		return 0, false, nil
	}
	// tally[o*]/T >= 0.60  <=>  tally[o*]*10000 >= T*6000
	lhs := best.MulInt64(10000)
	rhs := total.MulInt64(MajorityThresholdBps)
	if lhs.Cmp(rhs) >= 0 {
		return bestOutcome, true, nil
	}
	return 0, false, nil
}

// CancelRatioMet reports whether the cancel-sentinel tally meets the 75%
// community-cancel threshold against all votes cast (real outcomes plus
// cancel votes), spec §4.7.
func (e *Engine) CancelRatioMet(marketID uint64, numOutcomes uint32) (bool, error) {
	cancelTally, err := e.Tally(marketID, ledger.CancelOutcomeSentinel)
	if err != nil {
		return false, err
	}
	total := cancelTally
	for o := uint32(0); o < numOutcomes; o++ {
		t, err := e.Tally(marketID, o)
		if err != nil {
			return false, err
		}
		total = total.Add(t)
	}
	if total.IsZero() {
		return false, nil
	}
	lhs := cancelTally.MulInt64(10000)
	rhs := total.MulInt64(CancelThresholdBps)
	return lhs.Cmp(rhs) >= 0, nil
}

// LockedTokens is spec §3's locked-governance-token record, used by the
// unlock_tokens fallback path.
type LockedTokens struct {
	Voter      string
	MarketID   uint64
	Amount     ledger.Amount
	UnlockTime uint64
}

// UnlockGraceSeconds is the fixed grace period after the resolution
// deadline before locked tokens may be withdrawn (spec §4.6).
const UnlockGraceSeconds = 86400

func lockedKey(marketID uint64, voter string) []byte {
	return ledger.KeyVote(marketID, "locked:"+voter)
}

// LockTokens is the fallback path taken when a snapshot lookup is
// unavailable: weight tokens are held by the engine until unlock_tokens
// is callable.
func (e *Engine) LockTokens(marketID uint64, voter string, amount ledger.Amount, unlockTime uint64) error {
	return e.store.Put(lockedKey(marketID, voter), LockedTokens{Voter: voter, MarketID: marketID, Amount: amount, UnlockTime: unlockTime})
}

// UnlockTokens returns the locked amount once now has passed unlock_time,
// deleting the record so a second call reports nothing outstanding.
func (e *Engine) UnlockTokens(marketID uint64, voter string, now uint64) (ledger.Amount, error) {
	key := lockedKey(marketID, voter)
	var lt LockedTokens
	ok, err := e.store.Get(key, &lt)
	if err != nil {
		return ledger.Zero, err
	}
	if !ok {
		return ledger.Zero, nil
	}
	if now < lt.UnlockTime {
		return ledger.Zero, ledger.ErrVotingNotStarted
	}
	if err := e.store.Delete(key); err != nil {
		return ledger.Zero, err
	}
	return lt.Amount, nil
}
