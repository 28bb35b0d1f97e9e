// Package recovery implements guardian-threshold admin recovery (spec
// §4.8), grounded on original_source's modules/guardians.rs for the exact
// 3-of-5, 72h-timelock constants, canonicalizing over the superseded
// governance.rs model per spec §9's Open Questions resolution.
package recovery

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// RequiredGuardians is the approval threshold (original_source
// guardians.rs: REQUIRED_GUARDIANS = 3).
const RequiredGuardians = 3

// TotalGuardians is the fixed guardian-set size (original_source
// guardians.rs: TOTAL_GUARDIANS = 5).
const TotalGuardians = 5

// TimelockSeconds is the 72h delay between the first guardian signature
// (InitiatedAt) and finalization (original_source guardians.rs: TIMELOCK_SECONDS = 259200).
const TimelockSeconds = 259200

// State is spec §3's Recovery state record.
type State struct {
	NewAdmin    string
	Approvals   map[string]bool
	InitiatedAt uint64
}

// Engine manages the guardian set and the single active recovery proposal.
type Engine struct {
	store   *ledger.Store
	emitter events.Emitter
}

// New wires a recovery Engine.
func New(store *ledger.Store, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Engine{store: store, emitter: emitter}
}

// SetGuardians is admin-only; requires exactly TotalGuardians addresses
// (spec §6: "set_guardians(seq<address>) -> Result<()> (admin; len=5)").
func (e *Engine) SetGuardians(guardians []string) error {
	if len(guardians) != TotalGuardians {
		return ledger.ErrInsufficientGuardians
	}
	return e.store.Put(ledger.KeyGuardianSet(), guardians)
}

// Guardians returns the current guardian set.
func (e *Engine) Guardians() ([]string, error) {
	var g []string
	_, err := e.store.Get(ledger.KeyGuardianSet(), &g)
	return g, err
}

func (e *Engine) isGuardian(guardians []string, addr string) bool {
	for _, g := range guardians {
		if g == addr {
			return true
		}
	}
	return false
}

func (e *Engine) getState() (*State, bool, error) {
	var s State
	ok, err := e.store.Get(ledger.KeyRecovery(), &s)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &s, true, nil
}

// SignResetAdmin is spec §4.8's sign_reset_admin: the first signature
// creates the proposal; subsequent signatures must target the same
// new_admin; each guardian counts at most once.
func (e *Engine) SignResetAdmin(guardian, newAdmin string, now uint64) error {
	guardians, err := e.Guardians()
	if err != nil {
		return err
	}
	if !e.isGuardian(guardians, guardian) {
		return ledger.ErrNotAuthorized
	}

	state, ok, err := e.getState()
	if err != nil {
		return err
	}
	if !ok {
		state = &State{NewAdmin: newAdmin, Approvals: map[string]bool{}, InitiatedAt: now}
	} else if state.NewAdmin != newAdmin {
		return ledger.ErrRecoveryAlreadyActive
	}

	if state.Approvals == nil {
		state.Approvals = map[string]bool{}
	}
	state.Approvals[guardian] = true
	return e.store.Put(ledger.KeyRecovery(), *state)
}

// IsRecoveryActive reports |approvals| >= RequiredGuardians.
func (e *Engine) IsRecoveryActive() (bool, error) {
	state, ok, err := e.getState()
	if err != nil || !ok {
		return false, err
	}
	return len(state.Approvals) >= RequiredGuardians, nil
}

// GetRecoveryState is a pure read.
func (e *Engine) GetRecoveryState() (*State, bool, error) { return e.getState() }

// FinalizeRecovery requires |approvals| >= RequiredGuardians AND now -
// initiated_at >= TimelockSeconds; on success it rotates the admin and
// clears the proposal.
func (e *Engine) FinalizeRecovery(ctx context.Context, now uint64) (string, error) {
	state, ok, err := e.getState()
	if err != nil {
		return "", err
	}
	if !ok || len(state.Approvals) < RequiredGuardians {
		return "", ledger.ErrRecoveryNotActive
	}
	if now-state.InitiatedAt < TimelockSeconds {
		return "", ledger.ErrRecoveryTimelockNotExpired
	}
	newAdmin := state.NewAdmin
	if err := e.store.Put(ledger.KeyAdmin(), newAdmin); err != nil {
		return "", err
	}
	if err := e.store.Delete(ledger.KeyRecovery()); err != nil {
		return "", err
	}
	return newAdmin, nil
}
