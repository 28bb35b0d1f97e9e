// Package circuitbreaker implements the engine's global kill-switch (spec
// §4.9), grounded on jbrackens-AttaboyGO's internal/guard.CircuitBreaker
// (mutex-protected state map) generalized from per-key circuits to the
// single global singleton the original Rust circuit_breaker.rs models, and
// on original_source's modules/circuit_breaker.rs for the exact state set
// and gating rules.
package circuitbreaker

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// State is one of the four breaker states (spec §3 "Circuit-breaker
// state. Global singleton.").
type State int

const (
	Closed State = iota
	Open
	HalfOpen
	Paused
)

// autoTripThreshold is the monitored-error-counter trigger (spec §4.9: "a
// monitored error counter exceeding 10 flips the state to Open").
const autoTripThreshold = 10

// Breaker reads and writes the global circuit-breaker state and the
// monitored failure counter through the store — there is no in-memory
// cache, consistent with spec §9's "Global mutable state" note.
type Breaker struct {
	store   *ledger.Store
	emitter events.Emitter
}

// New wires a Breaker to its store and event emitter.
func New(store *ledger.Store, emitter events.Emitter) *Breaker {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Breaker{store: store, emitter: emitter}
}

func (b *Breaker) get() (State, error) {
	var s State
	ok, err := b.store.Get(ledger.KeyCircuitBreakerState(), &s)
	if err != nil {
		return Closed, err
	}
	if !ok {
		return Closed, nil
	}
	return s, nil
}

// errorCounterKey is distinct from the state key but lives in the same
// family byte range via a package-local suffix, since spec does not name a
// dedicated key family for the monitored counter (it is implementation
// bookkeeping supporting the auto-trip rule, not part of the durable
// contract in §6).
func errorCounterKey() []byte {
	k := append([]byte{}, ledger.KeyCircuitBreakerState()...)
	return append(k, 0xFE)
}

// Set is the admin-only transition to Closed, Open, or HalfOpen. Paused is
// reached only through Pause/Unpause (guardian-only), matching spec §4.9:
// "Admin may set {Closed, Open, HalfOpen}. Guardian may Pause/Unpause."
func (b *Breaker) Set(ctx context.Context, state State) error {
	if state == Paused {
		return ledger.ErrNotAuthorized
	}
	if err := b.store.Put(ledger.KeyCircuitBreakerState(), state); err != nil {
		return err
	}
	b.emitter.Emit(ctx, events.New(events.CircuitBreakerUpdate, events.GlobalMarketID, "", map[string]any{"state": state}))
	return nil
}

// Pause moves the breaker to Paused unconditionally (guardian-only at the
// engine-façade authorization layer).
func (b *Breaker) Pause(ctx context.Context) error {
	if err := b.store.Put(ledger.KeyCircuitBreakerState(), Paused); err != nil {
		return err
	}
	b.emitter.Emit(ctx, events.New(events.ContractPaused, events.GlobalMarketID, "", nil))
	return nil
}

// Unpause moves the breaker back to Closed.
func (b *Breaker) Unpause(ctx context.Context) error {
	if err := b.store.Put(ledger.KeyCircuitBreakerState(), Closed); err != nil {
		return err
	}
	b.emitter.Emit(ctx, events.New(events.ContractUnpaused, events.GlobalMarketID, "", nil))
	return nil
}

// RequireClosed blocks when the breaker is Open or Paused.
func (b *Breaker) RequireClosed() error {
	s, err := b.get()
	if err != nil {
		return err
	}
	if s == Open || s == Paused {
		return ledger.ErrCircuitBreakerOpen
	}
	return nil
}

// RequireNotPausedForHighRisk blocks only when Paused — Open still permits
// high-risk operations to fail for other reasons but is not itself a
// high-risk gate (spec §4.9 distinguishes the two predicates explicitly).
func (b *Breaker) RequireNotPausedForHighRisk() error {
	s, err := b.get()
	if err != nil {
		return err
	}
	if s == Paused {
		return ledger.ErrContractPaused
	}
	return nil
}

// RecordFailure increments the monitored error counter and auto-trips the
// breaker to Open, emitting cb_auto, once the threshold is exceeded.
func (b *Breaker) RecordFailure(ctx context.Context) error {
	var count int
	_, err := b.store.Get(errorCounterKey(), &count)
	if err != nil {
		return err
	}
	count++
	if err := b.store.Put(errorCounterKey(), count); err != nil {
		return err
	}
	if count > autoTripThreshold {
		if err := b.store.Put(ledger.KeyCircuitBreakerState(), Open); err != nil {
			return err
		}
		b.emitter.Emit(ctx, events.New(events.CBAuto, events.GlobalMarketID, "", map[string]any{"count": count}))
	}
	return nil
}

// ResetFailures zeroes the monitored error counter, typically called after
// an administrative Set back to Closed.
func (b *Breaker) ResetFailures() error {
	return b.store.Put(errorCounterKey(), 0)
}

// Get returns the current state for read-only inspection.
func (b *Breaker) Get() (State, error) { return b.get() }
