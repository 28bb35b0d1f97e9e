// Package oracle implements the last-known-outcome oracle adapter (spec
// §4.4), grounded on original_source's modules/oracles.rs: a
// storage-backed mock-ready structure standing in for a real external
// price-feed contract, since the engine's own contract is "read the last
// recorded outcome, populated by admin-only set_oracle_result" regardless
// of how that result ultimately gets there in production.
package oracle

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// Config mirrors spec §3's oracle_config record.
type Config struct {
	OracleAddress string
	FeedID        string
	MinResponses  *uint32
}

// Adapter reads and writes oracle results through the store.
type Adapter struct {
	store   *ledger.Store
	freshness *ledger.OracleFreshness
	emitter events.Emitter
}

// New wires an Adapter.
func New(store *ledger.Store, emitter events.Emitter) *Adapter {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Adapter{store: store, freshness: ledger.NewOracleFreshness(store), emitter: emitter}
}

// GetResult is a pure read of the last-recorded outcome for marketID.
func (a *Adapter) GetResult(marketID uint64) (outcome uint32, ok bool, err error) {
	ok, err = a.store.Get(ledger.KeyOracleResult(marketID), &outcome)
	return outcome, ok, err
}

// SetResult is admin-only at the façade layer. It stamps the current
// ledger sequence for freshness tracking and emits oracle_result_set.
func (a *Adapter) SetResult(ctx context.Context, marketID uint64, outcome uint32, seq uint32, contractAddress string) error {
	if err := a.store.Put(ledger.KeyOracleResult(marketID), outcome); err != nil {
		return err
	}
	if err := a.freshness.RecordUpdate(marketID, seq); err != nil {
		return err
	}
	a.emitter.Emit(ctx, events.New(events.OracleResultSet, marketID, contractAddress, map[string]any{"outcome": outcome}))
	return nil
}

// CheckFreshness rejects a bet submitted in the same ledger sequence an
// oracle result was just written for marketID (spec §5).
func (a *Adapter) CheckFreshness(marketID uint64, seq uint32) error {
	return a.freshness.CheckFresh(marketID, seq)
}

// VerifyHealth reports whether the oracle config looks usable — spec
// §4.4's verify_oracle_health(config) = feed_id != "".
func VerifyHealth(cfg Config) bool { return cfg.FeedID != "" }
