// Package events implements the engine's topic-structured event emitter
// (spec §2, §6: "Topic schema is (event_name, market_id, subject_address),
// payload varies"), grounded on the Rust original's modules/events.rs
// (referenced by oracles.rs's emit_oracle_result_set) and generalized from
// the teacher's internal/ws broadcast fan-out without taking on its
// websocket transport, which is out of scope per spec §1.
package events

import (
	"context"

	"github.com/google/uuid"
)

// Name enumerates the canonical event names from spec §6.
type Name string

const (
	MarketCreated        Name = "market_created"
	BetPlaced            Name = "bet_placed"
	WinningsClaimed      Name = "winnings_claimed"
	MarketDisputed       Name = "market_disputed"
	VoteCast             Name = "vote_cast"
	OracleResultSet      Name = "oracle_result_set"
	OracleResolved       Name = "oracle_resolved"
	MarketFinalized      Name = "market_finalized"
	DisputeResolved      Name = "dispute_resolved"
	MarketResolved       Name = "market_resolved"
	MarketCancelled      Name = "market_cancelled"
	MarketCancelledVote  Name = "market_cancelled_vote"
	RefundWithdrawn      Name = "refund_withdrawn"
	CircuitBreakerUpdate Name = "circuit_breaker_updated"
	CBAuto               Name = "cb_auto"
	ContractPaused       Name = "contract_paused"
	ContractUnpaused     Name = "contract_unpaused"
	FeeCollected         Name = "fee_collected"
)

// GlobalMarketID is used by events not tied to a specific market (spec §6:
// "Global events ... use market_id = 0").
const GlobalMarketID uint64 = 0

// Event is one emission. Payload is a free-form map, since each event name
// carries a different shape (spec: "payload varies").
type Event struct {
	ID       uuid.UUID
	Name     Name
	MarketID uint64
	Subject  string
	Payload  map[string]any
}

// New builds an Event with a fresh correlation ID.
func New(name Name, marketID uint64, subject string, payload map[string]any) Event {
	return Event{ID: uuid.New(), Name: name, MarketID: marketID, Subject: subject, Payload: payload}
}

// Emitter publishes events. Implementations must not block the caller's
// transaction on slow consumers; the in-process Buffer and Fanout
// implementations in buffer.go are both non-blocking by construction.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// NopEmitter discards everything. Useful as a safe zero value.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
