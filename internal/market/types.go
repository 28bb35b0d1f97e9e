// Package market implements the market registry (spec §4.1) and the
// resolution state machine (spec §4.5), grounded on the teacher's
// internal/domain/market.go (pool/odds bookkeeping shape, generalized from
// binary UP/DOWN to N discrete outcomes) and internal/service/market_service.go
// (CRUD + status-transition discipline) and
// internal/service/resolution_service.go (the oracle/dispute/vote
// branching later reused in resolution.go), plus original_source's
// modules/markets.rs and modules/resolution.rs for exact constants.
package market

import "github.com/predictiq/engine/internal/ledger"

// Status is the market lifecycle state (spec §3).
type Status int

const (
	Active Status = iota
	PendingResolution
	Disputed
	Resolved
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case PendingResolution:
		return "pending_resolution"
	case Disputed:
		return "disputed"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PayoutMode selects push (contract iterates winners) vs pull (winners
// claim individually). Registry.Create always sets Pull; nothing in this
// module selects Push or reads MaxPushPayoutWinners, and no push payout
// path exists.
type PayoutMode int

const (
	Pull PayoutMode = iota
	Push
)

// MaxPushPayoutWinners is the push-mode winner-count threshold
// (original_source types.rs: MAX_PUSH_PAYOUT_WINNERS = 50); no code reads it.
const MaxPushPayoutWinners = 50

// MaxOutcomesPerMarket bounds |options| (spec §3: "1 < len(options) <=
// 100"; original_source types.rs: MAX_OUTCOMES_PER_MARKET = 100).
const MaxOutcomesPerMarket = 100

// OracleConfig mirrors spec §3's oracle_config record.
type OracleConfig struct {
	OracleAddress string
	FeedID        string
	MinResponses  *uint32
}

// Market is the full persisted record (spec §3 Market table).
type Market struct {
	ID                        uint64
	Creator                   string
	Description               string
	Options                   []string
	Status                    Status
	Deadline                  uint64
	ResolutionDeadline        uint64
	WinningOutcome            *uint32
	PendingResolutionTime     *uint64
	DisputeTimestamp          *uint64
	DisputeSnapshotLedger     *uint32
	TotalStaked               ledger.Amount
	OutcomeStakes             map[uint32]ledger.Amount
	TokenAddress              string
	Tier                      ledger.Tier
	OracleConfig              OracleConfig
	ParentID                  uint64
	ParentOutcomeIdx          uint32
	PayoutMode                PayoutMode
	CreationDeposit           ledger.Amount
	ResolvedAt                *uint64
}

// IsConditional reports whether this market requires a parent market
// resolution before accepting bets (spec §3: "parent_id = 0 =>
// independent").
func (m *Market) IsConditional() bool { return m.ParentID != 0 }
