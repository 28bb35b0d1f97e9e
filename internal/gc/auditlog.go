package gc

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AuditLog optionally mirrors deleted-bet records to a Postgres table so an
// operator can audit what storage GC reclaimed after the fact. Consensus
// never depends on this: a nil *sqlx.DB degrades every call to a no-op,
// same as the rest of this package treats persistence failures outside the
// KV store as non-fatal to the reclaim itself.
//
// Grounded on the teacher's internal/repository/bet_repo.go, which uses the
// same db *sqlx.DB field and NamedExecContext idiom against a *sql.Tx-backed
// transaction.
type AuditLog struct {
	db *sqlx.DB
}

// NewAuditLog wires an AuditLog. db may be nil to disable the side channel.
func NewAuditLog(db *sqlx.DB) *AuditLog { return &AuditLog{db: db} }

type collectedBetRow struct {
	MarketID    uint64 `db:"market_id"`
	Bettor      string `db:"bettor"`
	CollectedAt uint64 `db:"collected_at"`
	Reward      string `db:"reward"`
}

// RecordCollection appends one row to the gc_audit_log table. A nil AuditLog
// or nil underlying db is a silent no-op.
func (a *AuditLog) RecordCollection(ctx context.Context, marketID uint64, bettor string, collectedAt uint64, reward string) error {
	if a == nil || a.db == nil {
		return nil
	}
	const query = `
		INSERT INTO gc_audit_log (market_id, bettor, collected_at, reward)
		VALUES (:market_id, :bettor, :collected_at, :reward)`
	row := collectedBetRow{MarketID: marketID, Bettor: bettor, CollectedAt: collectedAt, Reward: reward}
	if _, err := a.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("gc.AuditLog.RecordCollection: %w", err)
	}
	return nil
}
