// Package engine is the top-level façade wiring every component package
// into the external operation surface of spec §6. It is the library's only
// exported entry point; embedders construct one Engine and call its
// methods directly — there is no network listener here (spec §1: the
// cache/HTTP façade, services/api/*, is out of scope).
package engine

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/predictiq/engine/internal/amm"
	"github.com/predictiq/engine/internal/bets"
	"github.com/predictiq/engine/internal/cancellation"
	"github.com/predictiq/engine/internal/circuitbreaker"
	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/fees"
	"github.com/predictiq/engine/internal/gc"
	"github.com/predictiq/engine/internal/ledger"
	"github.com/predictiq/engine/internal/market"
	"github.com/predictiq/engine/internal/oracle"
	"github.com/predictiq/engine/internal/recovery"
	"github.com/predictiq/engine/internal/token"
	"github.com/predictiq/engine/internal/voting"
)

// Re-exported types so embedders do not need to import internal packages
// directly to name a market status, a tier, or an amount.
type (
	Amount       = ledger.Amount
	Tier         = ledger.Tier
	MarketStatus = market.Status
	Market       = market.Market
	Bet          = bets.Bet
	Pool         = amm.Pool
	Vote         = voting.Vote
	Event        = events.Event
	EventName    = events.Name
)

const (
	Active            = market.Active
	PendingResolution = market.PendingResolution
	Disputed          = market.Disputed
	Resolved          = market.Resolved
	Cancelled         = market.Cancelled
	Basic             = ledger.Basic
	Pro               = ledger.Pro
	Institutional     = ledger.Institutional
	CancelOutcome     = ledger.CancelOutcomeSentinel
)

// Engine bundles every component, each constructed against the same Store
// so all reads/writes share one transactional substrate.
type Engine struct {
	Store *ledger.Store

	Admin    *ledger.AdminRegistry
	Breaker  *circuitbreaker.Breaker
	Fees     *fees.Engine
	Registry *market.Registry
	Resolver *market.Resolver
	Bets     *bets.Engine
	AMM      *amm.Engine
	Oracle   *oracle.Adapter
	Voting   *voting.Engine
	Cancel   *cancellation.Engine
	Recovery *recovery.Engine
	GC       *gc.Collector

	emitter events.Emitter
	logger  *slog.Logger
	guard   *ledger.ReentrancyGuard
}

// Deps carries the external collaborators an embedder must supply (spec
// §6: token contract, optional identity verifier).
type Deps struct {
	Token    token.Token
	Identity token.IdentityVerifier // nil defaults to token.AlwaysVerified{}
	Emitter  events.Emitter         // nil defaults to an unbounded events.Buffer
	Logger   *slog.Logger           // nil defaults to slog.Default()
	AuditDB  *sqlx.DB               // nil disables the GC audit-log side channel
}

// New wires every component against store using deps.
func New(store *ledger.Store, deps Deps) *Engine {
	if deps.Identity == nil {
		deps.Identity = token.AlwaysVerified{}
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NewBuffer(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	guard := ledger.NewReentrancyGuard()
	admin := ledger.NewAdminRegistry(store)
	breaker := circuitbreaker.New(store, deps.Emitter)
	feesE := fees.New(store, deps.Emitter)
	registry := market.New(store, deps.Emitter)
	oracleA := oracle.New(store, deps.Emitter)
	votingE := voting.New(store, deps.Emitter)
	resolver := market.NewResolver(registry, oracleA, votingE, breaker, deps.Token, deps.Emitter)
	betsE := bets.New(store, registry, oracleA, feesE, breaker, deps.Identity, deps.Token, guard, deps.Emitter)
	ammE := amm.New(store, registry, deps.Token, deps.Emitter)
	cancelE := cancellation.New(store, registry, votingE, feesE, deps.Token, guard, deps.Emitter)
	recoveryE := recovery.New(store, deps.Emitter)
	gcE := gc.New(store, registry).WithAuditLog(gc.NewAuditLog(deps.AuditDB))

	return &Engine{
		Store: store, Admin: admin, Breaker: breaker, Fees: feesE, Registry: registry,
		Resolver: resolver, Bets: betsE, AMM: ammE, Oracle: oracleA, Voting: votingE,
		Cancel: cancelE, Recovery: recoveryE, GC: gcE,
		emitter: deps.Emitter, logger: deps.Logger, guard: guard,
	}
}

// Initialize sets the admin and base fee. Returns ErrAlreadyInitialized on
// a second call.
func (e *Engine) Initialize(admin string, baseFeeBps int64) error {
	if err := e.Admin.Initialize(admin, baseFeeBps); err != nil {
		e.logger.Error("initialize failed", "error", err)
		return err
	}
	e.logger.Info("engine initialized", "admin", admin, "base_fee_bps", baseFeeBps)
	return nil
}

// CreateMarket wires market.Registry.Create behind the circuit-breaker's
// high-risk gate (spec §4.9: market creation is high-risk).
func (e *Engine) CreateMarket(ctx context.Context, p market.CreateParams) (uint64, error) {
	if err := e.Breaker.RequireNotPausedForHighRisk(); err != nil {
		return 0, err
	}
	id, err := e.Registry.Create(ctx, p)
	if err != nil {
		e.logger.Warn("create_market failed", "error", err)
		return 0, err
	}
	e.logger.Info("market created", "market_id", id, "creator", p.Creator)
	return id, nil
}

// GetMarket is a pure lookup.
func (e *Engine) GetMarket(id uint64) (*Market, bool, error) { return e.Registry.Get(id) }

// lockMode enforces spec §9's "single market should not mix modes":
// AMM initialization and parimutuel bets are mutually exclusive on one
// market, tracked as an immutable attribute set on first use.
func (e *Engine) lockMode(marketID uint64, mode string) error {
	var existing string
	ok, err := e.Store.Get(ledger.KeyMarketMode(marketID), &existing)
	if err != nil {
		return err
	}
	if ok && existing != mode {
		return ledger.ErrMarketModeConflict
	}
	if !ok {
		return e.Store.Put(ledger.KeyMarketMode(marketID), mode)
	}
	return nil
}

// PlaceBet locks the market to parimutuel mode on first use, then places
// the bet.
func (e *Engine) PlaceBet(ctx context.Context, p bets.PlaceBetParams) error {
	if err := e.lockMode(p.MarketID, "parimutuel"); err != nil {
		return err
	}
	if err := e.Bets.PlaceBet(ctx, p); err != nil {
		e.logger.Warn("place_bet failed", "market_id", p.MarketID, "bettor", p.Bettor, "error", err)
		return e.recordFailureIfCircuit(ctx, err)
	}
	return nil
}

// ClaimWinnings settles a winning bet.
func (e *Engine) ClaimWinnings(ctx context.Context, bettor string, marketID uint64) (Amount, error) {
	return e.Bets.ClaimWinnings(ctx, bettor, marketID)
}

// InitializeAMMPools locks the market to AMM mode on first use, then
// initializes one pool per outcome.
func (e *Engine) InitializeAMMPools(ctx context.Context, marketID uint64, numOutcomes uint32, initialUSDC Amount) error {
	if err := e.lockMode(marketID, "amm"); err != nil {
		return err
	}
	return e.AMM.InitializePools(marketID, numOutcomes, initialUSDC)
}

// BuyShares is spec §6's buy_shares, gated by the circuit breaker's
// high-risk check (spec §4.9).
func (e *Engine) BuyShares(ctx context.Context, buyer string, marketID uint64, outcome uint32, usdcIn Amount) (sharesOut, newReserve Amount, err error) {
	if err := e.Breaker.RequireNotPausedForHighRisk(); err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	release, err := e.guard.Acquire()
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	defer release()
	return e.AMM.Buy(ctx, marketID, outcome, buyer, usdcIn)
}

// SellShares is spec §6's sell_shares.
func (e *Engine) SellShares(ctx context.Context, seller string, marketID uint64, outcome uint32, sharesIn Amount) (usdcOut, newReserve Amount, err error) {
	if err := e.Breaker.RequireNotPausedForHighRisk(); err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	release, err := e.guard.Acquire()
	if err != nil {
		return ledger.Zero, ledger.Zero, err
	}
	defer release()
	return e.AMM.Sell(ctx, marketID, outcome, seller, sharesIn)
}

// recordFailureIfCircuit feeds an unexpected (non-domain) failure into the
// circuit breaker's monitored error counter (spec §7: "The monitored error
// counter is incremented on unexpected failures"). Expected domain errors
// (bad input, wrong state) do not count against the breaker.
func (e *Engine) recordFailureIfCircuit(ctx context.Context, err error) error {
	if _, isDomain := ledger.Code(err); !isDomain {
		if cbErr := e.Breaker.RecordFailure(ctx); cbErr != nil {
			e.logger.Error("circuit breaker bookkeeping failed", "error", cbErr)
		}
	}
	return err
}

// Events returns the configured emitter, for embedders that passed their
// own and want to read it back (e.g. a test using events.Buffer).
func (e *Engine) Events() events.Emitter { return e.emitter }
