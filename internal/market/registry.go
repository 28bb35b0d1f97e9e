package market

import (
	"context"

	"github.com/predictiq/engine/internal/events"
	"github.com/predictiq/engine/internal/ledger"
)

// Registry owns market ID allocation and CRUD (spec §4.1).
type Registry struct {
	store   *ledger.Store
	emitter events.Emitter
}

// New wires a Registry.
func New(store *ledger.Store, emitter events.Emitter) *Registry {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Registry{store: store, emitter: emitter}
}

// CreateParams carries create_market's arguments (spec §6).
type CreateParams struct {
	Creator             string
	Description         string
	Options             []string
	Deadline            uint64
	ResolutionDeadline  uint64
	OracleConfig        OracleConfig
	Tier                ledger.Tier
	TokenAddress        string
	ParentID            uint64
	ParentOutcomeIdx    uint32
	CreationDeposit     ledger.Amount
	Now                 uint64
}

// Create allocates a new market (spec §4.1). Validation order matches the
// spec's listed failure modes.
func (r *Registry) Create(ctx context.Context, p CreateParams) (uint64, error) {
	if len(p.Options) > MaxOutcomesPerMarket {
		return 0, ledger.ErrTooManyOutcomes
	}
	if len(p.Options) < 2 {
		return 0, ledger.ErrInvalidOutcome
	}
	if p.Now >= p.Deadline || p.Deadline > p.ResolutionDeadline {
		return 0, ledger.ErrInvalidDeadline
	}

	id, err := r.nextID()
	if err != nil {
		return 0, err
	}

	m := &Market{
		ID:                 id,
		Creator:            p.Creator,
		Description:        p.Description,
		Options:            p.Options,
		Status:             Active,
		Deadline:           p.Deadline,
		ResolutionDeadline: p.ResolutionDeadline,
		TotalStaked:        ledger.Zero,
		OutcomeStakes:      make(map[uint32]ledger.Amount, len(p.Options)),
		TokenAddress:       p.TokenAddress,
		Tier:               p.Tier,
		OracleConfig:       p.OracleConfig,
		ParentID:           p.ParentID,
		ParentOutcomeIdx:   p.ParentOutcomeIdx,
		PayoutMode:         Pull,
		CreationDeposit:    p.CreationDeposit,
	}
	for i := range p.Options {
		m.OutcomeStakes[uint32(i)] = ledger.Zero
	}

	if err := r.put(m); err != nil {
		return 0, err
	}

	r.emitter.Emit(ctx, events.New(events.MarketCreated, id, p.Creator, map[string]any{
		"description": p.Description,
		"num_options": len(p.Options),
		"deadline":    p.Deadline,
	}))
	return id, nil
}

func (r *Registry) nextID() (uint64, error) {
	var count uint64
	if _, err := r.store.Get(ledger.KeyMarketCount(), &count); err != nil {
		return 0, err
	}
	count++
	if err := r.store.Put(ledger.KeyMarketCount(), count); err != nil {
		return 0, err
	}
	return count, nil
}

// Get is a pure lookup; absence returns (nil, false, nil).
func (r *Registry) Get(id uint64) (*Market, bool, error) {
	var m Market
	ok, err := r.store.Get(ledger.KeyMarket(id), &m)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &m, true, nil
}

// MustGet returns ErrMarketNotFound when absent, for callers that always
// need the record to proceed.
func (r *Registry) MustGet(id uint64) (*Market, error) {
	m, ok, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ledger.ErrMarketNotFound
	}
	return m, nil
}

// put writes the whole record — the only way a Market is persisted, since
// "Update" (spec §4.1) is internal-only and always writes the full struct.
func (r *Registry) put(m *Market) error {
	return r.store.Put(ledger.KeyMarket(m.ID), m)
}

// Put exposes the whole-record write to sibling packages (resolution,
// bets, cancellation) that mutate a Market they already loaded via Get.
// Status transitions must only ever happen through those modules, per
// spec §4.1 ("Status transitions must come through the resolution /
// cancellation modules") — Registry itself never changes Status after
// Create.
func (r *Registry) Put(m *Market) error { return r.put(m) }
