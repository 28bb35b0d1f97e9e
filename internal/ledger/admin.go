package ledger

// AdminRegistry implements the narrow accessor pattern spec §9 requires for
// global mutable state (Admin, MarketAdmin, FeeAdmin, GuardianAccount):
// "Reads and writes must go through narrow accessor functions — there is
// no in-memory cache." Grounded on original_source's modules/admin.rs.
type AdminRegistry struct {
	store *Store
}

// NewAdminRegistry wires an AdminRegistry.
func NewAdminRegistry(store *Store) *AdminRegistry { return &AdminRegistry{store: store} }

// Initialize sets the admin once; a second call fails AlreadyInitialized
// (spec §6: "initialize(admin, base_fee)").
func (r *AdminRegistry) Initialize(admin string, baseFeeBps int64) error {
	has, err := r.store.Has(KeyAdmin())
	if err != nil {
		return err
	}
	if has {
		return ErrAlreadyInitialized
	}
	if err := r.store.Put(KeyAdmin(), admin); err != nil {
		return err
	}
	return r.store.Put(KeyBaseFee(), baseFeeBps)
}

// GetAdmin returns the current admin, if set.
func (r *AdminRegistry) GetAdmin() (string, bool, error) {
	var admin string
	ok, err := r.store.Get(KeyAdmin(), &admin)
	return admin, ok, err
}

// RequireAdmin returns ErrAdminNotSet if no admin is configured. Actual
// signature verification of the caller is the embedding host's
// responsibility (spec treats "requires X authorization" as an external
// precondition the host ledger enforces before invoking the operation);
// this only enforces that the role exists and matches the supplied caller.
func (r *AdminRegistry) RequireAdmin(caller string) error {
	admin, ok, err := r.GetAdmin()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAdminNotSet
	}
	if caller != admin {
		return ErrNotAuthorized
	}
	return nil
}

// SetMarketAdmin is admin-only.
func (r *AdminRegistry) SetMarketAdmin(caller, marketAdmin string) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	return r.store.Put(KeyMarketAdmin(), marketAdmin)
}

// GetMarketAdmin returns the configured market-admin, if any.
func (r *AdminRegistry) GetMarketAdmin() (string, bool, error) {
	var v string
	ok, err := r.store.Get(KeyMarketAdmin(), &v)
	return v, ok, err
}

// SetFeeAdmin is admin-only.
func (r *AdminRegistry) SetFeeAdmin(caller, feeAdmin string) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	return r.store.Put(KeyFeeAdmin(), feeAdmin)
}

// GetFeeAdmin returns the configured fee-admin, if any.
func (r *AdminRegistry) GetFeeAdmin() (string, bool, error) {
	var v string
	ok, err := r.store.Get(KeyFeeAdmin(), &v)
	return v, ok, err
}

// SetGuardianAccount is admin-only — the single guardian address used by
// circuit-breaker pause/unpause (distinct from the 5-address guardian set
// used by the recovery module).
func (r *AdminRegistry) SetGuardianAccount(caller, guardian string) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	return r.store.Put(KeyGuardianAccount(), guardian)
}

// GetGuardianAccount returns the configured guardian, if any.
func (r *AdminRegistry) GetGuardianAccount() (string, bool, error) {
	var v string
	ok, err := r.store.Get(KeyGuardianAccount(), &v)
	return v, ok, err
}

// RequireGuardian returns ErrGuardianNotSet if no guardian is configured,
// or ErrNotAuthorized if caller does not match.
func (r *AdminRegistry) RequireGuardian(caller string) error {
	guardian, ok, err := r.GetGuardianAccount()
	if err != nil {
		return err
	}
	if !ok {
		return ErrGuardianNotSet
	}
	if caller != guardian {
		return ErrNotAuthorized
	}
	return nil
}
