// Package token defines the external collaborator interfaces the engine
// consumes but never implements: a fungible-token contract and an optional
// identity-verification predicate. Spec §6: "the only contract is
// transfer/balance" for the token, "one boolean predicate" for identity.
//
// Modeled as interfaces — not concrete structs — for the same reason the
// teacher's service layer takes a Refunder/Rebalancer interface rather than
// a concrete repository: it lets this engine be embedded against any ledger
// backend (a real Stellar classic asset, a mock for tests, an ERC-20
// bridge) without an import cycle back into a specific chain client.
package token

import (
	"context"

	"github.com/predictiq/engine/internal/ledger"
)

// Token is the fungible-asset contract the engine moves value through.
// Any failure aborts the enclosing transaction (spec §6).
type Token interface {
	// Transfer moves amount from 'from' to 'to'. Implementations must be
	// idempotent-unsafe by design — the engine calls this exactly once per
	// logical transfer and never retries automatically.
	Transfer(ctx context.Context, from, to string, amount ledger.Amount) error
	// Balance returns the current custody balance of holder.
	Balance(ctx context.Context, holder string) (ledger.Amount, error)
}

// IdentityVerifier is the optional external identity gate (spec §4, §6:
// "is_verify(addr) -> bool"). A nil IdentityVerifier or AlwaysVerified{}
// disables the gate entirely, matching the spec's "Optional external
// predicate."
type IdentityVerifier interface {
	IsVerified(ctx context.Context, address string) (bool, error)
}

// AlwaysVerified is the permissive default used when no identity contract
// is configured.
type AlwaysVerified struct{}

func (AlwaysVerified) IsVerified(context.Context, string) (bool, error) { return true, nil }
