package ledger

import "context"

// ClawbackDetector compares a token contract's reported custody balance
// against the ledger's own bookkeeping total, surfacing an issuer-initiated
// revocation (spec §4.11, glossary "Clawback") that the engine cannot
// prevent but must react to by cancelling the affected market.
//
// balanceOf is injected rather than hard-wired to a concrete token client,
// matching spec §6's treatment of the token contract as an external
// collaborator whose only contract surface is transfer/balance.
type ClawbackDetector struct {
	balanceOf func(ctx context.Context, holder string) (Amount, error)
}

// NewClawbackDetector wraps a balance-reading function.
func NewClawbackDetector(balanceOf func(ctx context.Context, holder string) (Amount, error)) *ClawbackDetector {
	return &ClawbackDetector{balanceOf: balanceOf}
}

// Detect reports whether contractAddress's on-chain balance has fallen
// below bookedTotal (the ledger's record of what it believes it custodies:
// total_staked across open bets, minus amounts already paid out). A
// shortfall is a clawback.
func (c *ClawbackDetector) Detect(ctx context.Context, contractAddress string, bookedTotal Amount) (bool, error) {
	actual, err := c.balanceOf(ctx, contractAddress)
	if err != nil {
		return false, err
	}
	return actual.LessThan(bookedTotal), nil
}
