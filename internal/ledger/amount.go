package ledger

import "github.com/shopspring/decimal"

// Amount stands in for the specification's 128-bit signed integers. Go has
// no native int128; decimal.Decimal's big.Int-backed coefficient gives the
// same unbounded width without floating point, so every Amount constructed
// or returned by this package carries scale 0 (no fractional component) and
// every arithmetic helper truncates (floors, for non-negative operands)
// rather than rounds, matching the spec's "multiplication before division,
// floor" rule.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// NewAmount builds an Amount from an int64 stake/balance value.
func NewAmount(v int64) Amount { return Amount{d: decimal.NewFromInt(v)} }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a.d.Sign() < 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.d.Sign() > 0 }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Mul returns a * b. The product may have more digits than either operand;
// combine with Div before truncating back to an integer Amount.
func (a Amount) Mul(b Amount) Amount { return Amount{d: a.d.Mul(b.d)} }

// MulInt64 returns a * n.
func (a Amount) MulInt64(n int64) Amount { return Amount{d: a.d.Mul(decimal.NewFromInt(n))} }

// DivFloor returns floor(a / b). Panics if b is zero, matching integer
// division-by-zero semantics; callers must check IsZero before dividing.
func (a Amount) DivFloor(b Amount) Amount {
	if b.d.IsZero() {
		panic("ledger: division by zero")
	}
	q, _ := a.d.QuoRem(b.d, 0)
	return Amount{d: q}
}

// MulDivFloor computes floor(a * n / d) keeping full precision on the
// intermediate product — the "multiplication before division" rule the
// payout and AMM formulas depend on to avoid truncation error.
func (a Amount) MulDivFloor(n, d Amount) Amount {
	if d.d.IsZero() {
		panic("ledger: division by zero")
	}
	product := a.d.Mul(n.d)
	return Amount{d: truncateTowardZero(product.Div(d.d))}
}

func truncateTowardZero(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(0)
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

// GreaterThanOrEqual reports a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }

// Int64 returns the amount as an int64. Callers must ensure no overflow;
// this is intended for values already known to fit (bps, counts, small
// test fixtures), not for arbitrary staked amounts.
func (a Amount) Int64() int64 { return a.d.IntPart() }

// String renders the integer value.
func (a Amount) String() string { return a.d.Truncate(0).String() }

// MarshalBinary / UnmarshalBinary let Amount participate directly in the
// store's gob encoding.
func (a Amount) MarshalBinary() ([]byte, error) { return a.d.Truncate(0).MarshalBinary() }

func (a *Amount) UnmarshalBinary(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalBinary(data); err != nil {
		return err
	}
	a.d = d
	return nil
}
