package persist

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
)

// maxAmountBits bounds amounts to the width of the asset currency (uint256).
// Anything wider is an overflow, never wrapped.
const maxAmountBits = 256

// Amount is a non-negative currency amount in the currency's smallest unit
// (wei-scale). It is stored as NUMERIC(78,0) in the database. All arithmetic
// on Amounts is integer arithmetic.
type Amount struct {
	i big.Int
}

// ErrAmountOverflow is returned when an amount or an arithmetic result does
// not fit in 256 bits
type ErrAmountOverflow struct {
	Op string
}

func (e ErrAmountOverflow) Error() string {
	return fmt.Sprintf("amount overflows 256 bits in %s", e.Op)
}

// NewAmount returns an Amount for a non-negative int64
func NewAmount(v int64) Amount {
	if v < 0 {
		v = 0
	}
	var a Amount
	a.i.SetInt64(v)
	return a
}

// NewAmountFromString parses a base-10 amount string
func NewAmountFromString(s string) (Amount, error) {
	var a Amount
	if _, ok := a.i.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("invalid amount: %q", s)
	}
	if a.i.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount must not be negative: %q", s)
	}
	if a.i.BitLen() > maxAmountBits {
		return Amount{}, ErrAmountOverflow{Op: "parse"}
	}
	return a, nil
}

// BigInt returns a copy of the underlying integer
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(&a.i)
}

func (a Amount) String() string {
	return a.i.String()
}

// IsZero returns true for the zero amount
func (a Amount) IsZero() bool {
	return a.i.Sign() == 0
}

// Cmp compares two amounts the way big.Int.Cmp does
func (a Amount) Cmp(b Amount) int {
	return a.i.Cmp(&b.i)
}

// MulInt64 multiplies the amount by a non-negative integer, rejecting results
// wider than 256 bits
func (a Amount) MulInt64(n int64) (Amount, error) {
	if n < 0 {
		return Amount{}, fmt.Errorf("multiplier must not be negative: %d", n)
	}
	var out Amount
	out.i.Mul(&a.i, big.NewInt(n))
	if out.i.BitLen() > maxAmountBits {
		return Amount{}, ErrAmountOverflow{Op: "mul"}
	}
	return out, nil
}

// Add adds two amounts, rejecting results wider than 256 bits
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	out.i.Add(&a.i, &b.i)
	if out.i.BitLen() > maxAmountBits {
		return Amount{}, ErrAmountOverflow{Op: "add"}
	}
	return out, nil
}

// Sub subtracts b from a, failing when the result would be negative
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.i.Cmp(&b.i) < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", a.String(), b.String())
	}
	var out Amount
	out.i.Sub(&a.i, &b.i)
	return out, nil
}

// DivInt64 divides the amount by a positive integer, rounding down
func (a Amount) DivInt64(n int64) (Amount, error) {
	if n <= 0 {
		return Amount{}, fmt.Errorf("divisor must be positive: %d", n)
	}
	var out Amount
	out.i.Div(&a.i, big.NewInt(n))
	return out, nil
}

// Value implements the driver.Valuer interface for Amount
func (a Amount) Value() (driver.Value, error) {
	return a.i.String(), nil
}

// Scan implements the sql.Scanner interface for Amount
func (a *Amount) Scan(i interface{}) error {
	if i == nil {
		a.i.SetInt64(0)
		return nil
	}
	var s string
	switch v := i.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		a.i.SetInt64(v)
		return nil
	default:
		return fmt.Errorf("unsupported type for Amount: %T", i)
	}
	if _, ok := a.i.SetString(s, 10); !ok {
		return fmt.Errorf("invalid amount from database: %q", s)
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.i.String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Accept bare JSON numbers as well
		s = string(b)
	}
	parsed, err := NewAmountFromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
