package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Amount is an arbitrary-precision non-negative token quantity.
//
// The zero value is a usable zero amount. Arithmetic never mutates the
// receiver; Sub fails instead of wrapping when the result would be negative.
type Amount struct {
	i *big.Int
}

// NewAmount creates an amount from a uint64.
func NewAmount(v uint64) Amount {
	return Amount{i: new(big.Int).SetUint64(v)}
}

// AmountFromBig creates an amount from a big.Int copy.
// Returns an error if v is negative.
func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, nil
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount cannot be negative: %s", v)
	}
	return Amount{i: new(big.Int).Set(v)}, nil
}

// ParseAmount parses a base-10 amount string.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return AmountFromBig(v)
}

// AmountFromBytes decodes a big-endian magnitude as produced by Bytes.
// An empty slice decodes to zero.
func AmountFromBytes(b []byte) Amount {
	return Amount{i: new(big.Int).SetBytes(b)}
}

func (a Amount) val() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{i: new(big.Int).Add(a.val(), b.val())}
}

// Sub returns a - b, or an error if b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	av, bv := a.val(), b.val()
	if av.Cmp(bv) < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", av, bv)
	}
	return Amount{i: new(big.Int).Sub(av, bv)}, nil
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.val().Cmp(b.val())
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.val().Sign() == 0
}

// Bytes returns the big-endian magnitude. Zero encodes as an empty slice.
func (a Amount) Bytes() []byte {
	return a.val().Bytes()
}

// Big returns a copy of the amount as a big.Int.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.val())
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.val().String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a decimal string into an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
