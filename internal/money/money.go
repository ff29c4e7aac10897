// Package money provides a fixed-point monetary amount tagged with its
// currency code. All portfolio accounting arithmetic goes through this type so
// that repeated weighted-average recomputation does not accumulate binary
// floating-point drift.
package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is a monetary value in a single currency.
// The zero value is a currency-less zero, which acts as the identity for
// Add/Sub against any currency (a brand-new holding starts from it).
type Amount struct {
	value decimal.Decimal
	cur   string
}

// New creates an Amount from a decimal value and a currency code.
func New(value decimal.Decimal, currency string) Amount {
	return Amount{value: value, cur: currency}
}

// FromFloat creates an Amount from a float64. Intended for request parsing
// and tests; internal arithmetic stays decimal.
func FromFloat(value float64, currency string) Amount {
	return Amount{value: decimal.NewFromFloat(value), cur: currency}
}

// FromString parses a decimal string into an Amount.
func FromString(value, currency string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Amount{value: d, cur: currency}, nil
}

// Zero returns a zero Amount in the given currency.
func Zero(currency string) Amount {
	return Amount{cur: currency}
}

// ValidCurrency reports whether code is a known ISO 4217 currency code.
func ValidCurrency(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// Currency returns the currency code, or "" for the zero Amount.
func (a Amount) Currency() string { return a.cur }

func (a Amount) IsZero() bool     { return a.value.IsZero() }
func (a Amount) IsPositive() bool { return a.value.IsPositive() }
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// SameCurrency reports whether two amounts can be combined. The zero Amount
// is compatible with everything.
func (a Amount) SameCurrency(b Amount) bool {
	return a.cur == "" || b.cur == "" || a.cur == b.cur
}

// Add returns a + b. Panics on a currency mismatch; callers validate
// currencies at the boundary before doing arithmetic.
func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value), cur: mergeCur(a, b)}
}

// Sub returns a - b, with the same currency rules as Add.
func (a Amount) Sub(b Amount) Amount {
	return Amount{value: a.value.Sub(b.value), cur: mergeCur(a, b)}
}

// MulQuantity scales the amount by a unit quantity.
func (a Amount) MulQuantity(q decimal.Decimal) Amount {
	return Amount{value: a.value.Mul(q), cur: a.cur}
}

// DivQuantity divides the amount by a non-zero unit quantity.
func (a Amount) DivQuantity(q decimal.Decimal) Amount {
	return Amount{value: a.value.Div(q), cur: a.cur}
}

// MulRate converts the amount into another currency at the given rate.
func (a Amount) MulRate(rate decimal.Decimal, currency string) Amount {
	return Amount{value: a.value.Mul(rate), cur: currency}
}

// Cmp compares the numeric values, ignoring currency.
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }

// Equal reports value and currency equality.
func (a Amount) Equal(b Amount) bool {
	return a.value.Equal(b.value) && a.cur == b.cur
}

// Round returns the amount rounded to its currency's minor-unit precision,
// or two decimals when the currency is unknown.
func (a Amount) Round() Amount {
	places := int32(2)
	if c := gomoney.GetCurrency(a.cur); c != nil {
		places = int32(c.Fraction)
	}
	return Amount{value: a.value.Round(places), cur: a.cur}
}

// String renders the amount with its currency's display formatting.
func (a Amount) String() string {
	c := gomoney.GetCurrency(a.cur)
	if c == nil {
		return a.value.StringFixed(2) + " " + a.cur
	}
	minor := a.value.Shift(int32(c.Fraction))
	return c.Formatter().Format(minor.IntPart())
}

// InexactFloat64 returns the nearest float64. Presentation only.
func (a Amount) InexactFloat64() float64 { return a.value.InexactFloat64() }

// MarshalJSON encodes the amount as a bare decimal number rounded to the
// currency's precision. The currency travels alongside in the enclosing
// struct, matching the API contract.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Round().value.String()), nil
}

// UnmarshalJSON decodes a bare decimal number into a currency-less Amount.
// The enclosing struct attaches the currency after decoding.
func (a *Amount) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	a.value = d
	return nil
}

func mergeCur(a, b Amount) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic(fmt.Sprintf("currency mismatch: %s != %s", a.cur, b.cur))
	}
	return a.cur
}
