// Package money formats decimal amounts for display.
//
// Rounding to the currency's minor unit happens here and nowhere earlier.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var symbols = map[currency.Unit]string{
	currency.USD: "$",
	currency.GBP: "£",
	currency.EUR: "€",
}

// ParseUnit parses an ISO 4217 code such as "USD".
func ParseUnit(code string) (currency.Unit, error) {
	u, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, errors.Wrapf(err, "parse currency %q", code)
	}
	return u, nil
}

// Scale returns the number of decimal places used for the unit.
func Scale(u currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(u)
	return int32(scale)
}

// Round rounds amount to the unit's standard scale.
func Round(amount decimal.Decimal, u currency.Unit) decimal.Decimal {
	return amount.Round(Scale(u))
}

// Fixed returns amount rounded to the unit's scale with trailing zeros kept,
// e.g. "96.50".
func Fixed(amount decimal.Decimal, u currency.Unit) string {
	return amount.StringFixed(Scale(u))
}

// Symbol returns the display prefix for u. Units without a known symbol use
// their ISO code followed by a space.
func Symbol(u currency.Unit) string {
	if s, ok := symbols[u]; ok {
		return s
	}
	return u.String() + " "
}

// Format renders amount as a display string such as "$96.50".
func Format(amount decimal.Decimal, u currency.Unit) string {
	if amount.IsNegative() {
		return "-" + Symbol(u) + Fixed(amount.Neg(), u)
	}
	return Symbol(u) + Fixed(amount, u)
}
