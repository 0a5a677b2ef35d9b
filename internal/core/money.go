// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between pence and pound representations.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount of sterling held as integer pence.
type Money struct {
	Pence int64
}

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest amount accepted from input: one trillion pounds.
// Sums of a bounded number of such amounts, and a bounded number of months
// of saving, stay far inside int64 pence.
var MaxAmount = Pounds(1_000_000_000_000)

// Pounds builds a Money value from a whole number of pounds.
func Pounds(p int64) Money {
	return Money{Pence: p * 100}
}

// FromDecimal converts a pound amount to Money, rounding half-up to the penny.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Pence: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in pounds as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Pence, -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Pence: m.Pence + o.Pence} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{Pence: m.Pence - o.Pence} }

// Mul returns m multiplied by n.
func (m Money) Mul(n int64) Money { return Money{Pence: m.Pence * n} }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Pence < 0 }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Pence < 0 {
		return Money{Pence: -m.Pence}
	}
	return m
}

// WholePounds rounds to the nearest pound using round-half-even.
func (m Money) WholePounds() int64 {
	return m.Decimal().RoundBank(0).IntPart()
}

// Validate rejects negative amounts and anything above MaxAmount. Zero is a
// valid outgoing.
func (m Money) Validate() error {
	if m.Pence < 0 || m.Pence > MaxAmount.Pence {
		return ErrInvalidAmount
	}
	return nil
}

// InRange reports whether |m| is at most MaxAmount.
func (m Money) InRange() bool {
	return m.Pence >= -MaxAmount.Pence && m.Pence <= MaxAmount.Pence
}

// ParseAmount converts a user-entered pound amount to Money.
//
// A leading "£" and thousands separators are accepted ("£1,250.50").
// Fractions beyond the penny are rounded half-up. Negative values and
// values above MaxAmount are rejected; zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34")   -> 1234p
//	ParseAmount("£1,200")  -> 120000p
//	ParseAmount("12.345")  -> 1235p
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(MaxAmount.Decimal()) {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d), nil
}

// FormatGBP renders whole pounds with thousands separators and no decimals,
// e.g. "£1,234" or "-£56".
func FormatGBP(m Money) string {
	p := m.WholePounds()
	if p < 0 {
		return "-£" + FormatNumber(-p)
	}
	return "£" + FormatNumber(p)
}

// FormatNumber renders an integer with thousands separators.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + groupThousands(strconv.FormatInt(-n, 10))
	}
	return groupThousands(strconv.FormatInt(n, 10))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
