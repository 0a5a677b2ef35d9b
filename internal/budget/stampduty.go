// Package budget holds the household calculations: stamp duty over marginal
// tax bands, the monthly savings allocation and the house-purchase projection.
// Everything here is pure; callers load data and render results.
package budget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"housebudget/internal/core"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidBands = errors.New("invalid tax bands")
)

// TaxBand is one marginal band: up to Width of the remaining price is taxed at Rate.
// The last band of a schedule is Unbounded and absorbs any remainder.
type TaxBand struct {
	Width     core.Money
	Unbounded bool
	Rate      decimal.Decimal
}

// Bands is an ordered stamp duty schedule.
type Bands []TaxBand

// BandLine is the tax charged within a single band for a given price.
type BandLine struct {
	From      core.Money
	To        core.Money // zero when the band is unbounded
	Unbounded bool
	Rate      decimal.Decimal
	Taxable   core.Money
	Tax       decimal.Decimal // unrounded, in pounds
}

// Assessment is a stamp duty calculation with its per-band working.
type Assessment struct {
	Price core.Money
	Lines []BandLine
	Total core.Money // rounded to whole pounds
}

// DefaultBands returns the residential SDLT schedule (rates as of June 2025):
// 0% to £125k, 2% to £250k, 5% to £925k, 10% to £1.5m, 12% above.
func DefaultBands() Bands {
	return Bands{
		{Width: core.Pounds(125000), Rate: decimal.Zero},
		{Width: core.Pounds(125000), Rate: decimal.RequireFromString("0.02")},
		{Width: core.Pounds(675000), Rate: decimal.RequireFromString("0.05")},
		{Width: core.Pounds(575000), Rate: decimal.RequireFromString("0.10")},
		{Unbounded: true, Rate: decimal.RequireFromString("0.12")},
	}
}

// Validate checks widths are non-negative, rates lie in [0,1] and only the
// final band is unbounded.
func (b Bands) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("%w: no bands", ErrInvalidBands)
	}
	one := decimal.NewFromInt(1)
	for i, band := range b {
		last := i == len(b)-1
		if band.Unbounded != last {
			if last {
				return fmt.Errorf("%w: final band must be unbounded", ErrInvalidBands)
			}
			return fmt.Errorf("%w: band %d is unbounded but not last", ErrInvalidBands, i+1)
		}
		if band.Width.IsNegative() {
			return fmt.Errorf("%w: band %d has negative width", ErrInvalidBands, i+1)
		}
		if band.Rate.IsNegative() || band.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: band %d rate %s outside [0,1]", ErrInvalidBands, i+1, band.Rate)
		}
	}
	return nil
}

// ParseBands reads "width:rate" pairs separated by commas, widths in pounds.
// The final width must be "inf", e.g. "125000:0,125000:0.02,inf:0.05".
func ParseBands(s string) (Bands, error) {
	var bands Bands
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		width, rate, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not width:rate", ErrInvalidBands, part)
		}
		r, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil {
			return nil, fmt.Errorf("%w: rate %q: %v", ErrInvalidBands, rate, err)
		}
		band := TaxBand{Rate: r}
		switch w := strings.ToLower(strings.TrimSpace(width)); w {
		case "inf", "∞", "":
			band.Unbounded = true
		default:
			if strings.HasPrefix(w, "-") {
				return nil, fmt.Errorf("%w: band %q has negative width", ErrInvalidBands, part)
			}
			m, err := core.ParseAmount(w)
			if err != nil {
				return nil, fmt.Errorf("%w: width %q: %v", ErrInvalidBands, width, err)
			}
			band.Width = m
		}
		bands = append(bands, band)
	}
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	return bands, nil
}

// String renders the schedule in the form accepted by ParseBands.
func (b Bands) String() string {
	parts := make([]string, len(b))
	for i, band := range b {
		width := "inf"
		if !band.Unbounded {
			width = band.Width.Decimal().String()
		}
		parts[i] = width + ":" + band.Rate.String()
	}
	return strings.Join(parts, ",")
}

// Assess walks the bands in order, each consuming up to its width of the
// remaining price, and returns the per-band working plus the rounded total.
func Assess(price core.Money, bands Bands) (Assessment, error) {
	if price.IsNegative() {
		return Assessment{}, fmt.Errorf("%w: negative price %s", ErrInvalidInput, core.FormatGBP(price))
	}
	if err := bands.Validate(); err != nil {
		return Assessment{}, err
	}

	a := Assessment{Price: price}
	duty := decimal.Zero
	remaining := price
	var from core.Money

	for _, band := range bands {
		if remaining.Pence <= 0 {
			break
		}
		taxable := remaining
		if !band.Unbounded && band.Width.Pence < taxable.Pence {
			taxable = band.Width
		}
		tax := taxable.Decimal().Mul(band.Rate)
		duty = duty.Add(tax)
		remaining = remaining.Sub(taxable)

		line := BandLine{From: from, Unbounded: band.Unbounded, Rate: band.Rate, Taxable: taxable, Tax: tax}
		if !band.Unbounded {
			line.To = from.Add(band.Width)
			from = line.To
		}
		a.Lines = append(a.Lines, line)
	}

	a.Total = core.Pounds(duty.RoundBank(0).IntPart())
	return a, nil
}

// StampDuty returns the tax owed on price, rounded to whole pounds.
func StampDuty(price core.Money, bands Bands) (core.Money, error) {
	a, err := Assess(price, bands)
	if err != nil {
		return core.Money{}, err
	}
	return a.Total, nil
}
