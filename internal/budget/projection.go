package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"housebudget/internal/core"
)

// DepositRate is the share of the house price put down as a deposit.
var DepositRate = decimal.RequireFromString("0.10")

// MaxMonths bounds the saving horizon at a century.
const MaxMonths = 1200

// DaysPerMonth is used to express monthly spending as a daily allowance.
const DaysPerMonth = 30

// ProjectionInput holds the user-tunable figures for a house purchase.
type ProjectionInput struct {
	HousePrice     core.Money
	MonthlySavings core.Money // may be negative when the budget runs a shortfall
	Months         int
	Equity         core.Money
	Bands          Bands
}

// Projection reports whether savings plus equity cover deposit and stamp duty.
type Projection struct {
	HousePrice    core.Money
	StampDuty     core.Money
	Deposit       core.Money
	TotalRequired core.Money
	Months        int
	Saved         core.Money
	Equity        core.Money
	TotalSaved    core.Money
	Shortfall     core.Money
	CanAfford     bool
}

// Project composes stamp duty, the deposit and accumulated savings.
func Project(in ProjectionInput) (Projection, error) {
	if in.HousePrice.IsNegative() {
		return Projection{}, fmt.Errorf("%w: negative house price", ErrInvalidInput)
	}
	if in.Months < 0 {
		return Projection{}, fmt.Errorf("%w: negative months", ErrInvalidInput)
	}
	if in.Months > MaxMonths {
		return Projection{}, fmt.Errorf("%w: more than %d months", ErrInvalidInput, MaxMonths)
	}
	if in.Equity.IsNegative() {
		return Projection{}, fmt.Errorf("%w: negative equity", ErrInvalidInput)
	}
	for _, m := range []core.Money{in.HousePrice, in.Equity, in.MonthlySavings} {
		if !m.InRange() {
			return Projection{}, fmt.Errorf("%w: amount above %s", ErrInvalidInput, core.FormatGBP(core.MaxAmount))
		}
	}

	duty, err := StampDuty(in.HousePrice, in.Bands)
	if err != nil {
		return Projection{}, fmt.Errorf("stamp duty: %w", err)
	}
	deposit := Deposit(in.HousePrice)
	required := duty.Add(deposit)
	saved := in.MonthlySavings.Mul(int64(in.Months))
	totalSaved := in.Equity.Add(saved)

	p := Projection{
		HousePrice:    in.HousePrice,
		StampDuty:     duty,
		Deposit:       deposit,
		TotalRequired: required,
		Months:        in.Months,
		Saved:         saved,
		Equity:        in.Equity,
		TotalSaved:    totalSaved,
		CanAfford:     totalSaved.Pence >= required.Pence,
	}
	if !p.CanAfford {
		p.Shortfall = required.Sub(totalSaved)
	}
	return p, nil
}

// Deposit is DepositRate of the price, rounded to whole pounds.
func Deposit(price core.Money) core.Money {
	return core.Pounds(price.Decimal().Mul(DepositRate).RoundBank(0).IntPart())
}

// PerDay expresses a monthly amount as a whole-pound daily figure.
func PerDay(monthly core.Money) core.Money {
	return core.Pounds(monthly.Decimal().Div(decimal.NewFromInt(DaysPerMonth)).RoundBank(0).IntPart())
}
