package services

import (
	"context"
	"fmt"

	"housebudget/internal/budget"
	"housebudget/internal/core"
)

// PersonSummary is one member's month: raw records plus the allocation of
// income across outgoings, spending money and what remains.
type PersonSummary struct {
	Person     core.Person
	Records    []core.Outgoing
	Outgoings  core.Money // records only, without spending money
	Allocation budget.Allocation
}

// Savings is what the member has left after outgoings and spending money.
func (p PersonSummary) Savings() core.Money { return p.Allocation.Savings }

// Summary is the household view the dashboard renders.
type Summary struct {
	People          []PersonSummary
	Spending        core.Money
	SpendingPerDay  core.Money
	CombinedIncome  core.Money
	CombinedSavings core.Money
}

// Summary builds every member's allocation with spending as their monthly
// "Spending Money" allowance. CombinedSavings is the default monthly savings
// rate for the projection.
func (s *HouseholdService) Summary(ctx context.Context, spending core.Money) (Summary, error) {
	if spending.IsNegative() {
		return Summary{}, fmt.Errorf("%w: negative spending money", budget.ErrInvalidInput)
	}
	if !spending.InRange() {
		return Summary{}, fmt.Errorf("%w: spending money too large", budget.ErrInvalidInput)
	}

	records, err := s.Outgoings(ctx)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Spending:       spending,
		SpendingPerDay: budget.PerDay(spending),
	}
	for _, p := range s.household.Members {
		own := filterPerson(records, p.Name)
		cats := budget.WithSpendingMoney(budget.MergeOutgoings(own), spending)
		alloc := budget.Allocate(p.Income, cats)

		sum.People = append(sum.People, PersonSummary{
			Person:     p,
			Records:    own,
			Outgoings:  core.TotalOutgoings(own),
			Allocation: alloc,
		})
		sum.CombinedIncome = sum.CombinedIncome.Add(p.Income)
		sum.CombinedSavings = sum.CombinedSavings.Add(alloc.Savings)
	}
	return sum, nil
}

// Project runs the house-purchase projection with the configured bands.
func (s *HouseholdService) Project(in budget.ProjectionInput) (budget.Projection, error) {
	in.Bands = s.bands
	return budget.Project(in)
}

// StampDuty applies the configured bands to price.
func (s *HouseholdService) StampDuty(price core.Money) (core.Money, error) {
	return budget.StampDuty(price, s.bands)
}
