package budget

import (
	"sort"
	"strings"

	"housebudget/internal/core"
)

// Palette colours segments by their position in the sorted breakdown.
var Palette = []string{
	"#D8D3C3",
	"#C9D6D5",
	"#E3D5CA",
	"#D6E2E9",
	"#F0E5CF",
	"#B8B8AA",
	"#EAD2AC",
	"#C5C9A4",
	"#E8DFF5",
	"#F6F1D1",
}

// Segment is one labelled slice of a monthly income.
type Segment struct {
	Label  string
	Amount core.Money
	Color  string
}

// Allocation splits an income into outgoings and what is left over.
// Segment amounts always sum to Income.
type Allocation struct {
	Income    core.Money
	Outgoings core.Money
	Savings   core.Money // negative when outgoings exceed income
	Segments  []Segment  // outgoings plus Remaining, largest first
}

// Allocate computes savings = income - Σoutgoings and a breakdown sorted by
// amount descending. The synthetic Remaining entry is sorted with the rest,
// so a shortfall ends up at the bottom.
func Allocate(income core.Money, outgoings []core.CategoryAmount) Allocation {
	total := core.Total(outgoings)
	savings := income.Sub(total)

	segments := make([]Segment, 0, len(outgoings)+1)
	for _, o := range outgoings {
		segments = append(segments, Segment{Label: o.Name, Amount: o.Amount})
	}
	segments = append(segments, Segment{Label: core.LabelRemaining, Amount: savings})

	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].Amount.Pence != segments[j].Amount.Pence {
			return segments[i].Amount.Pence > segments[j].Amount.Pence
		}
		return segments[i].Label < segments[j].Label
	})
	for i := range segments {
		segments[i].Color = Palette[i%len(Palette)]
	}

	return Allocation{
		Income:    income,
		Outgoings: total,
		Savings:   savings,
		Segments:  segments,
	}
}

// MergeOutgoings aggregates records by label; duplicate labels sum.
// Labels keep the order in which they were first seen.
func MergeOutgoings(records []core.Outgoing) []core.CategoryAmount {
	index := make(map[string]int, len(records))
	out := make([]core.CategoryAmount, 0, len(records))
	for _, r := range records {
		label := strings.TrimSpace(r.Label)
		if i, ok := index[label]; ok {
			out[i].Amount = out[i].Amount.Add(r.Amount)
			continue
		}
		index[label] = len(out)
		out = append(out, core.CategoryAmount{Name: label, Amount: r.Amount})
	}
	return out
}

// WithSpendingMoney appends the discretionary spending allowance as its own category.
func WithSpendingMoney(outgoings []core.CategoryAmount, spending core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(outgoings)+1)
	out = append(out, outgoings...)
	return append(out, core.CategoryAmount{Name: core.LabelSpendingMoney, Amount: spending})
}

// HoverText is the tooltip shown for a segment, e.g. "Rent: £1,200".
func (s Segment) HoverText() string {
	return s.Label + ": " + core.FormatGBP(s.Amount)
}
