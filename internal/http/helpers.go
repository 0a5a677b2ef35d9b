package http

import (
	"fmt"
	"html/template"
	"strings"

	"housebudget/internal/budget"
	"housebudget/internal/core"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"pounds": func(m core.Money) int64 { return m.WholePounds() },
}

// segmentView is one slice of a stacked allocation bar.
type segmentView struct {
	Label    string
	Amount   string
	Title    string
	Color    string
	Width    string // CSS percentage, e.g. "12.50%"
	Negative bool
}

// barSegments sizes every segment by |amount| / Σ|amounts| so a shortfall
// still gets a visible, distinctly styled slice.
func barSegments(alloc budget.Allocation) []segmentView {
	var total int64
	for _, s := range alloc.Segments {
		total += s.Amount.Abs().Pence
	}

	out := make([]segmentView, 0, len(alloc.Segments))
	for _, s := range alloc.Segments {
		width := 0.0
		if total > 0 {
			width = float64(s.Amount.Abs().Pence) * 100 / float64(total)
		}
		out = append(out, segmentView{
			Label:    s.Label,
			Amount:   core.FormatGBP(s.Amount),
			Title:    s.HoverText(),
			Color:    s.Color,
			Width:    fmt.Sprintf("%.2f%%", width),
			Negative: s.Amount.IsNegative(),
		})
	}
	return out
}

// barScale is the width of a person's bar relative to the largest income,
// so the two bars compare like for like.
func barScale(income, maxIncome core.Money) string {
	if maxIncome.Pence <= 0 || income.Pence <= 0 {
		return "100%"
	}
	return fmt.Sprintf("%.2f%%", float64(income.Pence)*100/float64(maxIncome.Pence))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
