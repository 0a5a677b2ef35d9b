package http

import (
	"testing"

	"housebudget/internal/budget"
	"housebudget/internal/core"
)

func TestBarSegments(t *testing.T) {
	alloc := budget.Allocation{Segments: []budget.Segment{
		{Label: "Rent", Amount: core.Pounds(300), Color: "#111"},
		{Label: "Remaining", Amount: core.Pounds(-100), Color: "#222"},
	}}
	got := barSegments(alloc)
	if len(got) != 2 {
		t.Fatalf("got %d segments", len(got))
	}
	if got[0].Width != "75.00%" || got[1].Width != "25.00%" {
		t.Errorf("widths = %s, %s", got[0].Width, got[1].Width)
	}
	if got[0].Negative || !got[1].Negative {
		t.Error("only the shortfall should be marked negative")
	}
	if got[1].Amount != "-£100" || got[0].Title != "Rent: £300" {
		t.Errorf("unexpected labels: %+v", got)
	}
}

func TestBarSegmentsEmpty(t *testing.T) {
	got := barSegments(budget.Allocation{Segments: []budget.Segment{{Label: "Remaining"}}})
	if len(got) != 1 || got[0].Width != "0.00%" {
		t.Errorf("unexpected segments: %+v", got)
	}
}

func TestBarScale(t *testing.T) {
	tests := []struct {
		income, max int64
		want        string
	}{
		{5000, 5000, "100.00%"},
		{2500, 5000, "50.00%"},
		{0, 5000, "100%"},
		{100, 0, "100%"},
	}
	for _, tt := range tests {
		if got := barScale(core.Pounds(tt.income), core.Pounds(tt.max)); got != tt.want {
			t.Errorf("barScale(%d, %d) = %s, want %s", tt.income, tt.max, got, tt.want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Toby":        "toby",
		"Mary Jane":   "mary-jane",
		"  O'Brien ":  "o-brien",
		"!!!":         "member",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
