package budget

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"housebudget/internal/core"
)

func TestStampDuty(t *testing.T) {
	bands := DefaultBands()
	tests := []struct {
		name  string
		price int64 // pounds
		want  int64 // pounds
	}{
		{"zero price", 0, 0},
		{"inside nil band", 100000, 0},
		{"nil band boundary", 125000, 0},
		{"first pound of 2% band", 125001, 0},
		{"2% band boundary", 250000, 2500},
		{"inside 5% band", 300000, 5000},
		{"house price default", 750000, 27500},
		{"5% band boundary", 925000, 36250},
		{"10% band boundary", 1500000, 93750},
		{"12% band", 2000000, 153750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StampDuty(core.Pounds(tt.price), bands)
			if err != nil {
				t.Fatalf("StampDuty(%d) error = %v", tt.price, err)
			}
			if got != core.Pounds(tt.want) {
				t.Errorf("StampDuty(%d) = %s, want £%d", tt.price, core.FormatGBP(got), tt.want)
			}
		})
	}
}

func TestStampDutyRounding(t *testing.T) {
	// 125,025 -> 25 * 0.02 = 0.50, rounds half to even -> 0
	got, err := StampDuty(core.Pounds(125025), DefaultBands())
	if err != nil {
		t.Fatal(err)
	}
	if got.Pence != 0 {
		t.Errorf("expected £0, got %s", core.FormatGBP(got))
	}
	// 125,075 -> 1.50 -> 2
	got, _ = StampDuty(core.Pounds(125075), DefaultBands())
	if got != core.Pounds(2) {
		t.Errorf("expected £2, got %s", core.FormatGBP(got))
	}
}

func TestStampDutyZeroUpToFirstThreshold(t *testing.T) {
	for p := int64(0); p <= 125000; p += 5000 {
		got, err := StampDuty(core.Pounds(p), DefaultBands())
		if err != nil || got.Pence != 0 {
			t.Fatalf("StampDuty(%d) = %d, %v; want 0", p, got.Pence, err)
		}
	}
}

func TestStampDutyMonotonic(t *testing.T) {
	bands := DefaultBands()
	prev := core.Money{}
	for p := int64(0); p <= 2_500_000; p += 7_500 {
		got, err := StampDuty(core.Pounds(p), bands)
		if err != nil {
			t.Fatalf("StampDuty(%d) error = %v", p, err)
		}
		if got.Pence < prev.Pence {
			t.Fatalf("duty decreased at %d: %d < %d", p, got.Pence, prev.Pence)
		}
		prev = got
	}
}

func TestStampDutyNegativePrice(t *testing.T) {
	_, err := StampDuty(core.Pounds(-1), DefaultBands())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssessLines(t *testing.T) {
	a, err := Assess(core.Pounds(300000), DefaultBands())
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Lines) != 3 {
		t.Fatalf("expected 3 bands touched, got %d", len(a.Lines))
	}
	last := a.Lines[2]
	if last.From != core.Pounds(250000) || last.Taxable != core.Pounds(50000) {
		t.Errorf("unexpected third line: %+v", last)
	}
	if !last.Tax.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("third line tax = %s, want 2500", last.Tax)
	}

	// Exactly on a boundary the next band is not touched.
	a, _ = Assess(core.Pounds(250000), DefaultBands())
	if len(a.Lines) != 2 {
		t.Errorf("expected 2 lines at boundary, got %d", len(a.Lines))
	}
}

func TestParseBands(t *testing.T) {
	b, err := ParseBands("125000:0, 125000:0.02, 675000:0.05, 575000:0.10, inf:0.12")
	if err != nil {
		t.Fatalf("ParseBands error = %v", err)
	}
	if len(b) != 5 || !b[4].Unbounded {
		t.Fatalf("unexpected bands: %+v", b)
	}
	if got := b.String(); got != DefaultBands().String() {
		t.Errorf("round trip = %q, want %q", got, DefaultBands().String())
	}

	bad := []string{
		"",
		"125000:0",            // final band bounded
		"inf:0,125000:0.02",   // unbounded band not last
		"-5:0,inf:0.1",        // negative width
		"125000:1.5,inf:0.1",  // rate above 1
		"125000:-0.1,inf:0.1", // negative rate
		"125000,inf:0.1",      // missing rate
		"abc:0.1,inf:0.1",     // bad width
		"125000:zero,inf:0.1", // bad rate
	}
	for _, in := range bad {
		if _, err := ParseBands(in); !errors.Is(err, ErrInvalidBands) {
			t.Errorf("ParseBands(%q) error = %v, want ErrInvalidBands", in, err)
		}
	}
}

func TestCustomBands(t *testing.T) {
	b, err := ParseBands("100:0,inf:0.5")
	if err != nil {
		t.Fatal(err)
	}
	got, err := StampDuty(core.Pounds(300), b)
	if err != nil {
		t.Fatal(err)
	}
	if got != core.Pounds(100) {
		t.Errorf("got %s, want £100", core.FormatGBP(got))
	}
}
