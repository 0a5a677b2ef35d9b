package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"housebudget/internal/budget"
	"housebudget/internal/core"
	"housebudget/internal/log"
	"housebudget/internal/services"
)

type segmentJSON struct {
	Label       string `json:"label"`
	AmountPence int64  `json:"amount_pence"`
	Color       string `json:"color"`
}

type personJSON struct {
	Name           string        `json:"name"`
	IncomePence    int64         `json:"income_pence"`
	OutgoingsPence int64         `json:"outgoings_pence"`
	SavingsPence   int64         `json:"savings_pence"`
	Breakdown      []segmentJSON `json:"breakdown"`
}

type projectionJSON struct {
	HousePricePence    int64 `json:"house_price_pence"`
	StampDutyPence     int64 `json:"stamp_duty_pence"`
	DepositPence       int64 `json:"deposit_pence"`
	TotalRequiredPence int64 `json:"total_required_pence"`
	MonthlySavings     int64 `json:"monthly_savings_pence"`
	Months             int   `json:"months"`
	SavedPence         int64 `json:"saved_pence"`
	EquityPence        int64 `json:"equity_pence"`
	TotalSavedPence    int64 `json:"total_saved_pence"`
	ShortfallPence     int64 `json:"shortfall_pence"`
	CanAfford          bool  `json:"can_afford"`
}

type summaryJSON struct {
	People               []personJSON   `json:"people"`
	SpendingPence        int64          `json:"spending_pence"`
	SpendingPerDayPence  int64          `json:"spending_per_day_pence"`
	CombinedIncomePence  int64          `json:"combined_income_pence"`
	CombinedSavingsPence int64          `json:"combined_savings_pence"`
	Projection           projectionJSON `json:"projection"`
}

type bandJSON struct {
	FromPence    int64  `json:"from_pence"`
	ToPence      *int64 `json:"to_pence,omitempty"`
	Rate         string `json:"rate"`
	TaxablePence int64  `json:"taxable_pence"`
	TaxPence     int64  `json:"tax_pence"`
}

type stampDutyJSON struct {
	PricePence     int64      `json:"price_pence"`
	StampDutyPence int64      `json:"stamp_duty_pence"`
	Bands          []bandJSON `json:"bands"`
}

// handleAPISummary returns the household summary and projection as JSON.
// It accepts the same query parameters as the dashboard.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	params, err := ParseProjectionParams(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sum, err := s.household.Summary(ctx, params.Spending)
	if err != nil {
		s.writeAPIError(ctx, w, err)
		return
	}

	savings := sum.CombinedSavings
	if params.HasSavings {
		savings = params.Savings
	}
	proj, err := s.household.Project(budget.ProjectionInput{
		HousePrice:     params.HousePrice,
		MonthlySavings: savings,
		Months:         params.Months,
		Equity:         params.Equity,
	})
	if err != nil {
		s.writeAPIError(ctx, w, err)
		return
	}

	out := summaryJSON{
		SpendingPence:        sum.Spending.Pence,
		SpendingPerDayPence:  sum.SpendingPerDay.Pence,
		CombinedIncomePence:  sum.CombinedIncome.Pence,
		CombinedSavingsPence: sum.CombinedSavings.Pence,
		Projection: projectionJSON{
			HousePricePence:    proj.HousePrice.Pence,
			StampDutyPence:     proj.StampDuty.Pence,
			DepositPence:       proj.Deposit.Pence,
			TotalRequiredPence: proj.TotalRequired.Pence,
			MonthlySavings:     savings.Pence,
			Months:             proj.Months,
			SavedPence:         proj.Saved.Pence,
			EquityPence:        proj.Equity.Pence,
			TotalSavedPence:    proj.TotalSaved.Pence,
			ShortfallPence:     proj.Shortfall.Pence,
			CanAfford:          proj.CanAfford,
		},
	}
	for _, p := range sum.People {
		pj := personJSON{
			Name:           p.Person.Name,
			IncomePence:    p.Person.Income.Pence,
			OutgoingsPence: p.Outgoings.Pence,
			SavingsPence:   p.Savings().Pence,
		}
		for _, seg := range p.Allocation.Segments {
			pj.Breakdown = append(pj.Breakdown, segmentJSON{Label: seg.Label, AmountPence: seg.Amount.Pence, Color: seg.Color})
		}
		out.People = append(out.People, pj)
	}

	writeJSON(w, http.StatusOK, out)
}

// handleAPIStampDuty returns the duty on ?price= with its per-band working.
func (s *Server) handleAPIStampDuty(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("price"))
	if raw == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "price: required")
		return
	}
	price, err := core.ParseAmount(raw)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "price: must be a non-negative amount in pounds")
		return
	}

	a, err := budget.Assess(price, s.household.Bands())
	if err != nil {
		s.writeAPIError(r.Context(), w, err)
		return
	}

	out := stampDutyJSON{PricePence: a.Price.Pence, StampDutyPence: a.Total.Pence, Bands: []bandJSON{}}
	for _, l := range a.Lines {
		b := bandJSON{
			FromPence:    l.From.Pence,
			Rate:         l.Rate.String(),
			TaxablePence: l.Taxable.Pence,
			TaxPence:     core.FromDecimal(l.Tax).Pence,
		}
		if !l.Unbounded {
			to := l.To.Pence
			b.ToPence = &to
		}
		out.Bands = append(out.Bands, b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeAPIError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDataUnavailable):
		log.FromContext(ctx).ErrorContext(ctx, "Summary data unavailable", log.FieldError, err)
		writeJSONError(w, http.StatusServiceUnavailable, "data unavailable")
	case errors.Is(err, budget.ErrInvalidInput):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(ctx).ErrorContext(ctx, "API request failed", log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
