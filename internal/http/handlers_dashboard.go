package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"housebudget/internal/budget"
	"housebudget/internal/core"
	"housebudget/internal/log"
	"housebudget/internal/services"
)

// blankEditorRows is how many empty rows the editor offers for new entries.
const blankEditorRows = 3

type dashboardView struct {
	Params      ProjectionParams
	Query       string
	Error       string
	Unavailable bool

	MonthlySavings core.Money
	Spending       string
	SpendingPerDay string
	Projection     projectionView
	People         []personView
}

type projectionView struct {
	HousePrice    string
	StampDuty     string
	Deposit       string
	TotalRequired string
	Months        int
	Saved         string
	Equity        string
	TotalSaved    string
	Shortfall     string
	CanAfford     bool
	Bands         []bandView
}

type bandView struct {
	Range   string
	Rate    string
	Taxable string
	Tax     string
}

type personView struct {
	Name      string
	Income    string
	Outgoings string
	Savings   string
	Shortfall bool
	Scale     string
	Segments  []segmentView
}

// dashboardFor builds the dashboard for the request's query. Bad input is
// reported alongside a dashboard computed from the remaining defaults.
func (s *Server) dashboardFor(r *http.Request) (dashboardView, int) {
	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()

	status := http.StatusOK
	params, perr := ParseProjectionParams(r.URL.Query())

	view, err := s.buildDashboard(ctx, params)
	switch {
	case errors.Is(err, services.ErrDataUnavailable):
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard data unavailable", log.FieldError, err)
		return dashboardView{Params: params, Unavailable: true}, http.StatusServiceUnavailable
	case err != nil && errors.Is(err, budget.ErrInvalidInput):
		view.Error = err.Error()
		status = http.StatusUnprocessableEntity
	case err != nil:
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard build failed", log.FieldError, err)
		view.Error = "Something went wrong calculating the projection."
		status = http.StatusInternalServerError
	}
	if perr != nil {
		view.Error = perr.Error()
		status = http.StatusUnprocessableEntity
	}
	return view, status
}

func (s *Server) buildDashboard(ctx context.Context, params ProjectionParams) (dashboardView, error) {
	view := dashboardView{Params: params, Query: params.Query().Encode()}

	sum, err := s.household.Summary(ctx, params.Spending)
	if err != nil {
		return view, err
	}

	view.Spending = core.FormatGBP(sum.Spending)
	view.SpendingPerDay = core.FormatGBP(sum.SpendingPerDay)

	var maxIncome core.Money
	for _, p := range sum.People {
		if p.Person.Income.Pence > maxIncome.Pence {
			maxIncome = p.Person.Income
		}
	}
	for _, p := range sum.People {
		view.People = append(view.People, personView{
			Name:      p.Person.Name,
			Income:    core.FormatGBP(p.Person.Income),
			Outgoings: core.FormatGBP(p.Outgoings),
			Savings:   core.FormatGBP(p.Savings()),
			Shortfall: p.Savings().IsNegative(),
			Scale:     barScale(p.Person.Income, maxIncome),
			Segments:  barSegments(p.Allocation),
		})
	}

	view.MonthlySavings = sum.CombinedSavings
	if params.HasSavings {
		view.MonthlySavings = params.Savings
	}

	proj, err := s.household.Project(budget.ProjectionInput{
		HousePrice:     params.HousePrice,
		MonthlySavings: view.MonthlySavings,
		Months:         params.Months,
		Equity:         params.Equity,
	})
	if err != nil {
		return view, err
	}
	view.Projection = projectionView{
		HousePrice:    core.FormatGBP(proj.HousePrice),
		StampDuty:     core.FormatGBP(proj.StampDuty),
		Deposit:       core.FormatGBP(proj.Deposit),
		TotalRequired: core.FormatGBP(proj.TotalRequired),
		Months:        proj.Months,
		Saved:         core.FormatGBP(proj.Saved),
		Equity:        core.FormatGBP(proj.Equity),
		TotalSaved:    core.FormatGBP(proj.TotalSaved),
		Shortfall:     core.FormatGBP(proj.Shortfall),
		CanAfford:     proj.CanAfford,
	}

	if a, err := budget.Assess(params.HousePrice, s.household.Bands()); err == nil {
		view.Projection.Bands = bandViews(a)
	}
	return view, nil
}

func bandViews(a budget.Assessment) []bandView {
	out := make([]bandView, 0, len(a.Lines))
	for _, l := range a.Lines {
		rng := core.FormatGBP(l.From) + " to " + core.FormatGBP(l.To)
		if l.Unbounded {
			rng = "over " + core.FormatGBP(l.From)
		}
		out = append(out, bandView{
			Range:   rng,
			Rate:    l.Rate.Shift(2).String() + "%",
			Taxable: core.FormatGBP(l.Taxable),
			Tax:     core.FormatGBP(core.FromDecimal(l.Tax)),
		})
	}
	return out
}

type outgoingsPage struct {
	Saved   string
	Editors []editorView
}

type editorView struct {
	Person      string
	ID          string
	Rows        []EditorRow
	Blank       []struct{}
	Total       string
	Error       string
	Saved       bool
	Unavailable bool
}

func newEditorView(person string, rows []EditorRow) editorView {
	return editorView{
		Person: person,
		ID:     slug(person),
		Rows:   rows,
		Blank:  make([]struct{}, blankEditorRows),
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a member name into a safe HTML id fragment.
func slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "member"
	}
	return s
}
