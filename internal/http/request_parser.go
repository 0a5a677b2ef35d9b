// Package http provides HTTP server and handler implementations.
//
// This file turns query strings and editor forms into validated domain
// values. Every parse error names the field or row it came from.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"housebudget/internal/budget"
	"housebudget/internal/core"
)

// Projection defaults used when the query string leaves a field out.
var (
	DefaultHousePrice = core.Pounds(750000)
	DefaultEquity     = core.Pounds(67750)
	DefaultSpending   = core.Pounds(1800)
)

// DefaultMonths is the default saving horizon.
const DefaultMonths = 12

// maxEditorRows bounds a single editor submission.
const maxEditorRows = core.MaxOutgoingsPerPerson

// errInvalidInput marks request errors that map to 422.
var errInvalidInput = errors.New("invalid input")

// FieldError reports which input was rejected.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Is(target error) bool { return target == errInvalidInput }

// ProjectionParams are the dashboard controls.
type ProjectionParams struct {
	HousePrice core.Money
	Savings    core.Money
	HasSavings bool // false means use the household's combined savings
	Months     int
	Equity     core.Money
	Spending   core.Money
	HideIncome bool
}

// ParseProjectionParams reads the dashboard controls from query values,
// falling back to defaults for absent or empty fields. Negative values and
// malformed numbers are errors, never silently defaulted.
func ParseProjectionParams(q url.Values) (ProjectionParams, error) {
	p := ProjectionParams{
		HousePrice: DefaultHousePrice,
		Months:     DefaultMonths,
		Equity:     DefaultEquity,
		Spending:   DefaultSpending,
	}

	var err error
	if p.HousePrice, err = moneyParam(q, "house_price", p.HousePrice); err != nil {
		return p, err
	}
	if p.Equity, err = moneyParam(q, "equity", p.Equity); err != nil {
		return p, err
	}
	if p.Spending, err = moneyParam(q, "spending", p.Spending); err != nil {
		return p, err
	}
	if v := strings.TrimSpace(q.Get("savings")); v != "" {
		// A shortfall budget saves a negative amount, so the sign is allowed here.
		if p.Savings, err = signedAmount(v); err != nil {
			return p, &FieldError{Field: "savings", Err: errors.New("must be an amount in pounds")}
		}
		p.HasSavings = true
	}
	if v := strings.TrimSpace(q.Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > budget.MaxMonths {
			return p, &FieldError{Field: "months", Err: fmt.Errorf("must be a whole number of months from 0 to %d", budget.MaxMonths)}
		}
		p.Months = n
	}
	p.HideIncome = parseBool(q.Get("hide_income"))

	return p, nil
}

// Query re-encodes the params so partials can link back to the same view.
func (p ProjectionParams) Query() url.Values {
	q := url.Values{}
	q.Set("house_price", strconv.FormatInt(p.HousePrice.WholePounds(), 10))
	q.Set("months", strconv.Itoa(p.Months))
	q.Set("equity", strconv.FormatInt(p.Equity.WholePounds(), 10))
	q.Set("spending", strconv.FormatInt(p.Spending.WholePounds(), 10))
	if p.HasSavings {
		q.Set("savings", strconv.FormatInt(p.Savings.WholePounds(), 10))
	}
	if p.HideIncome {
		q.Set("hide_income", "on")
	}
	return q
}

func moneyParam(q url.Values, field string, def core.Money) (core.Money, error) {
	v := strings.TrimSpace(q.Get(field))
	if v == "" {
		return def, nil
	}
	m, err := core.ParseAmount(v)
	if err != nil {
		return def, &FieldError{Field: field, Err: errors.New("must be a non-negative amount in pounds")}
	}
	return m, nil
}

func signedAmount(v string) (core.Money, error) {
	rest, neg := strings.CutPrefix(v, "-")
	m, err := core.ParseAmount(rest)
	if err != nil {
		return core.Money{}, err
	}
	if neg {
		m = core.Money{Pence: -m.Pence}
	}
	return m, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EditorRow is one submitted line of the outgoings editor, kept as typed so
// a rejected form can be shown back unchanged.
type EditorRow struct {
	Label  string
	Amount string
}

// ParseEditorRows pairs the repeated "label" and "amount" form fields.
// Rows with both fields blank are dropped; that is how a row is deleted.
func ParseEditorRows(form url.Values) []EditorRow {
	labels := form["label"]
	amounts := form["amount"]
	n := len(labels)
	if len(amounts) > n {
		n = len(amounts)
	}

	rows := make([]EditorRow, 0, n)
	for i := 0; i < n; i++ {
		var row EditorRow
		if i < len(labels) {
			row.Label = sanitizeInput(labels[i])
		}
		if i < len(amounts) {
			row.Amount = strings.TrimSpace(amounts[i])
		}
		if row.Label == "" && row.Amount == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// ToOutgoings validates rows into records for person. An empty slice is a
// valid submission and clears the person's outgoings.
func ToOutgoings(person string, rows []EditorRow) ([]core.Outgoing, error) {
	if len(rows) > maxEditorRows {
		return nil, &FieldError{Field: "rows", Err: fmt.Errorf("at most %d rows per save", maxEditorRows)}
	}

	records := make([]core.Outgoing, 0, len(rows))
	for i, row := range rows {
		field := fmt.Sprintf("row %d", i+1)
		if row.Label == "" {
			return nil, &FieldError{Field: field, Err: core.ErrEmptyOutgoing}
		}
		if row.Amount == "" {
			return nil, &FieldError{Field: field, Err: errors.New("amount is required")}
		}
		amount, err := core.ParseAmount(row.Amount)
		if err != nil {
			return nil, &FieldError{Field: field, Err: fmt.Errorf("%w: %q", err, row.Amount)}
		}
		rec := core.Outgoing{Person: person, Label: row.Label, Amount: amount}
		if err := rec.Validate(); err != nil {
			return nil, &FieldError{Field: field, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Malformed request")
	}
	return nil
}

// isHTMX reports whether the request came from htmx rather than a plain form post.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
