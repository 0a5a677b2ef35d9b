package core

// CategoryAmount represents an amount aggregated by category label.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Total sums the amounts of a category list.
func Total(items []CategoryAmount) Money {
	var t Money
	for _, c := range items {
		t = t.Add(c.Amount)
	}
	return t
}

// TotalOutgoings sums raw outgoing records.
func TotalOutgoings(records []Outgoing) Money {
	var t Money
	for _, o := range records {
		t = t.Add(o.Amount)
	}
	return t
}
