package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Labels for synthetic allocation entries. User categories may not use them.
const (
	LabelRemaining     = "Remaining"
	LabelSpendingMoney = "Spending Money"
)

const maxLabelLength = 100

// MaxOutgoingsPerPerson bounds one member's record set.
const MaxOutgoingsPerPerson = 200

type (
	// Person is a household member with a fixed monthly income.
	Person struct {
		Name   string
		Income Money
	}

	// Outgoing is a recurring monthly expense attributed to one person.
	Outgoing struct {
		Person string
		Label  string // category label, e.g. "Rent"
		Amount Money
	}

	// Household is the ordered, fixed set of members the dashboard reports on.
	Household struct {
		Members []Person
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyOutgoing    = errors.New("empty outgoing label")
	ErrReservedLabel    = errors.New("outgoing label is reserved")
	ErrUnknownPerson    = errors.New("unknown person")
	ErrEmptyHousehold   = errors.New("household has no members")
	ErrTooManyOutgoings = errors.New("too many outgoings")
)

func (o Outgoing) Validate() error {
	label := strings.TrimSpace(o.Label)
	if label == "" {
		return ErrEmptyOutgoing
	}
	if utf8.RuneCountInString(label) > maxLabelLength {
		return fmt.Errorf("outgoing label too long (max %d characters)", maxLabelLength)
	}
	if IsReservedLabel(label) {
		return fmt.Errorf("%w: %q", ErrReservedLabel, label)
	}
	if strings.TrimSpace(o.Person) == "" {
		return ErrUnknownPerson
	}
	return o.Amount.Validate()
}

// IsReservedLabel reports whether label collides with a synthetic allocation entry.
func IsReservedLabel(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, LabelRemaining) || strings.EqualFold(label, LabelSpendingMoney)
}

// Lookup finds a member by exact name.
func (h Household) Lookup(name string) (Person, bool) {
	for _, p := range h.Members {
		if p.Name == name {
			return p, true
		}
	}
	return Person{}, false
}

// Names returns member names in configured order.
func (h Household) Names() []string {
	names := make([]string, len(h.Members))
	for i, p := range h.Members {
		names[i] = p.Name
	}
	return names
}

// ParseHousehold parses "Name:income,Name:income" (incomes in pounds).
func ParseHousehold(s string) (Household, error) {
	var h Household
	seen := map[string]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, income, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return Household{}, fmt.Errorf("invalid member %q: want name:income", part)
		}
		if _, dup := seen[name]; dup {
			return Household{}, fmt.Errorf("duplicate member %q", name)
		}
		amount, err := ParseAmount(income)
		if err != nil {
			return Household{}, fmt.Errorf("invalid income for %s: %w", name, err)
		}
		seen[name] = struct{}{}
		h.Members = append(h.Members, Person{Name: name, Income: amount})
	}
	if len(h.Members) == 0 {
		return Household{}, ErrEmptyHousehold
	}
	return h, nil
}

// String renders the household back into its configuration form.
func (h Household) String() string {
	parts := make([]string, len(h.Members))
	for i, p := range h.Members {
		parts[i] = p.Name + ":" + strconv.FormatInt(p.Income.WholePounds(), 10)
	}
	return strings.Join(parts, ",")
}
