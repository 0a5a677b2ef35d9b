package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"housebudget/internal/amqp"
	"housebudget/internal/budget"
	"housebudget/internal/cache"
	"housebudget/internal/core"
	"housebudget/internal/storage"
)

type fakeStore struct {
	mu        sync.Mutex
	records   []core.Outgoing
	listErr   error
	saveErr   error
	listCalls int
}

func (f *fakeStore) ListOutgoings(context.Context) ([]core.Outgoing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Outgoing(nil), f.records...), nil
}

func (f *fakeStore) ReplaceOutgoings(_ context.Context, person string, records []core.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	var kept []core.Outgoing
	for _, r := range f.records {
		if r.Person != person {
			kept = append(kept, r)
		}
	}
	f.records = append(kept, records...)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.listErr }
func (f *fakeStore) Close() error               { return nil }

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.OutgoingsReplacedMessage
	err  error
}

func (p *fakePublisher) PublishOutgoingsReplaced(_ context.Context, msg *amqp.OutgoingsReplacedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func household() core.Household {
	return core.Household{Members: []core.Person{
		{Name: "Toby", Income: core.Pounds(4600)},
		{Name: "Abby", Income: core.Pounds(5719)},
	}}
}

func rec(person, label string, pounds int64) core.Outgoing {
	return core.Outgoing{Person: person, Label: label, Amount: core.Pounds(pounds)}
}

func TestSummary(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{
		rec("Toby", "Rent", 600),
		rec("Toby", "Rent", 600),
		rec("Toby", "Phone", 20),
		rec("Abby", "Gym", 40),
	}}
	svc := NewHouseholdService(store, household(), budget.DefaultBands())

	sum, err := svc.Summary(context.Background(), core.Pounds(1800))
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if len(sum.People) != 2 {
		t.Fatalf("expected 2 people, got %d", len(sum.People))
	}
	toby := sum.People[0]
	if toby.Outgoings != core.Pounds(1220) {
		t.Errorf("Toby outgoings = %s, want £1,220", core.FormatGBP(toby.Outgoings))
	}
	// 4600 - 1220 - 1800
	if toby.Savings() != core.Pounds(1580) {
		t.Errorf("Toby savings = %s, want £1,580", core.FormatGBP(toby.Savings()))
	}
	// Rent is merged, so two categories + Spending Money + Remaining.
	if len(toby.Allocation.Segments) != 4 {
		t.Errorf("Toby segments = %d, want 4", len(toby.Allocation.Segments))
	}

	abby := sum.People[1]
	if abby.Savings() != core.Pounds(3879) {
		t.Errorf("Abby savings = %s, want £3,879", core.FormatGBP(abby.Savings()))
	}
	if sum.CombinedSavings != core.Pounds(1580+3879) {
		t.Errorf("CombinedSavings = %s", core.FormatGBP(sum.CombinedSavings))
	}
	if sum.SpendingPerDay != core.Pounds(60) {
		t.Errorf("SpendingPerDay = %s", core.FormatGBP(sum.SpendingPerDay))
	}
}

func TestSummaryDataUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	svc := NewHouseholdService(&fakeStore{listErr: cause}, household(), budget.DefaultBands())

	_, err := svc.Summary(context.Background(), core.Pounds(1800))
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause should be preserved, got %v", err)
	}
}

func TestSummaryRejectsNegativeSpending(t *testing.T) {
	svc := NewHouseholdService(&fakeStore{}, household(), budget.DefaultBands())
	if _, err := svc.Summary(context.Background(), core.Pounds(-1)); !errors.Is(err, budget.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReplaceOutgoings(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600), rec("Abby", "Gym", 40)}}
	pub := &fakePublisher{}
	c := cache.NewLRUCache[[]core.Outgoing](4, time.Minute)
	svc := NewHouseholdService(store, household(), budget.DefaultBands(), WithCache(c), WithPublisher(pub))
	ctx := context.Background()

	// Warm the cache so we can see it invalidated.
	if _, err := svc.Outgoings(ctx); err != nil {
		t.Fatal(err)
	}

	err := svc.ReplaceOutgoings(ctx, "Toby", []core.Outgoing{
		{Label: "  Rent ", Amount: core.Pounds(650)},
		{Label: "Car", Amount: core.Pounds(120)},
	})
	if err != nil {
		t.Fatalf("ReplaceOutgoings() error = %v", err)
	}

	toby, err := svc.OutgoingsFor(ctx, "Toby")
	if err != nil {
		t.Fatal(err)
	}
	if len(toby) != 2 || toby[0].Label != "Rent" || toby[0].Person != "Toby" {
		t.Errorf("unexpected Toby records: %+v", toby)
	}
	if store.listCalls != 2 {
		t.Errorf("cache should be invalidated after save, list calls = %d", store.listCalls)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.msgs))
	}
	if m := pub.msgs[0]; m.Person != "Toby" || m.Count != 2 || m.TotalPence != 77000 {
		t.Errorf("unexpected message: %+v", m)
	}
}

func TestReplaceOutgoingsValidation(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600)}}
	svc := NewHouseholdService(store, household(), budget.DefaultBands())
	ctx := context.Background()

	tests := []struct {
		name    string
		person  string
		records []core.Outgoing
		wantErr error
	}{
		{"unknown person", "Mallory", nil, core.ErrUnknownPerson},
		{"reserved remaining", "Toby", []core.Outgoing{{Label: "remaining", Amount: core.Pounds(1)}}, core.ErrReservedLabel},
		{"reserved spending", "Toby", []core.Outgoing{{Label: "Spending Money", Amount: core.Pounds(1)}}, core.ErrReservedLabel},
		{"empty label", "Toby", []core.Outgoing{{Label: " ", Amount: core.Pounds(1)}}, core.ErrEmptyOutgoing},
		{"negative amount", "Toby", []core.Outgoing{{Label: "Rent", Amount: core.Money{Pence: -1}}}, core.ErrInvalidAmount},
		{"amount above ceiling", "Toby", []core.Outgoing{{Label: "Rent", Amount: core.MaxAmount.Add(core.Money{Pence: 1})}}, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ReplaceOutgoings(ctx, tt.person, tt.records)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Nothing above may have touched the stored rows.
	got, _ := svc.OutgoingsFor(ctx, "Toby")
	if len(got) != 1 || got[0].Amount != core.Pounds(600) {
		t.Errorf("records changed by rejected saves: %+v", got)
	}
}

func TestReplaceOutgoingsEmptyClears(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600)}}
	svc := NewHouseholdService(store, household(), budget.DefaultBands())

	if err := svc.ReplaceOutgoings(context.Background(), "Toby", nil); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.OutgoingsFor(context.Background(), "Toby")
	if len(got) != 0 {
		t.Errorf("expected no records, got %+v", got)
	}
}

func TestReplaceOutgoingsSaveError(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	pub := &fakePublisher{}
	svc := NewHouseholdService(store, household(), budget.DefaultBands(), WithPublisher(pub))

	err := svc.ReplaceOutgoings(context.Background(), "Abby", []core.Outgoing{{Label: "Gym", Amount: core.Pounds(40)}})
	if !errors.Is(err, storage.ErrSave) {
		t.Fatalf("expected storage.ErrSave, got %v", err)
	}
	var saveErr *storage.SaveError
	if !errors.As(err, &saveErr) || saveErr.Person != "Abby" {
		t.Errorf("expected SaveError for Abby, got %#v", err)
	}
	if len(pub.msgs) != 0 {
		t.Error("failed save must not publish")
	}
}

func TestReplaceOutgoingsPublishFailureDoesNotFailSave(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewHouseholdService(store, household(), budget.DefaultBands(), WithPublisher(pub))

	err := svc.ReplaceOutgoings(context.Background(), "Toby", []core.Outgoing{{Label: "Rent", Amount: core.Pounds(600)}})
	if err != nil {
		t.Fatalf("publish failure should not fail the save, got %v", err)
	}
}

func TestOutgoingsUsesCache(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600)}}
	c := cache.NewLRUCache[[]core.Outgoing](4, time.Minute)
	svc := NewHouseholdService(store, household(), budget.DefaultBands(), WithCache(c))

	for i := 0; i < 3; i++ {
		if _, err := svc.Outgoings(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if store.listCalls != 1 {
		t.Errorf("expected 1 store call, got %d", store.listCalls)
	}
}

// blockingStore holds its first ListOutgoings after reading the rows, so a
// save can commit while that load is still in flight.
type blockingStore struct {
	*fakeStore
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListOutgoings(ctx context.Context) ([]core.Outgoing, error) {
	records, err := b.fakeStore.ListOutgoings(ctx)
	b.once.Do(func() {
		close(b.listed)
		<-b.release
	})
	return records, err
}

func TestOutgoingsLoadRacingSaveDoesNotCacheOldRows(t *testing.T) {
	store := &blockingStore{
		fakeStore: &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600)}},
		listed:    make(chan struct{}),
		release:   make(chan struct{}),
	}
	c := cache.NewLRUCache[[]core.Outgoing](4, time.Minute)
	svc := NewHouseholdService(store, household(), budget.DefaultBands(), WithCache(c))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Outgoings(ctx)
		done <- err
	}()

	<-store.listed
	if err := svc.ReplaceOutgoings(ctx, "Toby", []core.Outgoing{{Label: "Rent", Amount: core.Pounds(650)}}); err != nil {
		t.Fatal(err)
	}
	close(store.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if n := c.Size(); n != 0 {
		t.Fatalf("load that began before the save filled the cache (%d entries)", n)
	}
	got, err := svc.OutgoingsFor(ctx, "Toby")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Amount != core.Pounds(650) {
		t.Errorf("got %+v, want the saved £650 rent", got)
	}
}

func TestReplaceOutgoingsTooMany(t *testing.T) {
	store := &fakeStore{records: []core.Outgoing{rec("Toby", "Rent", 600)}}
	svc := NewHouseholdService(store, household(), budget.DefaultBands())

	records := make([]core.Outgoing, core.MaxOutgoingsPerPerson+1)
	for i := range records {
		records[i] = core.Outgoing{Label: "Item", Amount: core.MaxAmount}
	}
	err := svc.ReplaceOutgoings(context.Background(), "Toby", records)
	if !errors.Is(err, core.ErrTooManyOutgoings) {
		t.Fatalf("expected ErrTooManyOutgoings, got %v", err)
	}
	if len(store.records) != 1 {
		t.Errorf("rejected save changed stored records: %+v", store.records)
	}

	// The ceiling itself is accepted and its total still fits.
	records = records[:core.MaxOutgoingsPerPerson]
	if err := svc.ReplaceOutgoings(context.Background(), "Toby", records); err != nil {
		t.Fatal(err)
	}
	sum, err := svc.Summary(context.Background(), core.MaxAmount)
	if err != nil {
		t.Fatal(err)
	}
	toby := sum.People[0]
	if want := int64(core.MaxOutgoingsPerPerson) * core.MaxAmount.Pence; toby.Outgoings.Pence != want {
		t.Errorf("Outgoings = %d pence, want %d", toby.Outgoings.Pence, want)
	}
	if !toby.Savings().IsNegative() {
		t.Errorf("savings should be a shortfall, got %v", toby.Savings())
	}
}

func TestSummaryRejectsHugeSpending(t *testing.T) {
	svc := NewHouseholdService(&fakeStore{}, household(), budget.DefaultBands())
	huge := core.MaxAmount.Add(core.Money{Pence: 1})
	if _, err := svc.Summary(context.Background(), huge); !errors.Is(err, budget.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProjectUsesConfiguredBands(t *testing.T) {
	bands, err := budget.ParseBands("100000:0,inf:0.5")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewHouseholdService(&fakeStore{}, household(), bands)

	p, err := svc.Project(budget.ProjectionInput{HousePrice: core.Pounds(200000), Months: 1})
	if err != nil {
		t.Fatal(err)
	}
	if p.StampDuty != core.Pounds(50000) {
		t.Errorf("StampDuty = %s, want £50,000", core.FormatGBP(p.StampDuty))
	}
}

func TestReady(t *testing.T) {
	svc := NewHouseholdService(&fakeStore{listErr: errors.New("down")}, household(), budget.DefaultBands())
	if err := svc.Ready(context.Background()); err == nil {
		t.Error("expected readiness error")
	}
}

func TestClose(t *testing.T) {
	svc := NewHouseholdService(&fakeStore{}, household(), budget.DefaultBands(), WithPublisher(&fakePublisher{}))
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
