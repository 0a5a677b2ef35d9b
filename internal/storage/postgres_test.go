package storage

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"housebudget/internal/core"
)

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("housebudget"),
		postgres.WithUsername("housebudget"),
		postgres.WithPassword("housebudget"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	repo, err := NewPostgresRepository(dsn)
	if err != nil {
		t.Fatalf("NewPostgresRepository() error = %v", err)
	}
	defer repo.Close()

	if err := repo.ReplaceOutgoings(ctx, "Abby", []core.Outgoing{
		{Person: "Abby", Label: "Rent", Amount: core.Pounds(600)},
		{Person: "Abby", Label: "Gym", Amount: core.Pounds(40)},
	}); err != nil {
		t.Fatalf("ReplaceOutgoings() error = %v", err)
	}

	err = repo.ReplaceOutgoings(ctx, "Abby", []core.Outgoing{
		{Person: "Abby", Label: "Bad", Amount: core.Money{Pence: -5}},
	})
	if err == nil {
		t.Fatal("expected constraint violation")
	}

	got, err := repo.ListOutgoingsByPerson(ctx, "Abby")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Label != "Rent" {
		t.Errorf("unexpected records after rollback: %+v", got)
	}
}
