package sheets

import (
	"context"
	"time"

	"housebudget/internal/core"
)

// Snapshot is the full set of a person's outgoings at one point in time.
type Snapshot struct {
	Person    string
	Income    core.Money
	Records   []core.Outgoing
	UpdatedAt time.Time
}

// Total sums the snapshot's records.
func (s Snapshot) Total() core.Money {
	return core.TotalOutgoings(s.Records)
}

// Ports for outbound adapters.
type (
	// SnapshotWriter overwrites whatever the target holds for the person.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, snap Snapshot) error
	}
)
