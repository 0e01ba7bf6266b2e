package syncer

import (
	"errors"
	"fmt"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/warehouse"
)

// Counts tallies what a unit did.
type Counts struct {
	Fetched    int
	Inserted   int
	Updated    int
	Unchanged  int
	DataErrors int
	Tombstoned int
}

func (c *Counts) add(outcome warehouse.Outcome) {
	switch outcome {
	case warehouse.OutcomeInserted:
		c.Inserted++
	case warehouse.OutcomeUpdated:
		c.Updated++
	default:
		c.Unchanged++
	}
}

// UnitResult is the outcome of one (provider, resource) unit.
type UnitResult struct {
	Provider    string
	Resource    providers.Kind
	Mode        string
	Window      Window
	Status      string
	Counts      Counts
	StartedAt   time.Time
	CompletedAt time.Time
	// Skipped is set when another process held the unit lock. Skipped units
	// write no sync_log row and do not count as failures.
	Skipped bool
	Err     error
}

// Summary collects the unit results of one run.
type Summary struct {
	RunID string
	Units []UnitResult
}

// Failed returns the units that ended in error or timeout.
func (s Summary) Failed() []UnitResult {
	var out []UnitResult
	for _, u := range s.Units {
		if !u.Skipped && u.Err != nil {
			out = append(out, u)
		}
	}
	return out
}

// Totals sums the counts of every unit.
func (s Summary) Totals() Counts {
	var total Counts
	for _, u := range s.Units {
		total.Fetched += u.Counts.Fetched
		total.Inserted += u.Counts.Inserted
		total.Updated += u.Counts.Updated
		total.Unchanged += u.Counts.Unchanged
		total.DataErrors += u.Counts.DataErrors
		total.Tombstoned += u.Counts.Tombstoned
	}
	return total
}

// Err joins unit failures so services.ExitCode can pick the exit status. It
// is nil when every unit succeeded or was skipped.
func (s Summary) Err() error {
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, u := range failed {
		errs = append(errs, fmt.Errorf("%s/%s: %w", u.Provider, u.Resource, u.Err))
	}
	joined := errors.Join(errs...)
	if len(failed) == len(s.Units) {
		return joined
	}
	return fmt.Errorf("%d of %d sync units failed: %w", len(failed), len(s.Units), joined)
}
