package contacts

import (
	"context"
	"log/slog"
	"time"

	"telcosync/internal/logging"
	"telcosync/internal/phone"
	"telcosync/internal/services"
	"telcosync/internal/warehouse"
)

// Store is the warehouse surface the aggregator needs.
type Store interface {
	AggregateContacts(ctx context.Context) (warehouse.AggregateResult, error)
	RollupRows(ctx context.Context) ([]warehouse.RollupRow, error)
	ApplyRollups(ctx context.Context, rollups []warehouse.ContactRollup) (int64, error)
	ClearDNC(ctx context.Context, phone, reason, actor string) (bool, error)
}

// Result summarises an aggregation pass.
type Result struct {
	Inserted   int64
	Updated    int64
	Classified int
	RolledUp   int64
	DNC        int
	Duration   time.Duration
}

// Aggregator rebuilds telco.contacts.
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

// New builds an Aggregator.
func New(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logging.NewComponentLogger(logger, "contacts")}
}

// Aggregate refreshes call counts for every number and then rolls the call
// classifications up onto the contacts. Running it twice without new data
// changes nothing.
func (a *Aggregator) Aggregate(ctx context.Context) (Result, error) {
	started := time.Now()
	var res Result

	counts, err := a.store.AggregateContacts(ctx)
	if err != nil {
		return res, err
	}
	res.Inserted, res.Updated = counts.Inserted, counts.Updated

	rows, err := a.store.RollupRows(ctx)
	if err != nil {
		return res, err
	}
	rollups := Fold(rows)
	for _, r := range rollups {
		if r.IsDNC {
			res.DNC++
		}
	}
	res.Classified = len(rollups)

	res.RolledUp, err = a.store.ApplyRollups(ctx, rollups)
	if err != nil {
		return res, err
	}
	res.Duration = time.Since(started)

	a.logger.Info("contacts aggregated",
		logging.Int64("inserted", res.Inserted),
		logging.Int64("updated", res.Updated),
		logging.Int("classified_contacts", res.Classified),
		logging.Int64("rolled_up", res.RolledUp),
		logging.Int("dnc_contacts", res.DNC),
		logging.Duration("duration", res.Duration),
	)
	return res, nil
}

// ClearDNC lifts the DNC flag on a contact. raw may be any recognisable form
// of the number.
func (a *Aggregator) ClearDNC(ctx context.Context, raw, reason, actor string) (bool, error) {
	canonical := phone.Canonical(raw)
	if canonical == "" {
		return false, services.Wrap(services.ErrRejected, "contacts", "clear dnc", "not a recognisable phone number: "+raw, nil)
	}
	cleared, err := a.store.ClearDNC(ctx, canonical, reason, actor)
	if err != nil {
		return false, err
	}
	if cleared {
		a.logger.Info("dnc cleared",
			logging.Phone("phone", canonical),
			logging.String("reason", reason),
			logging.String("actor", actor),
		)
	} else {
		logging.WarnWithContext(a.logger, "dnc clear had no effect", "dnc_clear_noop",
			logging.Phone("phone", canonical),
			logging.Hint("the contact does not exist or is not DNC"),
		)
	}
	return cleared, nil
}
