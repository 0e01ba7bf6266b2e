package syncer

import (
	"context"
	"errors"

	"telcosync/internal/logging"
	"telcosync/internal/providers"
	"telcosync/internal/services"
)

// backfill re-fetches calls stored without either phone number. A call the
// provider no longer retains is tombstoned; its row and data stay.
func (e *Engine) backfill(ctx context.Context, adapter providers.Adapter, providerID int32, counts *Counts) error {
	logger := logging.WithContext(ctx, e.logger)
	candidates, err := e.store.CallsMissingPhones(ctx, providerID, e.opts.BackfillLimit)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}
	logger.Info("backfilling calls without phone numbers", logging.Int("candidates", len(candidates)))

	refreshed := 0
	for _, cand := range candidates {
		rec, err := adapter.GetCall(services.WithWorkspace(ctx, cand.WorkspaceID), cand.ExternalID)
		switch {
		case errors.Is(err, services.ErrNotFound):
			marked, markErr := e.store.MarkTombstoned(ctx, cand.ID)
			if markErr != nil {
				return markErr
			}
			if marked {
				counts.Tombstoned++
			}
			continue
		case errors.Is(err, services.ErrData):
			counts.DataErrors++
			continue
		case err != nil:
			return err
		}
		if err := e.storeCall(ctx, providerID, rec, counts); err != nil {
			return err
		}
		refreshed++
	}
	logger.Info("backfill finished",
		logging.Int("refreshed", refreshed),
		logging.Int("tombstoned", counts.Tombstoned),
	)
	return nil
}
