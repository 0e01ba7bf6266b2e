package syncer

import (
	"context"
	"fmt"

	"telcosync/internal/logging"
	"telcosync/internal/providers"
	"telcosync/internal/services"
)

// maxPages bounds a single unit against adapters that never report exhaustion.
const maxPages = 10000

func (e *Engine) syncKind(ctx context.Context, adapter providers.Adapter, providerID int32, kind providers.Kind, w Window, counts *Counts) error {
	switch kind {
	case providers.KindCalls:
		return e.pullCalls(ctx, adapter, providerID, w, counts)
	case providers.KindMessages:
		lister, ok := adapter.(providers.MessageLister)
		if !ok {
			return unsupported(adapter, kind)
		}
		return e.pullMessages(ctx, lister, providerID, w, counts)
	case providers.KindRecordings:
		lister, ok := adapter.(providers.RecordingLister)
		if !ok {
			return unsupported(adapter, kind)
		}
		return e.pullRecordings(ctx, lister, providerID, w, counts)
	case providers.KindBalance:
		return e.snapshotBalance(ctx, adapter, providerID, counts)
	case providers.KindConcurrency:
		return e.snapshotConcurrency(ctx, adapter, providerID, counts)
	default:
		return e.pullResources(ctx, adapter, providerID, kind, counts)
	}
}

func unsupported(adapter providers.Adapter, kind providers.Kind) error {
	return services.Wrap(services.ErrUnsupported, adapter.Name(), string(kind), "adapter does not expose this resource", nil)
}

// pullCalls pages through the window. The row cap applies per partition, so
// an adapter spanning several accounts gives each one its own share.
func (e *Engine) pullCalls(ctx context.Context, adapter providers.Adapter, providerID int32, w Window, counts *Counts) error {
	logger := logging.WithContext(ctx, e.logger)
	cursor := ""
	partition, fetched := "", 0
	for page := 0; page < maxPages; page++ {
		result, err := adapter.ListCalls(ctx, providers.CallQuery{
			Since:  w.Since,
			Until:  w.Until,
			Cursor: cursor,
			Order:  w.Order,
			Limit:  remaining(w.Limit, fetched),
		})
		if err != nil {
			return err
		}
		if result.Partition != partition {
			partition, fetched = result.Partition, 0
		}
		if result.Skipped > 0 {
			counts.DataErrors += result.Skipped
			logger.Warn("skipped undecodable call rows",
				logging.String("provider", adapter.Name()),
				logging.Int("skipped", result.Skipped),
			)
		}
		for _, rec := range result.Calls {
			if capped(w.Limit, fetched) {
				break
			}
			if err := e.storeCall(ctx, providerID, rec, counts); err != nil {
				return err
			}
			fetched++
		}
		if capped(w.Limit, fetched) {
			if result.SkipCursor == "" {
				return nil
			}
			logger.Debug("partition row cap reached",
				logging.String("partition", partition),
				logging.Int("fetched", fetched),
			)
			cursor, partition, fetched = result.SkipCursor, "", 0
			continue
		}
		if result.Exhausted || result.NextCursor == "" || result.NextCursor == cursor {
			return nil
		}
		cursor = result.NextCursor
		logger.Debug("next call page", logging.Int("page", page+1), logging.Int("fetched", counts.Fetched))
	}
	return services.Wrap(services.ErrData, adapter.Name(), "list calls", fmt.Sprintf("gave up after %d pages", maxPages), nil)
}

func (e *Engine) storeCall(ctx context.Context, providerID int32, rec providers.CallRecord, counts *Counts) error {
	providers.FillPhones(&rec)
	counts.Fetched++
	if len(rec.DataErrors) > 0 {
		counts.DataErrors += len(rec.DataErrors)
		e.logger.Debug("call has unparseable fields",
			logging.String("call", rec.ExternalID),
			logging.Any("data_errors", rec.DataErrors),
		)
	}
	outcome, err := e.store.UpsertCall(ctx, providerID, rec)
	if err != nil {
		return err
	}
	counts.add(outcome)
	if rec.Analysis != nil {
		if err := e.store.UpsertCallAnalysis(ctx, providerID, rec.ExternalID, *rec.Analysis); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) pullMessages(ctx context.Context, lister providers.MessageLister, providerID int32, w Window, counts *Counts) error {
	cursor := ""
	for page := 0; page < maxPages; page++ {
		result, err := lister.ListMessages(ctx, providers.CallQuery{
			Since:  w.Since,
			Until:  w.Until,
			Cursor: cursor,
			Order:  w.Order,
			Limit:  remaining(w.Limit, counts.Fetched),
		})
		if err != nil {
			return err
		}
		for _, rec := range result.Messages {
			if capped(w.Limit, counts.Fetched) {
				return nil
			}
			counts.Fetched++
			counts.DataErrors += len(rec.DataErrors)
			outcome, err := e.store.UpsertMessage(ctx, providerID, rec)
			if err != nil {
				return err
			}
			counts.add(outcome)
		}
		if result.Exhausted || result.NextCursor == "" || result.NextCursor == cursor || capped(w.Limit, counts.Fetched) {
			return nil
		}
		cursor = result.NextCursor
	}
	return services.Wrap(services.ErrData, "syncer", "list messages", fmt.Sprintf("gave up after %d pages", maxPages), nil)
}

func (e *Engine) pullRecordings(ctx context.Context, lister providers.RecordingLister, providerID int32, w Window, counts *Counts) error {
	records, err := lister.ListRecordings(ctx, w.Since, w.Until)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if capped(w.Limit, counts.Fetched) {
			break
		}
		counts.Fetched++
		outcome, err := e.store.UpsertRecording(ctx, providerID, rec)
		if err != nil {
			return err
		}
		counts.add(outcome)
	}
	return nil
}

func (e *Engine) pullResources(ctx context.Context, adapter providers.Adapter, providerID int32, kind providers.Kind, counts *Counts) error {
	resources, err := adapter.ListResources(ctx, kind)
	if err != nil {
		return err
	}
	for _, res := range resources {
		counts.Fetched++
		outcome, err := e.store.UpsertResource(ctx, providerID, res)
		if err != nil {
			return err
		}
		counts.add(outcome)
	}
	return nil
}

func (e *Engine) snapshotBalance(ctx context.Context, adapter providers.Adapter, providerID int32, counts *Counts) error {
	balance, err := adapter.GetBalance(ctx)
	if err != nil {
		return err
	}
	counts.Fetched++
	if err := e.store.InsertBalance(ctx, providerID, balance); err != nil {
		return err
	}
	counts.Inserted++
	return nil
}

func (e *Engine) snapshotConcurrency(ctx context.Context, adapter providers.Adapter, providerID int32, counts *Counts) error {
	samples, err := adapter.ListResources(ctx, providers.KindConcurrency)
	if err != nil {
		return err
	}
	for _, sample := range samples {
		counts.Fetched++
		if err := e.store.InsertConcurrency(ctx, providerID, sample); err != nil {
			return err
		}
		counts.Inserted++
	}
	return nil
}

func capped(limit, fetched int) bool {
	return limit > 0 && fetched >= limit
}

func remaining(limit, fetched int) int {
	if limit <= 0 {
		return 0
	}
	return limit - fetched
}
