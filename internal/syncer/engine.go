package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"telcosync/internal/logging"
	"telcosync/internal/providers"
	"telcosync/internal/services"
	"telcosync/internal/warehouse"
)

// Store is the warehouse surface the engine writes through.
type Store interface {
	ProviderID(ctx context.Context, name string) (int32, error)
	LastSuccessfulSync(ctx context.Context, provider, resource string) (*warehouse.SyncLogEntry, error)
	RecordSync(ctx context.Context, entry warehouse.SyncLogEntry) (int64, error)
	UpsertCall(ctx context.Context, providerID int32, rec providers.CallRecord) (warehouse.Outcome, error)
	UpsertCallAnalysis(ctx context.Context, providerID int32, externalID string, analysis providers.CallAnalysis) error
	UpsertMessage(ctx context.Context, providerID int32, rec providers.MessageRecord) (warehouse.Outcome, error)
	UpsertRecording(ctx context.Context, providerID int32, rec providers.RecordingRecord) (warehouse.Outcome, error)
	UpsertResource(ctx context.Context, providerID int32, res providers.Resource) (warehouse.Outcome, error)
	InsertBalance(ctx context.Context, providerID int32, balance providers.Balance) error
	InsertConcurrency(ctx context.Context, providerID int32, res providers.Resource) error
	CallsMissingPhones(ctx context.Context, providerID int32, limit int) ([]warehouse.BackfillCandidate, error)
	MarkTombstoned(ctx context.Context, callID int64) (bool, error)
}

// Options tunes the engine.
type Options struct {
	InitialLimit    int
	Overlap         time.Duration
	ResourceTimeout time.Duration
	BackfillLimit   int
	LockDir         string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		InitialLimit:    1000,
		Overlap:         10 * time.Minute,
		ResourceTimeout: 4 * time.Minute,
		BackfillLimit:   200,
	}
}

// Request selects what a run synchronises. Empty filters mean everything the
// configured adapters support.
type Request struct {
	Initial   bool
	Backfill  bool
	Providers []string
	Resources []providers.Kind
}

// Engine runs sync units sequentially.
type Engine struct {
	store    Store
	adapters []providers.Adapter
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newRunID = next
		}
	}
}

// New builds an engine over the given adapters, synchronised in order.
func New(store Store, adapters []providers.Adapter, opts Options, logger *slog.Logger, options ...Option) *Engine {
	defaults := DefaultOptions()
	if opts.InitialLimit <= 0 {
		opts.InitialLimit = defaults.InitialLimit
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.ResourceTimeout <= 0 {
		opts.ResourceTimeout = defaults.ResourceTimeout
	}
	if opts.BackfillLimit <= 0 {
		opts.BackfillLimit = defaults.BackfillLimit
	}
	e := &Engine{
		store:    store,
		adapters: adapters,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "syncer"),
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Run executes every selected unit and returns the per-unit outcomes. The
// returned error is non-nil only when the request itself is unusable; unit
// failures are reported through Summary.Err.
func (e *Engine) Run(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{RunID: e.newRunID()}
	ctx = services.WithRunID(ctx, summary.RunID)

	selected, err := e.selectAdapters(req.Providers)
	if err != nil {
		return summary, err
	}
	for _, adapter := range selected {
		kinds := unitKinds(adapter, req.Resources)
		if len(kinds) == 0 {
			continue
		}
		summary.Units = append(summary.Units, e.runProvider(ctx, adapter, kinds, req)...)
	}
	if len(summary.Units) == 0 {
		return summary, services.Wrap(services.ErrConfiguration, "syncer", "run",
			"no configured provider supports the requested resources", nil)
	}
	return summary, nil
}

func (e *Engine) selectAdapters(names []string) ([]providers.Adapter, error) {
	if len(names) == 0 {
		return e.adapters, nil
	}
	var out []providers.Adapter
	for _, name := range names {
		found := false
		for _, adapter := range e.adapters {
			if adapter.Name() == name {
				out = append(out, adapter)
				found = true
				break
			}
		}
		if !found {
			return nil, services.Wrap(services.ErrConfiguration, "syncer", "run",
				fmt.Sprintf("provider %s is not configured", name), nil)
		}
	}
	return out, nil
}

func unitKinds(adapter providers.Adapter, wanted []providers.Kind) []providers.Kind {
	if len(wanted) == 0 {
		return adapter.Kinds()
	}
	var out []providers.Kind
	for _, kind := range wanted {
		if providers.Supports(adapter, kind) {
			out = append(out, kind)
		}
	}
	return out
}

func (e *Engine) runProvider(ctx context.Context, adapter providers.Adapter, kinds []providers.Kind, req Request) []UnitResult {
	name := adapter.Name()
	ctx = services.WithProvider(ctx, name)
	logger := logging.WithContext(ctx, e.logger)

	results := make([]UnitResult, 0, len(kinds))
	authErr := adapter.Authenticate(ctx)
	if authErr != nil {
		logging.ErrorWithContext(logger, "provider authentication failed", "provider_auth_failed",
			logging.Error(authErr),
			logging.Hint("check the provider credentials in the credentials file"),
		)
	}
	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}
		if authErr != nil {
			results = append(results, e.recordFailure(ctx, name, kind, req, authErr))
			continue
		}
		results = append(results, e.runUnit(ctx, adapter, kind, req))
	}
	return results
}

// recordFailure logs a unit that never started because its provider could
// not authenticate.
func (e *Engine) recordFailure(ctx context.Context, provider string, kind providers.Kind, req Request, cause error) UnitResult {
	started := e.now()
	result := UnitResult{Provider: provider, Resource: kind, Mode: modeFor(kind, req.Initial, nil), StartedAt: started, Err: cause}
	result.Status = services.SyncStatus(cause)
	e.logger.Warn("unit not started", append(logging.Args(logging.Unit(provider, string(kind))...), logging.Error(cause))...)
	e.record(ctx, &result)
	return result
}

func (e *Engine) runUnit(ctx context.Context, adapter providers.Adapter, kind providers.Kind, req Request) UnitResult {
	provider := adapter.Name()
	ctx = services.WithResource(ctx, string(kind))
	logger := logging.WithContext(ctx, e.logger)
	result := UnitResult{Provider: provider, Resource: kind, StartedAt: e.now()}

	lock, err := acquire(e.opts.LockDir, provider, kind)
	if err != nil {
		result.Err = err
		result.Status = services.StatusError
		e.record(ctx, &result)
		return result
	}
	if lock == nil {
		logging.WarnWithContext(logger, "another run holds the unit lock; skipping", "sync_unit_locked",
			logging.Hint("wait for the running sync to finish"),
			logging.Impact("resource not refreshed this run"),
		)
		result.Skipped = true
		result.Err = services.Wrap(services.ErrLocked, "syncer", string(kind), "unit lock held", nil)
		return result
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release unit lock", logging.Error(err))
		}
	}()

	providerID, err := e.store.ProviderID(ctx, provider)
	if err != nil {
		result.Err = err
		result.Status = services.SyncStatus(err)
		e.record(ctx, &result)
		return result
	}

	var last *warehouse.SyncLogEntry
	if kind.IsTimeSeries() && !req.Initial {
		last, err = e.store.LastSuccessfulSync(ctx, provider, string(kind))
		if err != nil {
			result.Err = err
			result.Status = services.StatusError
			e.record(ctx, &result)
			return result
		}
	}
	result.Mode = modeFor(kind, req.Initial, last)
	w := e.window(result.Mode, last)
	result.Window = w

	logger.Info("sync unit started", logging.String("mode", result.Mode))
	unitCtx, cancel := context.WithTimeout(ctx, e.opts.ResourceTimeout)
	err = e.syncKind(unitCtx, adapter, providerID, kind, w, &result.Counts)
	if err == nil && kind == providers.KindCalls && provider == providers.Retell && (result.Mode == warehouse.ModeInitial || req.Backfill) {
		err = e.backfill(unitCtx, adapter, providerID, &result.Counts)
	}
	if err != nil && errors.Is(unitCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = services.Wrap(services.ErrTimeout, "syncer", string(kind),
			fmt.Sprintf("exceeded %s", e.opts.ResourceTimeout), err)
	}
	cancel()

	result.Err = err
	result.Status = services.SyncStatus(err)
	e.record(ctx, &result)

	attrs := []logging.Attr{
		logging.String("status", result.Status),
		logging.Int("fetched", result.Counts.Fetched),
		logging.Int("inserted", result.Counts.Inserted),
		logging.Int("updated", result.Counts.Updated),
		logging.Int("unchanged", result.Counts.Unchanged),
		logging.Duration("duration", result.CompletedAt.Sub(result.StartedAt)),
	}
	if result.Counts.DataErrors > 0 {
		attrs = append(attrs, logging.Int("data_errors", result.Counts.DataErrors))
	}
	if result.Counts.Tombstoned > 0 {
		attrs = append(attrs, logging.Int("tombstoned", result.Counts.Tombstoned))
	}
	if err != nil {
		logging.ErrorWithContext(logger, "sync unit failed", "sync_unit_failed", append(attrs, logging.Error(err))...)
	} else {
		logger.Info("sync unit completed", logging.Args(attrs...)...)
	}
	return result
}

// Window is the time range of one unit. Zero bounds are open.
type Window struct {
	Since time.Time
	Until time.Time
	Order providers.Order
	Limit int
}

func modeFor(kind providers.Kind, initial bool, last *warehouse.SyncLogEntry) string {
	switch {
	case !kind.IsTimeSeries():
		return warehouse.ModeSnapshot
	case initial || last == nil || last.CompletedAt == nil:
		return warehouse.ModeInitial
	default:
		return warehouse.ModeIncremental
	}
}

func (e *Engine) window(mode string, last *warehouse.SyncLogEntry) Window {
	now := e.now().UTC()
	switch mode {
	case warehouse.ModeInitial:
		return Window{Until: now, Order: providers.Ascending, Limit: e.opts.InitialLimit}
	case warehouse.ModeIncremental:
		return Window{Since: last.CompletedAt.UTC().Add(-e.opts.Overlap), Until: now, Order: providers.Descending}
	default:
		return Window{}
	}
}

func (e *Engine) record(ctx context.Context, result *UnitResult) {
	result.CompletedAt = e.now()
	entry := warehouse.SyncLogEntry{
		RunID:      runID(ctx),
		Provider:   result.Provider,
		Resource:   string(result.Resource),
		Mode:       result.Mode,
		StartedAt:  result.StartedAt,
		Status:     result.Status,
		Fetched:    result.Counts.Fetched,
		Inserted:   result.Counts.Inserted,
		Updated:    result.Counts.Updated,
		Unchanged:  result.Counts.Unchanged,
		DataErrors: result.Counts.DataErrors,
		Tombstoned: result.Counts.Tombstoned,
	}
	if entry.Mode == "" {
		entry.Mode = warehouse.ModeSnapshot
	}
	completed := result.CompletedAt
	entry.CompletedAt = &completed
	if !result.Window.Since.IsZero() {
		since := result.Window.Since
		entry.WindowStart = &since
	}
	if !result.Window.Until.IsZero() {
		until := result.Window.Until
		entry.WindowEnd = &until
	}
	if result.Err != nil {
		entry.ErrorMessage = result.Err.Error()
	}
	if _, err := e.store.RecordSync(ctx, entry); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "failed to write sync_log", "sync_log_write_failed",
			logging.Error(err),
			logging.Hint("the next run will repeat this window"),
		)
		if result.Err == nil {
			result.Err = err
			result.Status = services.StatusError
		}
	}
}

func runID(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}
