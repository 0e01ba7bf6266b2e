package syncer

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"time"

	"telcosync/internal/providers"
	"telcosync/internal/services"
	"telcosync/internal/warehouse"
)

type fakeAdapter struct {
	name    string
	kinds   []providers.Kind
	authErr error

	pages   []providers.CallPage
	queries []providers.CallQuery
	block   bool

	resources   map[providers.Kind][]providers.Resource
	resourceErr map[providers.Kind]error
	balance     providers.Balance

	details    map[string]providers.CallRecord
	hints      []string
	detailErrs map[string]error
}

func (f *fakeAdapter) Name() string            { return f.name }
func (f *fakeAdapter) Kinds() []providers.Kind { return f.kinds }

func (f *fakeAdapter) Authenticate(context.Context) error { return f.authErr }

func (f *fakeAdapter) ListCalls(ctx context.Context, q providers.CallQuery) (providers.CallPage, error) {
	f.queries = append(f.queries, q)
	if f.block {
		<-ctx.Done()
		return providers.CallPage{}, ctx.Err()
	}
	idx := 0
	if q.Cursor != "" {
		idx, _ = strconv.Atoi(q.Cursor)
	}
	if idx >= len(f.pages) {
		return providers.CallPage{Exhausted: true}, nil
	}
	page := f.pages[idx]
	if idx+1 < len(f.pages) {
		page.NextCursor = strconv.Itoa(idx + 1)
	} else {
		page.Exhausted = true
	}
	return page, nil
}

func (f *fakeAdapter) GetCall(ctx context.Context, id string) (providers.CallRecord, error) {
	hint, _ := services.WorkspaceFromContext(ctx)
	f.hints = append(f.hints, hint)
	if err := f.detailErrs[id]; err != nil {
		return providers.CallRecord{}, err
	}
	rec, ok := f.details[id]
	if !ok {
		return providers.CallRecord{}, services.Wrap(services.ErrNotFound, f.name, "get call", id, nil)
	}
	return rec, nil
}

func (f *fakeAdapter) ListResources(_ context.Context, kind providers.Kind) ([]providers.Resource, error) {
	if err := f.resourceErr[kind]; err != nil {
		return nil, err
	}
	return f.resources[kind], nil
}

func (f *fakeAdapter) GetBalance(context.Context) (providers.Balance, error) {
	return f.balance, nil
}

type fakeStore struct {
	mu sync.Mutex

	last       map[string]*warehouse.SyncLogEntry
	lastLookup int
	logs       []warehouse.SyncLogEntry

	calls     map[string]providers.CallRecord
	analyses  map[string]providers.CallAnalysis
	resources map[string]providers.Resource
	balances  []providers.Balance

	missing    []warehouse.BackfillCandidate
	tombstoned []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		last:      make(map[string]*warehouse.SyncLogEntry),
		calls:     make(map[string]providers.CallRecord),
		analyses:  make(map[string]providers.CallAnalysis),
		resources: make(map[string]providers.Resource),
	}
}

func (s *fakeStore) ProviderID(_ context.Context, name string) (int32, error) {
	for i, n := range providers.Names() {
		if n == name {
			return int32(i + 1), nil
		}
	}
	return 0, services.Wrap(services.ErrSchema, "fake", "provider id", name, nil)
}

func (s *fakeStore) LastSuccessfulSync(_ context.Context, provider, resource string) (*warehouse.SyncLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLookup++
	return s.last[provider+"/"+resource], nil
}

func (s *fakeStore) RecordSync(_ context.Context, entry warehouse.SyncLogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if entry.Status == services.StatusSuccess {
		copied := entry
		s.last[entry.Provider+"/"+entry.Resource] = &copied
	}
	return int64(len(s.logs)), nil
}

func (s *fakeStore) UpsertCall(_ context.Context, providerID int32, rec providers.CallRecord) (warehouse.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strconv.Itoa(int(providerID)) + "/" + rec.ExternalID
	prev, ok := s.calls[key]
	s.calls[key] = rec
	switch {
	case !ok:
		return warehouse.OutcomeInserted, nil
	case reflect.DeepEqual(prev, rec):
		return warehouse.OutcomeUnchanged, nil
	default:
		return warehouse.OutcomeUpdated, nil
	}
}

func (s *fakeStore) UpsertCallAnalysis(_ context.Context, _ int32, id string, analysis providers.CallAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[id] = analysis
	return nil
}

func (s *fakeStore) UpsertMessage(context.Context, int32, providers.MessageRecord) (warehouse.Outcome, error) {
	return warehouse.OutcomeInserted, nil
}

func (s *fakeStore) UpsertRecording(context.Context, int32, providers.RecordingRecord) (warehouse.Outcome, error) {
	return warehouse.OutcomeInserted, nil
}

func (s *fakeStore) UpsertResource(_ context.Context, _ int32, res providers.Resource) (warehouse.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(res.Kind) + "/" + res.ExternalID
	_, ok := s.resources[key]
	s.resources[key] = res
	if ok {
		return warehouse.OutcomeUnchanged, nil
	}
	return warehouse.OutcomeInserted, nil
}

func (s *fakeStore) InsertBalance(_ context.Context, _ int32, balance providers.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = append(s.balances, balance)
	return nil
}

func (s *fakeStore) InsertConcurrency(context.Context, int32, providers.Resource) error { return nil }

func (s *fakeStore) CallsMissingPhones(context.Context, int32, int) ([]warehouse.BackfillCandidate, error) {
	return s.missing, nil
}

func (s *fakeStore) MarkTombstoned(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstoned = append(s.tombstoned, id)
	return true, nil
}

func call(id, from, to string) providers.CallRecord {
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return providers.CallRecord{
		ExternalID: id,
		Direction:  providers.DirectionOutbound,
		FromNumber: from,
		ToNumber:   to,
		StartedAt:  &started,
	}
}
