package providers

import (
	"context"
	"time"
)

// Adapter is the capability set every provider exposes to the sync engine.
type Adapter interface {
	Name() string
	Kinds() []Kind
	Authenticate(ctx context.Context) error
	ListCalls(ctx context.Context, q CallQuery) (CallPage, error)
	GetCall(ctx context.Context, externalID string) (CallRecord, error)
	ListResources(ctx context.Context, kind Kind) ([]Resource, error)
	GetBalance(ctx context.Context) (Balance, error)
}

// MessageLister is implemented by adapters that expose SMS/MMS history.
type MessageLister interface {
	ListMessages(ctx context.Context, q CallQuery) (MessagePage, error)
}

// RecordingLister is implemented by adapters that expose recordings separately.
type RecordingLister interface {
	ListRecordings(ctx context.Context, since, until time.Time) ([]RecordingRecord, error)
}

// Supports reports whether adapter declares kind.
func Supports(adapter Adapter, kind Kind) bool {
	for _, k := range adapter.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
