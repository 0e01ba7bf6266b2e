package providers

import (
	"encoding/json"
	"time"
)

// Order is the time ordering requested from a provider.
type Order string

const (
	Ascending  Order = "ascending"
	Descending Order = "descending"
)

// Direction values stored on calls and messages.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionUnknown  = "unknown"
)

// CallQuery bounds one page request. Since is inclusive and Until exclusive
// unless a provider documents otherwise.
type CallQuery struct {
	Since  time.Time
	Until  time.Time
	Cursor string
	Order  Order
	Limit  int
}

// CallPage is an ordered chunk of call records.
type CallPage struct {
	Calls      []CallRecord
	NextCursor string
	Exhausted  bool
	// Skipped counts listed rows that could not be decoded and were dropped.
	Skipped int

	// Partition names the account the page came from when a listing spans
	// several (Retell workspaces). SkipCursor resumes at the next partition.
	Partition  string
	SkipCursor string
}

// CallRecord is the canonical call shape every adapter produces.
type CallRecord struct {
	ExternalID      string
	Direction       string
	FromNumber      string
	ToNumber        string
	Status          string
	StartedAt       *time.Time
	AnsweredAt      *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
	BillableSeconds *int
	Cost            *float64
	Currency        string
	Transcript      string
	AgentID         string
	AgentName       string
	RecordingURL    string
	Recorded        bool
	WorkspaceID     string
	Analysis        *CallAnalysis
	Raw             json.RawMessage
	DataErrors      []string
}

// HasRecording reports whether a recording is attached.
func (c CallRecord) HasRecording() bool {
	return c.Recorded || c.RecordingURL != ""
}

// CallAnalysis holds provider-native post-call analysis.
type CallAnalysis struct {
	Summary     string
	Sentiment   string
	Successful  *bool
	InVoicemail *bool
	Custom      json.RawMessage
}

// MessagePage is an ordered chunk of message records.
type MessagePage struct {
	Messages   []MessageRecord
	NextCursor string
	Exhausted  bool
}

// MessageRecord is the canonical SMS/MMS shape.
type MessageRecord struct {
	ExternalID string
	Direction  string
	FromNumber string
	ToNumber   string
	Body       string
	Status     string
	Segments   *int
	SentAt     *time.Time
	Cost       *float64
	Currency   string
	Raw        json.RawMessage
	DataErrors []string
}

// RecordingRecord is a recording exposed separately from its call.
type RecordingRecord struct {
	ExternalID      string
	CallExternalID  string
	URL             string
	DurationSeconds *int
	CreatedAt       *time.Time
	Raw             json.RawMessage
}

// Resource is a routing, account or configuration object.
type Resource struct {
	Kind        Kind
	ExternalID  string
	Name        string
	PhoneNumber string
	Status      string
	WorkspaceID string
	UpdatedAt   *time.Time
	Raw         json.RawMessage
}

// Balance is a point-in-time account balance.
type Balance struct {
	Amount   float64
	Currency string
	Raw      json.RawMessage
}
