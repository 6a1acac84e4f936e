package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates observation records.
type EventType string

const (
	EventBidAccepted    EventType = "bid_accepted"
	EventAuctionStarted EventType = "auction_started"
	EventAuctionSettled EventType = "auction_settled"
	EventMetadataFrozen EventType = "metadata_frozen"
	EventBaseURIChanged EventType = "base_uri_changed"
	EventMinterChanged  EventType = "minter_changed"
)

// Event is one append-only observation for external indexers. Only the fields
// relevant to the event type are populated.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Bidder   string    `json:"bidder,omitempty"`
	Amount   string    `json:"amount,omitempty"`
	Deadline time.Time `json:"deadline,omitzero"`
	TokenID  uint64    `json:"token_id,omitempty"`
	Value    string    `json:"value,omitempty"`
}

// EventLog is an append-only record of observations. It never rejects an
// append and is safe for concurrent readers.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	clock  func() time.Time
}

func NewEventLog() *EventLog {
	return &EventLog{clock: time.Now}
}

// WithClock overrides the log's timestamp source for deterministic tests.
func (l *EventLog) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Append records an event, stamping its id and timestamp.
func (l *EventLog) Append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev.ID = uuid.NewString()
	ev.Timestamp = l.clock()
	l.events = append(l.events, ev)
	return ev
}

// Events returns a copy of all recorded observations in append order.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns recorded observations of one type, in append order.
func (l *EventLog) EventsOfType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0)
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
