package stream

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the payload family of an event.
type Kind string

const (
	KindNews           Kind = "news"
	KindSocialPost     Kind = "social_post"
	KindFiling         Kind = "filing"
	KindEconomicData   Kind = "economic_data"
	KindCorporateEvent Kind = "corporate_event"
	KindRaw            Kind = "raw"
)

// Event is one message from an upstream real-time source. Payload carries the
// kind-specific fields (headline, filing_type, indicator, ...) untouched.
type Event struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Kind      Kind           `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Tickers   []string       `json:"tickers,omitempty"`
	Sentiment *float64       `json:"sentiment,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(source string, kind Kind, payload map[string]any, tickers ...string) Event {
	return Event{
		ID:        uuid.NewString(),
		Source:    source,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Tickers:   tickers,
		Payload:   payload,
	}
}

// normalize fills what a sender may leave out.
func (e *Event) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindRaw
	}
}
