package calendar

import (
	"context"
	"time"
)

// DefaultLocation is used for events without a LOCATION property.
const DefaultLocation = "No location"

// Event is a single calendar entry.
type Event struct {
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	UID         string    `json:"uid,omitempty"`
	AllDay      bool      `json:"all_day"`
}

// Today is the result of TodayEvents. On failure Error is set, Events is
// empty and Count is zero.
type Today struct {
	Date   string  `json:"date,omitempty"`
	Events []Event `json:"events"`
	Count  int     `json:"count"`
	Error  string  `json:"error,omitempty"`
}

// Source yields today's events, satisfied by *Fetcher.
type Source interface {
	TodayEvents(ctx context.Context) Today
}
