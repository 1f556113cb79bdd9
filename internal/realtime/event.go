package realtime

import "time"

// EventType names a marketplace notification.
type EventType string

const (
	EventBidSelected  EventType = "bid.selected"
	EventBidRejected  EventType = "bid.rejected"
	EventBidWithdrawn EventType = "bid.withdrawn"
)

// Event is the envelope handed to notification collaborators. Channel is the
// recipient scope, typically "case:<id>" or "attorney:<profile id>".
type Event struct {
	Channel string         `json:"channel"`
	Event   EventType      `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}

func CaseChannel(id string) string     { return "case:" + id }
func AttorneyChannel(id string) string { return "attorney:" + id }
