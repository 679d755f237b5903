package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Table names double as notification channel names
type Table string

const (
	TableHouseholds Table = "households"
	TableGuests     Table = "guests"
	TableSettings   Table = "user_data"
)

// Channels lists the channels the listener subscribes to
var Channels = []Table{TableHouseholds, TableGuests, TableSettings}

// Notification is one change event published by the database triggers.
// Resync is set when the connection was re-established and events may have
// been lost.
type Notification struct {
	Table       Table           `json:"-"`
	Op          string          `json:"op"`
	UserID      uuid.UUID       `json:"user_id"`
	ID          uuid.UUID       `json:"id"`
	HouseholdID uuid.UUID       `json:"household_id"`
	Data        json.RawMessage `json:"data,omitempty"`
	Resync      bool            `json:"-"`
}

// ParseNotification decodes a trigger payload received on channel
func ParseNotification(channel, payload string) (Notification, error) {
	var n Notification
	switch Table(channel) {
	case TableHouseholds, TableGuests, TableSettings:
	default:
		return n, fmt.Errorf("unknown notification channel %q", channel)
	}
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("failed to decode %s notification: %w", channel, err)
	}
	n.Table = Table(channel)
	return n, nil
}
