package events

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates ticket lifecycle events.
type Type string

const (
	TicketOpened Type = "ticket_opened"
	TicketClosed Type = "ticket_closed"
)

// Event is published after a lifecycle step has been committed on the
// platform.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	GuildID     string    `json:"guild_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	UserID      string    `json:"user_id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// New stamps an event with a fresh ID.
func New(t Type, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, Timestamp: at}
}
