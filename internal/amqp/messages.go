package amqp

import "time"

// Entry event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EntryEvent announces a ledger mutation on the message bus. The archive
// worker consumes these to mirror entries into SQLite; other consumers may
// attach to the same exchange.
type EntryEvent struct {
	UserID    string    `json:"user_id"`
	Period    string    `json:"period"`
	EntryID   string    `json:"entry_id"`
	EntryType string    `json:"entry_type"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
