package history

import (
	"context"
	"time"
)

// Message is one recorded chat message. Only what activity ranking needs is
// kept; message bodies are not stored.
type Message struct {
	ChatID    string
	UserID    string
	SentAt    time.Time
	IsBot     bool
	IsCommand bool
}

// Filter controls which messages a range query returns.
type Filter struct {
	ExcludeBot      bool
	ExcludeCommands bool
}

// Repo is the message-store collaborator consumed by the activity ranker and
// fed by the event listener.
type Repo interface {
	Record(ctx context.Context, m Message) error

	// QueryRange returns messages in [from, to) for one chat, ascending by
	// time (and by insertion order within the same second).
	QueryRange(ctx context.Context, chatID string, from, to time.Time, f Filter) ([]Message, error)

	// PruneBefore deletes messages sent before cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
