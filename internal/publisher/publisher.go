// Package publisher defines run notification sinks.
package publisher

import "context"

// EventRunCompleted is published once per run after the run file is written.
const EventRunCompleted = "run.completed"

// Publisher sends a JSON-encodable payload for an event and returns the
// message ID.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
	Close() error
}
