package engine

import (
	"github.com/rs/zerolog"

	"arcade-engine/internal/session"
)

// Event types published by the engine.
const (
	EventSessionStarted  = "session_started"
	EventSessionUpdated  = "session_updated"
	EventSessionResolved = "session_resolved"
	EventAwardPaid       = "award_paid"
)

// Event is a lifecycle notification. Consumers render these to whatever
// front end drives the engine.
type Event struct {
	Type    string
	Scope   string
	Account string
	Kind    session.Kind
	Tag     string
	Payout  int64
	Trigger string
	Detail  map[string]any
}

// Sink consumes engine events. Publish must not block; slow consumers
// should buffer on their side.
type Sink interface {
	Publish(Event)
}

// LogSink writes events to the structured log. It is the default sink
// when no front end is attached.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink that logs every event.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Publish implements Sink.
func (s *LogSink) Publish(e Event) {
	s.log.Info().
		Str("event", e.Type).
		Str("scope", e.Scope).
		Str("account", e.Account).
		Str("kind", string(e.Kind)).
		Str("tag", e.Tag).
		Int64("payout", e.Payout).
		Str("trigger", e.Trigger).
		Msg("session event")
}
