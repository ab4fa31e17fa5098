package journal

import (
	"log/slog"

	"crp/core/events"
	"crp/core/types"
)

// eventCarrier is implemented by engine event wrappers that expose the
// underlying typed event alongside the events.Event interface.
type eventCarrier interface {
	Event() *types.Event
}

// Emitter appends every emitted engine event to the journal. Append failures
// are logged rather than propagated: emission happens after the state
// transition has committed and must not unwind it.
type Emitter struct {
	journal *Journal
	logger  *slog.Logger
}

// NewEmitter wires a journal into the events.Emitter interface.
func NewEmitter(j *Journal, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{journal: j, logger: logger}
}

// Emit implements events.Emitter.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || e.journal == nil || evt == nil {
		return
	}
	carrier, ok := evt.(eventCarrier)
	if !ok {
		e.logger.Warn("journal: event without payload", "type", evt.EventType())
		return
	}
	typed := carrier.Event()
	if typed == nil {
		return
	}
	if _, err := e.journal.Append(typed); err != nil {
		e.logger.Error("journal: append failed", "type", typed.Type, "error", err)
	}
}

var _ events.Emitter = (*Emitter)(nil)
