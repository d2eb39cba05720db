// Package events defines the operation event contract. Orchestrated
// operations emit lifecycle events to a Sink; delivery is best-effort and
// never affects database correctness.
package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind is the lifecycle stage an event reports.
type Kind string

// Event kinds.
const (
	Started     Kind = "started"
	Progress    Kind = "progress"
	Completed   Kind = "completed"
	Failed      Kind = "failed"
	CellUpdated Kind = "cell_updated"
)

// Event is one emitted operation event. Fields carries per-operation
// extras (counts, entity ids, error text).
type Event struct {
	Kind        Kind           `json:"kind"`
	OperationID string         `json:"operation_id"`
	UserID      int64          `json:"user_id,omitempty"`
	Tool        string         `json:"tool"`
	Fn          string         `json:"fn"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// Sink receives events. Implementations must not block on slow
// consumers; dropping is acceptable.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// Operation tags every event of one orchestrated operation with a shared
// operation id.
type Operation struct {
	sink   Sink
	id     string
	userID int64
	tool   string
	fn     string
}

// Begin allocates an operation id and returns the tagged emitter. A nil
// sink yields an Operation that swallows everything.
func Begin(sink Sink, userID int64, tool, fn string) *Operation {
	if sink == nil {
		sink = NopSink{}
	}
	return &Operation{sink: sink, id: uuid.NewString(), userID: userID, tool: tool, fn: fn}
}

// ID returns the operation id shared by all events of this operation.
func (o *Operation) ID() string { return o.id }

func (o *Operation) emit(ctx context.Context, kind Kind, fields map[string]any) {
	o.sink.Emit(ctx, Event{
		Kind:        kind,
		OperationID: o.id,
		UserID:      o.userID,
		Tool:        o.tool,
		Fn:          o.fn,
		Fields:      fields,
	})
}

func (o *Operation) Started(ctx context.Context, fields map[string]any)  { o.emit(ctx, Started, fields) }
func (o *Operation) Progress(ctx context.Context, fields map[string]any) { o.emit(ctx, Progress, fields) }
func (o *Operation) Completed(ctx context.Context, fields map[string]any) {
	o.emit(ctx, Completed, fields)
}

// Failed reports the terminal error.
func (o *Operation) Failed(ctx context.Context, err error) {
	o.emit(ctx, Failed, map[string]any{"error": err.Error()})
}

// CellUpdated reports one row's cell change, for live-grid consumers.
func (o *Operation) CellUpdated(ctx context.Context, rowID int64, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["row_id"] = rowID
	o.emit(ctx, CellUpdated, fields)
}

// LogSink writes events to a zerolog logger, one line per event.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a Sink logging at info level.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ctx context.Context, e Event) {
	s.log.Info().
		Str("kind", string(e.Kind)).
		Str("operation_id", e.OperationID).
		Int64("user_id", e.UserID).
		Str("tool", e.Tool).
		Str("fn", e.Fn).
		Fields(e.Fields).
		Msg("operation event")
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(ctx context.Context, e Event) {}

// Recorder is a test Sink that keeps every event in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ctx context.Context, e Event) {
	r.Events = append(r.Events, e)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	kinds := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}
