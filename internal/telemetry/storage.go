package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

const storageScopeName = "github.com/lockitd/lockit/storage"

// InstrumentedRows wraps a RowRepository with OTel tracing and metrics.
// Row operations are the hot path of the server, so they get spans and
// lockit.storage.* counters; the other repositories stay uninstrumented.
// Use WrapRows to create one; it returns the original repository
// unchanged when telemetry is disabled.
type InstrumentedRows struct {
	inner  storage.RowRepository
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ storage.RowRepository = (*InstrumentedRows)(nil)

// WrapRows returns r decorated with OTel instrumentation.
// When telemetry is disabled, r is returned as-is with zero overhead.
func WrapRows(r storage.RowRepository) storage.RowRepository {
	if !Enabled() {
		return r
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("lockit.storage.operations",
		metric.WithDescription("Total row operations executed"),
	)
	dur, _ := m.Float64Histogram("lockit.storage.operation.duration",
		metric.WithDescription("Row operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("lockit.storage.errors",
		metric.WithDescription("Total row operation errors"),
	)
	return &InstrumentedRows{
		inner:  r,
		tracer: Tracer(storageScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and records a metric for the named row operation.
func (s *InstrumentedRows) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "rows."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedRows) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedRows) Get(ctx context.Context, id int64) (*types.Row, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", id)}
	ctx, span, t := s.op(ctx, "Get", attrs...)
	v, err := s.inner.Get(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedRows) GetWithFile(ctx context.Context, id int64) (*types.Row, *types.File, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", id)}
	ctx, span, t := s.op(ctx, "GetWithFile", attrs...)
	row, file, err := s.inner.GetWithFile(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return row, file, err
}

func (s *InstrumentedRows) Create(ctx context.Context, row *types.Row) error {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.file.id", row.FileID)}
	ctx, span, t := s.op(ctx, "Create", attrs...)
	err := s.inner.Create(ctx, row)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedRows) Update(ctx context.Context, id int64, patch types.RowPatch) (*types.Row, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", id)}
	ctx, span, t := s.op(ctx, "Update", attrs...)
	v, err := s.inner.Update(ctx, id, patch)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedRows) Delete(ctx context.Context, id int64) (bool, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", id)}
	ctx, span, t := s.op(ctx, "Delete", attrs...)
	v, err := s.inner.Delete(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedRows) BulkCreate(ctx context.Context, rows []*types.Row) error {
	attrs := []attribute.KeyValue{attribute.Int("lockit.row.count", len(rows))}
	ctx, span, t := s.op(ctx, "BulkCreate", attrs...)
	err := s.inner.BulkCreate(ctx, rows)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedRows) BulkUpdate(ctx context.Context, updates []types.RowUpdate) (int, error) {
	attrs := []attribute.KeyValue{attribute.Int("lockit.row.count", len(updates))}
	ctx, span, t := s.op(ctx, "BulkUpdate", attrs...)
	n, err := s.inner.BulkUpdate(ctx, updates)
	if err == nil {
		span.SetAttributes(attribute.Int("lockit.changed.count", n))
	}
	s.done(ctx, span, t, err, attrs...)
	return n, err
}

func (s *InstrumentedRows) GetForFile(ctx context.Context, fileID int64, q types.RowQuery) ([]*types.Row, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.file.id", fileID)}
	ctx, span, t := s.op(ctx, "GetForFile", attrs...)
	rows, err := s.inner.GetForFile(ctx, fileID, q)
	if err == nil {
		span.SetAttributes(attribute.Int("lockit.result.count", len(rows)))
	}
	s.done(ctx, span, t, err, attrs...)
	return rows, err
}

func (s *InstrumentedRows) CountForFile(ctx context.Context, fileID int64) (int, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.file.id", fileID)}
	ctx, span, t := s.op(ctx, "CountForFile", attrs...)
	v, err := s.inner.CountForFile(ctx, fileID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedRows) AddEditHistory(ctx context.Context, edit *types.RowEdit) error {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", edit.RowID)}
	ctx, span, t := s.op(ctx, "AddEditHistory", attrs...)
	err := s.inner.AddEditHistory(ctx, edit)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedRows) GetEditHistory(ctx context.Context, rowID int64) ([]*types.RowEdit, error) {
	attrs := []attribute.KeyValue{attribute.Int64("lockit.row.id", rowID)}
	ctx, span, t := s.op(ctx, "GetEditHistory", attrs...)
	v, err := s.inner.GetEditHistory(ctx, rowID)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedRows) SuggestSimilar(ctx context.Context, q types.SimilarQuery) ([]*types.RowMatch, error) {
	ctx, span, t := s.op(ctx, "SuggestSimilar")
	v, err := s.inner.SuggestSimilar(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("lockit.result.count", len(v)))
	}
	s.done(ctx, span, t, err)
	return v, err
}
