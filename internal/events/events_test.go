package events

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationTagsEvents(t *testing.T) {
	rec := &Recorder{}
	op := Begin(rec, 7, "folder", "copy")
	ctx := context.Background()

	op.Started(ctx, map[string]any{"folder_id": int64(12)})
	op.Progress(ctx, map[string]any{"files": 3})
	op.CellUpdated(ctx, 99, nil)
	op.Completed(ctx, nil)

	require.Len(t, rec.Events, 4)
	assert.Equal(t, []Kind{Started, Progress, CellUpdated, Completed}, rec.Kinds())
	for _, e := range rec.Events {
		assert.Equal(t, op.ID(), e.OperationID)
		assert.Equal(t, int64(7), e.UserID)
		assert.Equal(t, "folder", e.Tool)
		assert.Equal(t, "copy", e.Fn)
	}
	assert.Equal(t, int64(99), rec.Events[2].Fields["row_id"])
}

func TestOperationIDsDistinct(t *testing.T) {
	rec := &Recorder{}
	a := Begin(rec, 1, "trash", "cleanup")
	b := Begin(rec, 1, "trash", "cleanup")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestFailedCarriesError(t *testing.T) {
	rec := &Recorder{}
	op := Begin(rec, 1, "file", "move")
	op.Failed(context.Background(), errors.New("target folder gone"))

	require.Len(t, rec.Events, 1)
	assert.Equal(t, Failed, rec.Events[0].Kind)
	assert.Equal(t, "target folder gone", rec.Events[0].Fields["error"])
}

func TestNilSinkSwallows(t *testing.T) {
	op := Begin(nil, 1, "qa", "run")
	// Must not panic.
	op.Started(context.Background(), nil)
	op.Completed(context.Background(), nil)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))
	op := Begin(sink, 3, "tm", "import")
	op.Started(context.Background(), map[string]any{"tm_id": int64(5)})

	out := buf.String()
	assert.Contains(t, out, `"kind":"started"`)
	assert.Contains(t, out, `"tool":"tm"`)
	assert.Contains(t, out, `"tm_id":5`)
}
