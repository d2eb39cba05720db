// Package embedding defines the contracts for the external embedding
// engine and its ANN indexes. The core never computes vectors itself; it
// streams TM entries to an Engine and queries an Index, both supplied by
// the deployment. A no-op engine ships for tests and offline use.
package embedding

import (
	"context"
	"time"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Engine encodes source strings into vectors. Implementations live
// outside this repository (a model server, an API client).
type Engine interface {
	// Encode returns one vector per input string, in order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the vector width Encode produces.
	Dimensions() int
}

// Index answers nearest-neighbor queries over encoded TM entries.
type Index interface {
	// Search returns up to k entry IDs with their similarity scores,
	// best first.
	Search(query []float32, k int) ([]int64, []float32, error)

	// Add registers a vector under the given TM entry id.
	Add(id int64, vector []float32) error

	Len() int
}

// Rebuild streams every entry of the TM through the engine into a fresh
// index and records the build on the TM's index metadata. The unbounded
// GetAllEntries read is deliberate: index builds are rare and want the
// whole corpus.
func Rebuild(ctx context.Context, tms storage.TMRepository, engine Engine, index Index, tmID int64) (int, error) {
	entries, err := tms.GetAllEntries(ctx, tmID)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	const batchSize = 256
	added := 0
	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.SourceText
		}
		vectors, err := engine.Encode(ctx, texts)
		if err != nil {
			return added, err
		}
		for i, e := range batch {
			if err := index.Add(e.ID, vectors[i]); err != nil {
				return added, err
			}
			added++
		}
	}
	return added, nil
}

// NopEngine encodes everything to zero vectors. It keeps index plumbing
// testable without a model.
type NopEngine struct {
	Dim int
}

var _ Engine = NopEngine{}

func (e NopEngine) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim())
	}
	return out, nil
}

func (e NopEngine) Dimensions() int { return e.dim() }

func (e NopEngine) dim() int {
	if e.Dim <= 0 {
		return 1
	}
	return e.Dim
}

// MemoryIndex is a slice-backed Index for tests. Search returns entries
// in insertion order with zero scores; it makes no similarity claims.
type MemoryIndex struct {
	ids []int64
}

var _ Index = (*MemoryIndex)(nil)

func (m *MemoryIndex) Add(id int64, vector []float32) error {
	m.ids = append(m.ids, id)
	return nil
}

func (m *MemoryIndex) Search(query []float32, k int) ([]int64, []float32, error) {
	if k > len(m.ids) {
		k = len(m.ids)
	}
	ids := make([]int64, k)
	copy(ids, m.ids[:k])
	return ids, make([]float32, k), nil
}

func (m *MemoryIndex) Len() int { return len(m.ids) }

// IndexInfo converts a finished build into the persisted metadata record.
func IndexInfo(tmID int64, indexType string, sizeBytes int64) *types.TMIndexInfo {
	now := time.Now()
	return &types.TMIndexInfo{
		TMID:      tmID,
		IndexType: indexType,
		Status:    types.TMReady,
		SizeBytes: sizeBytes,
		BuiltAt:   &now,
	}
}
