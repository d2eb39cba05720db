// Package merge applies downloaded server state to the offline store
// with last-write-wins semantics. Timestamps are compared as canonical
// ISO-8601 UTC millisecond strings, where lexicographic order equals
// chronological order; on a tie the local copy is kept so the user never
// silently loses work. A non-conforming timestamp loses to a conforming
// one and is logged.
package merge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Winner identifies which side of a last-write-wins comparison prevails.
type Winner int

// Comparison outcomes.
const (
	LocalWins Winner = iota
	ServerWins
)

// Compare decides between two canonical timestamp strings. The server
// wins only with a strictly later timestamp; ties keep the local copy.
func Compare(local, server string) Winner {
	localOK := conforms(local)
	serverOK := conforms(server)
	switch {
	case !serverOK:
		return LocalWins
	case !localOK:
		return ServerWins
	case server > local:
		return ServerWins
	default:
		return LocalWins
	}
}

// CompareTimes is Compare over time values, normalized through the
// canonical format first.
func CompareTimes(local, server time.Time) Winner {
	return Compare(types.FormatTimestamp(local), types.FormatTimestamp(server))
}

func conforms(s string) bool {
	if s == "" {
		return false
	}
	_, err := types.ParseTimestamp(s)
	return err == nil
}

// Writer applies a winning server record onto a local one without
// journaling: sync application reconciles with the server, it is not a
// local edit to upload. The offline sqlite store satisfies it.
type Writer interface {
	OverwriteRow(ctx context.Context, localID int64, server *types.Row) error
	OverwriteEntry(ctx context.Context, localID int64, server *types.TMEntry) error
}

// Result summarizes one merge pass.
type Result struct {
	ServerApplied int // local records overwritten by newer server copies
	LocalKept     int // local records that won or tied
	Unmatched     int // server records with no local counterpart
	Discarded     int // journal entries superseded by applied server copies
}

// Merger merges downloaded server records into the offline store.
type Merger struct {
	w       Writer
	journal storage.Journal
	log     zerolog.Logger
}

// New returns a Merger writing through w. journal may be nil when the
// caller manages the pending-change log itself.
func New(w Writer, journal storage.Journal, log zerolog.Logger) *Merger {
	return &Merger{w: w, journal: journal, log: log}
}

// ApplyServerRows merges server rows into their local counterparts,
// matched by the local rows' server_id. Server rows without a local
// counterpart are counted, not inserted; the download path owns inserts.
// Journal entries for rows the server overwrote are discarded.
func (m *Merger) ApplyServerRows(ctx context.Context, local []*types.Row, server []*types.Row) (*Result, error) {
	byServerID := make(map[int64]*types.Row, len(local))
	for _, row := range local {
		if row.ServerID != nil {
			byServerID[*row.ServerID] = row
		}
	}

	res := &Result{}
	overwritten := make(map[int64]bool)
	for _, sv := range server {
		lc, ok := byServerID[sv.ID]
		if !ok {
			res.Unmatched++
			continue
		}
		if m.decide(lc.UpdatedAt, sv.UpdatedAt, "row", lc.ID) == LocalWins {
			res.LocalKept++
			continue
		}
		if err := m.w.OverwriteRow(ctx, lc.ID, sv); err != nil {
			return nil, err
		}
		overwritten[lc.ID] = true
		res.ServerApplied++
	}

	discarded, err := m.discardJournal(ctx, "row", overwritten)
	if err != nil {
		return nil, err
	}
	res.Discarded = discarded
	return res, nil
}

// ApplyServerEntries merges server TM entries into local ones, matched by
// (source_hash, string_id) within the TM both slices belong to.
func (m *Merger) ApplyServerEntries(ctx context.Context, local []*types.TMEntry, server []*types.TMEntry) (*Result, error) {
	type key struct {
		hash     string
		stringID string
	}
	byKey := make(map[key]*types.TMEntry, len(local))
	for _, e := range local {
		byKey[key{types.HashSource(e.SourceText), e.StringID}] = e
	}

	res := &Result{}
	for _, sv := range server {
		lc, ok := byKey[key{types.HashSource(sv.SourceText), sv.StringID}]
		if !ok {
			res.Unmatched++
			continue
		}
		if m.decide(lc.UpdatedAt, sv.UpdatedAt, "tm entry", lc.ID) == LocalWins {
			res.LocalKept++
			continue
		}
		if err := m.w.OverwriteEntry(ctx, lc.ID, sv); err != nil {
			return nil, err
		}
		res.ServerApplied++
	}
	return res, nil
}

func (m *Merger) decide(local, server time.Time, entity string, localID int64) Winner {
	if local.IsZero() || server.IsZero() {
		m.log.Warn().
			Str("entity", entity).
			Int64("local_id", localID).
			Time("local_updated", local).
			Time("server_updated", server).
			Msg("merge: non-conforming timestamp")
	}
	return CompareTimes(local, server)
}

// discardJournal marks pending journal entries for overwritten entities
// as discarded: the server copy that just landed supersedes them.
func (m *Merger) discardJournal(ctx context.Context, entityType string, overwritten map[int64]bool) (int, error) {
	if m.journal == nil || len(overwritten) == 0 {
		return 0, nil
	}
	pending, err := m.journal.PendingChanges(ctx)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for _, c := range pending {
		if c.EntityType == entityType && overwritten[c.EntityID] {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := m.journal.MarkChanges(ctx, ids, types.ChangeDiscarded); err != nil {
		return 0, err
	}
	return len(ids), nil
}
