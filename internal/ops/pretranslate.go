package ops

import (
	"context"
	"errors"

	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/qa"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Glossary bounds for the term check: terms longer than this are full
// sentences, not terminology, and huge glossaries drown the check.
const (
	glossaryMaxSourceLen = 64
	glossaryLimit        = 1000
)

// Pretranslate fills empty pending targets from the TMs in scope for
// the file. TMs apply in scope order (folder before project before
// platform); within one TM an entry matching the row's string id wins,
// then a confirmed entry, then the first hit. Returns how many rows
// were filled.
func (c *Coordinator) Pretranslate(ctx context.Context, fileID, userID int64) (int, error) {
	op := events.Begin(c.sink, userID, "file", "pretranslate")
	op.Started(ctx, map[string]any{"file_id": fileID})

	filled, updates, err := c.pretranslate(ctx, fileID, userID)
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	for _, u := range updates {
		op.CellUpdated(ctx, u.ID, map[string]any{"field": "target"})
	}
	op.Completed(ctx, map[string]any{"filled": filled})
	return filled, nil
}

func (c *Coordinator) pretranslate(ctx context.Context, fileID, userID int64) (int, []types.RowUpdate, error) {
	scoped, err := c.be.TMs().GetActiveForFile(ctx, fileID)
	if err != nil {
		return 0, nil, err
	}
	if len(scoped) == 0 {
		return 0, nil, nil
	}
	rows, err := c.be.Files().GetRows(ctx, fileID)
	if err != nil {
		return 0, nil, err
	}

	var updates []types.RowUpdate
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		if row.Target != "" || row.Status != types.RowPending {
			continue
		}
		target, ok, err := lookupTarget(ctx, c.be.TMs(), scoped, row)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			continue
		}
		t := target
		updates = append(updates, types.RowUpdate{
			ID:       row.ID,
			RowPatch: types.RowPatch{Target: &t, UpdatedBy: userID},
		})
	}
	if len(updates) == 0 {
		return 0, nil, nil
	}

	var filled int
	err = c.retry(ctx, func() error {
		var err error
		filled, err = c.be.Rows().BulkUpdate(ctx, updates)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return filled, updates, nil
}

// lookupTarget finds the best TM translation for one row, walking the
// scoped TMs in order and stopping at the first TM with a hit.
func lookupTarget(ctx context.Context, tms storage.TMRepository, scoped []*types.ScopedTM, row *types.Row) (string, bool, error) {
	for _, tm := range scoped {
		entries, err := tms.SearchExact(ctx, tm.ID, row.Source)
		if err != nil {
			return "", false, err
		}
		if len(entries) == 0 {
			continue
		}
		best := entries[0]
		for _, e := range entries {
			if row.StringID != "" && e.StringID == row.StringID {
				best = e
				break
			}
			if e.IsConfirmed && !best.IsConfirmed {
				best = e
			}
		}
		return best.TargetText, true, nil
	}
	return "", false, nil
}

// RunQA replaces the file's QA findings with a fresh run of the
// built-in checks. Glossary terms come from the TMs in scope for the
// file. Returns how many findings the run produced.
func (c *Coordinator) RunQA(ctx context.Context, fileID, userID int64) (int, error) {
	op := events.Begin(c.sink, userID, "file", "run_qa")
	op.Started(ctx, map[string]any{"file_id": fileID})

	scoped, err := c.be.TMs().GetActiveForFile(ctx, fileID)
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	var terms []*types.GlossaryTerm
	if len(scoped) > 0 {
		tmIDs := make([]int64, len(scoped))
		for i, tm := range scoped {
			tmIDs[i] = tm.ID
		}
		terms, err = c.be.TMs().GetGlossaryTerms(ctx, tmIDs, glossaryMaxSourceLen, glossaryLimit)
		if err != nil {
			op.Failed(ctx, err)
			return 0, err
		}
	}

	rows, err := c.be.Files().GetRows(ctx, fileID)
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	results := qa.NewRunner(qa.Defaults(terms)...).Run(rows)

	err = c.transact(ctx, func(tx storage.Stores) error {
		if _, err := tx.QAResults().DeleteForFile(ctx, fileID); err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return tx.QAResults().BulkCreate(ctx, results)
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	op.Completed(ctx, map[string]any{"findings": len(results), "rows": len(rows)})
	return len(results), nil
}

// ConfirmRows approves the given rows and appends their translations to
// the owning project's linked TM (the lowest-priority link). Rows with
// no target are skipped. Returns how many rows changed.
func (c *Coordinator) ConfirmRows(ctx context.Context, rowIDs []int64, userID int64) (int, error) {
	op := events.Begin(c.sink, userID, "row", "confirm")
	op.Started(ctx, map[string]any{"rows": len(rowIDs)})

	var updates []types.RowUpdate
	byProject := map[int64][]types.EntryInput{}
	for _, id := range rowIDs {
		if err := ctx.Err(); err != nil {
			op.Failed(ctx, err)
			return 0, err
		}
		row, file, err := c.be.Rows().GetWithFile(ctx, id)
		if err != nil {
			op.Failed(ctx, err)
			return 0, err
		}
		if row.Target == "" {
			continue
		}
		status := types.RowApproved
		updates = append(updates, types.RowUpdate{
			ID:       id,
			RowPatch: types.RowPatch{Status: &status, UpdatedBy: userID},
		})
		byProject[file.ProjectID] = append(byProject[file.ProjectID], types.EntryInput{
			Source:   row.Source,
			Target:   row.Target,
			StringID: row.StringID,
		})
	}
	if len(updates) == 0 {
		op.Completed(ctx, map[string]any{"confirmed": 0})
		return 0, nil
	}

	var confirmed int
	err := c.retry(ctx, func() error {
		var err error
		confirmed, err = c.be.Rows().BulkUpdate(ctx, updates)
		return err
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}

	for projectID, entries := range byProject {
		tm, err := c.be.TMs().GetLinkedForProject(ctx, projectID)
		if errors.Is(err, storage.ErrNotFound) {
			continue // no linked TM, nothing to append to
		}
		if err != nil {
			op.Failed(ctx, err)
			return confirmed, err
		}
		added, err := c.be.TMs().AddEntriesBulk(ctx, tm.ID, entries, userID)
		if err != nil {
			op.Failed(ctx, err)
			return confirmed, err
		}
		op.Progress(ctx, map[string]any{"tm_id": tm.ID, "entries_added": added})
	}
	op.Completed(ctx, map[string]any{"confirmed": confirmed})
	return confirmed, nil
}
