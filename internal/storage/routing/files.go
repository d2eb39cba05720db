package routing

import (
	"context"
	"encoding/json"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// Files routes FileRepository calls by the sign of the file ID, or the
// project ID for project-scoped calls. Local projects carry negative IDs,
// so a file and its project always share a backend.
type Files struct {
	primary storage.FileRepository
	offline storage.FileRepository
}

var _ storage.FileRepository = (*Files)(nil)

// NewFiles wraps a primary and an offline file repository.
func NewFiles(primary, offline storage.FileRepository) *Files {
	return &Files{primary: primary, offline: offline}
}

func (f *Files) pick(id int64) storage.FileRepository {
	if id < 0 {
		return f.offline
	}
	return f.primary
}

func (f *Files) Get(ctx context.Context, id int64) (*types.File, error) {
	return f.pick(id).Get(ctx, id)
}

func (f *Files) GetForProject(ctx context.Context, projectID int64, folderID *int64) ([]*types.File, error) {
	return f.pick(projectID).GetForProject(ctx, projectID, folderID)
}

func (f *Files) Create(ctx context.Context, file *types.File) error {
	return f.pick(file.ProjectID).Create(ctx, file)
}

func (f *Files) Rename(ctx context.Context, id int64, name string) error {
	return f.pick(id).Rename(ctx, id, name)
}

func (f *Files) Update(ctx context.Context, id int64, targetLanguage *string, extraData json.RawMessage) error {
	return f.pick(id).Update(ctx, id, targetLanguage, extraData)
}

func (f *Files) Delete(ctx context.Context, id int64) (bool, error) {
	return f.pick(id).Delete(ctx, id)
}

func (f *Files) Move(ctx context.Context, id int64, folderID *int64) error {
	return f.pick(id).Move(ctx, id, folderID)
}

// MoveCrossProject dispatches by the file's backend. Moving a row-owning
// entity between backends is a sync concern, not a move; within the
// offline backend the adapter itself enforces the Offline Storage rule.
func (f *Files) MoveCrossProject(ctx context.Context, id int64, targetProjectID int64, targetFolderID *int64) error {
	return f.pick(id).MoveCrossProject(ctx, id, targetProjectID, targetFolderID)
}

func (f *Files) Copy(ctx context.Context, id int64, targetProjectID *int64, targetFolderID *int64) (*types.File, error) {
	return f.pick(id).Copy(ctx, id, targetProjectID, targetFolderID)
}

func (f *Files) GetRows(ctx context.Context, fileID int64) ([]*types.Row, error) {
	return f.pick(fileID).GetRows(ctx, fileID)
}

func (f *Files) AddRows(ctx context.Context, fileID int64, rows []*types.Row) error {
	return f.pick(fileID).AddRows(ctx, fileID, rows)
}

func (f *Files) GetRowsForExport(ctx context.Context, fileID int64) ([]*types.Row, error) {
	return f.pick(fileID).GetRowsForExport(ctx, fileID)
}

func (f *Files) UpdateRowCount(ctx context.Context, fileID int64) error {
	return f.pick(fileID).UpdateRowCount(ctx, fileID)
}

func (f *Files) CheckNameExists(ctx context.Context, projectID int64, folderID *int64, name string, excludeID int64) (bool, error) {
	return f.pick(projectID).CheckNameExists(ctx, projectID, folderID, name, excludeID)
}
