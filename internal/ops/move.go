package ops

import (
	"context"
	"fmt"

	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// MoveFileCrossProject moves a file into another project after
// verifying the destination folder actually lives there. The adapter
// auto-renames on destination collision; rows keep their IDs.
func (c *Coordinator) MoveFileCrossProject(ctx context.Context, fileID, targetProjectID int64, targetFolderID *int64, userID int64) error {
	op := events.Begin(c.sink, userID, "file", "move_cross_project")
	op.Started(ctx, map[string]any{"file_id": fileID, "target_project_id": targetProjectID})

	err := c.transact(ctx, func(tx storage.Stores) error {
		if err := verifyFolderInProject(ctx, tx, targetFolderID, targetProjectID); err != nil {
			return err
		}
		return tx.Files().MoveCrossProject(ctx, fileID, targetProjectID, targetFolderID)
	})
	if err != nil {
		op.Failed(ctx, err)
		return err
	}
	op.Completed(ctx, nil)
	return nil
}

// MoveFolderCrossProject moves a folder subtree into another project,
// rewriting project_id on every descendant in one transaction.
func (c *Coordinator) MoveFolderCrossProject(ctx context.Context, folderID, targetProjectID int64, targetParentID *int64, userID int64) error {
	op := events.Begin(c.sink, userID, "folder", "move_cross_project")
	op.Started(ctx, map[string]any{"folder_id": folderID, "target_project_id": targetProjectID})

	err := c.transact(ctx, func(tx storage.Stores) error {
		if err := verifyFolderInProject(ctx, tx, targetParentID, targetProjectID); err != nil {
			return err
		}
		return tx.Folders().MoveCrossProject(ctx, folderID, targetProjectID, targetParentID)
	})
	if err != nil {
		op.Failed(ctx, err)
		return err
	}
	op.Completed(ctx, nil)
	return nil
}

// CopyFolder duplicates a folder subtree with fresh IDs and refreshed
// per-file row counts, all in one transaction. Returns the new root.
func (c *Coordinator) CopyFolder(ctx context.Context, folderID int64, targetProjectID, targetParentID *int64, userID int64) (*types.Folder, error) {
	op := events.Begin(c.sink, userID, "folder", "copy")
	op.Started(ctx, map[string]any{"folder_id": folderID})

	var copied *types.Folder
	err := c.transact(ctx, func(tx storage.Stores) error {
		if targetProjectID != nil {
			if err := verifyFolderInProject(ctx, tx, targetParentID, *targetProjectID); err != nil {
				return err
			}
		}
		var err error
		copied, err = tx.Folders().Copy(ctx, folderID, targetProjectID, targetParentID)
		return err
	})
	if err != nil {
		op.Failed(ctx, err)
		return nil, err
	}
	op.Completed(ctx, map[string]any{"new_folder_id": copied.ID})
	return copied, nil
}

// CopyFile duplicates a file and all its rows and returns the new file.
func (c *Coordinator) CopyFile(ctx context.Context, fileID int64, targetProjectID, targetFolderID *int64, userID int64) (*types.File, error) {
	op := events.Begin(c.sink, userID, "file", "copy")
	op.Started(ctx, map[string]any{"file_id": fileID})

	var copied *types.File
	err := c.transact(ctx, func(tx storage.Stores) error {
		if targetProjectID != nil {
			if err := verifyFolderInProject(ctx, tx, targetFolderID, *targetProjectID); err != nil {
				return err
			}
		}
		var err error
		copied, err = tx.Files().Copy(ctx, fileID, targetProjectID, targetFolderID)
		return err
	})
	if err != nil {
		op.Failed(ctx, err)
		return nil, err
	}
	op.Completed(ctx, map[string]any{"new_file_id": copied.ID})
	return copied, nil
}

// verifyFolderInProject checks that folderID, when set, belongs to
// projectID. A nil folderID means the project root and always passes.
func verifyFolderInProject(ctx context.Context, tx storage.Stores, folderID *int64, projectID int64) error {
	if folderID == nil {
		return nil
	}
	folder, err := tx.Folders().Get(ctx, *folderID)
	if err != nil {
		return err
	}
	if folder.ProjectID != projectID {
		return fmt.Errorf("%w: folder %d belongs to project %d, not %d",
			storage.ErrInvalidScope, folder.ID, folder.ProjectID, projectID)
	}
	return nil
}
