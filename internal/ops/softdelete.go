package ops

import (
	"context"
	"fmt"

	"github.com/lockitd/lockit/internal/events"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/trash"
	"github.com/lockitd/lockit/internal/types"
)

// SoftDeleteFile serializes the file with its rows into a trash entry
// and hard-deletes it, all in one transaction. Returns the trash id.
func (c *Coordinator) SoftDeleteFile(ctx context.Context, fileID, userID int64, retentionDays int) (int64, error) {
	op := events.Begin(c.sink, userID, "file", "soft_delete")
	op.Started(ctx, map[string]any{"file_id": fileID})

	var trashID int64
	err := c.transact(ctx, func(tx storage.Stores) error {
		payload, err := trash.CollectFile(ctx, tx, fileID)
		if err != nil {
			return err
		}
		data, err := trash.EncodeFile(payload)
		if err != nil {
			return err
		}
		projectID := payload.File.ProjectID
		entry := &types.TrashEntry{
			ItemType:        c.fileItemType(),
			ItemID:          fileID,
			ItemName:        payload.File.Name,
			ItemData:        data,
			ParentProjectID: &projectID,
			ParentFolderID:  payload.File.FolderID,
			DeletedBy:       userID,
		}
		if err := tx.Trash().Create(ctx, entry, retentionDays); err != nil {
			return err
		}
		deleted, err := tx.Files().Delete(ctx, fileID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: file %d vanished during soft delete", storage.ErrIntegrity, fileID)
		}
		trashID = entry.ID
		return nil
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	op.Completed(ctx, map[string]any{"trash_id": trashID})
	return trashID, nil
}

// SoftDeleteFolder serializes the folder subtree into one trash entry
// and deletes rows, files, then folders, in one transaction.
func (c *Coordinator) SoftDeleteFolder(ctx context.Context, folderID, userID int64, retentionDays int) (int64, error) {
	op := events.Begin(c.sink, userID, "folder", "soft_delete")
	op.Started(ctx, map[string]any{"folder_id": folderID})

	var trashID int64
	err := c.transact(ctx, func(tx storage.Stores) error {
		payload, err := trash.CollectFolder(ctx, tx, folderID)
		if err != nil {
			return err
		}
		data, err := trash.EncodeFolder(payload)
		if err != nil {
			return err
		}
		projectID := payload.Folder.ProjectID
		entry := &types.TrashEntry{
			ItemType:        c.folderItemType(),
			ItemID:          folderID,
			ItemName:        payload.Folder.Name,
			ItemData:        data,
			ParentProjectID: &projectID,
			ParentFolderID:  payload.Folder.ParentID,
			DeletedBy:       userID,
		}
		if err := tx.Trash().Create(ctx, entry, retentionDays); err != nil {
			return err
		}
		deleted, err := tx.Folders().Delete(ctx, folderID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: folder %d vanished during soft delete", storage.ErrIntegrity, folderID)
		}
		trashID = entry.ID
		return nil
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	op.Completed(ctx, map[string]any{"trash_id": trashID})
	return trashID, nil
}

// SoftDeleteProject serializes the whole project into one trash entry
// and deletes rows, files, folders, then the project, in one
// transaction.
func (c *Coordinator) SoftDeleteProject(ctx context.Context, projectID, userID int64, retentionDays int) (int64, error) {
	op := events.Begin(c.sink, userID, "project", "soft_delete")
	op.Started(ctx, map[string]any{"project_id": projectID})

	var trashID int64
	err := c.transact(ctx, func(tx storage.Stores) error {
		payload, err := trash.CollectProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		data, err := trash.EncodeProject(payload)
		if err != nil {
			return err
		}
		entry := &types.TrashEntry{
			ItemType:  types.TrashProject,
			ItemID:    projectID,
			ItemName:  payload.Project.Name,
			ItemData:  data,
			DeletedBy: userID,
		}
		if err := tx.Trash().Create(ctx, entry, retentionDays); err != nil {
			return err
		}
		deleted, err := tx.Projects().Delete(ctx, projectID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: project %d vanished during soft delete", storage.ErrIntegrity, projectID)
		}
		trashID = entry.ID
		return nil
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	op.Completed(ctx, map[string]any{"trash_id": trashID})
	return trashID, nil
}

// Restore recreates the trashed subtree with its original IDs. The trash
// entry flips to restored in the same transaction; only the top-level
// entity is renamed when its old name is taken.
func (c *Coordinator) Restore(ctx context.Context, trashID, userID int64, isAdmin bool) error {
	op := events.Begin(c.sink, userID, "trash", "restore")
	op.Started(ctx, map[string]any{"trash_id": trashID})

	err := c.transact(ctx, func(tx storage.Stores) error {
		entry, err := tx.Trash().Get(ctx, trashID)
		if err != nil {
			return err
		}
		data, err := tx.Trash().Restore(ctx, trashID, userID, isAdmin)
		if err != nil {
			return err
		}
		switch entry.ItemType {
		case types.TrashFile, types.TrashLocalFile:
			p, err := trash.DecodeFile(data)
			if err != nil {
				return err
			}
			return trash.RestoreFile(ctx, tx, p)
		case types.TrashFolder, types.TrashLocalFolder:
			p, err := trash.DecodeFolder(data)
			if err != nil {
				return err
			}
			return trash.RestoreFolder(ctx, tx, p)
		case types.TrashProject:
			p, err := trash.DecodeProject(data)
			if err != nil {
				return err
			}
			return trash.RestoreProject(ctx, tx, p)
		default:
			return fmt.Errorf("%w: trash item type %q has no restore path", storage.ErrIntegrity, entry.ItemType)
		}
	})
	if err != nil {
		op.Failed(ctx, err)
		return err
	}
	op.Completed(ctx, nil)
	return nil
}

// CleanupTrash removes expired entries that are still trashed. It is
// safe to run from any process at any time.
func (c *Coordinator) CleanupTrash(ctx context.Context) (int, error) {
	op := events.Begin(c.sink, 0, "trash", "cleanup")
	op.Started(ctx, nil)

	var removed int
	err := c.retry(ctx, func() error {
		var err error
		removed, err = c.be.Trash().CleanupExpired(ctx)
		return err
	})
	if err != nil {
		op.Failed(ctx, err)
		return 0, err
	}
	op.Completed(ctx, map[string]any{"removed": removed})
	return removed, nil
}

// Offline deletions use the local-* item types so the trash listing can
// tell both worlds apart.
func (c *Coordinator) fileItemType() types.TrashItemType {
	if c.be.Mode() == storage.ModeOffline {
		return types.TrashLocalFile
	}
	return types.TrashFile
}

func (c *Coordinator) folderItemType() types.TrashItemType {
	if c.be.Mode() == storage.ModeOffline {
		return types.TrashLocalFolder
	}
	return types.TrashFolder
}
