// Package trash serializes entity subtrees into trash payloads and
// restores them.
//
// The payload shape is stable across versions:
//
//	{"folder": {...},
//	 "files":  [{"file": {...}, "rows": [...]}, ...],
//	 "subfolders": [ recursive same shape ]}
//
// File-only payloads omit subfolders. Original IDs are preserved inside
// the payload so references between descendants still resolve after a
// restore; only the top-level entity is renamed when its old name is
// taken.
package trash

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lockitd/lockit/internal/naming"
	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/types"
)

// FilePayload is one serialized file with its rows.
type FilePayload struct {
	File *types.File  `json:"file"`
	Rows []*types.Row `json:"rows"`
}

// FolderPayload is one serialized folder subtree.
type FolderPayload struct {
	Folder     *types.Folder    `json:"folder"`
	Files      []*FilePayload   `json:"files"`
	Subfolders []*FolderPayload `json:"subfolders"`
}

// ProjectPayload is a serialized project: its root files plus the full
// subtree of every root folder.
type ProjectPayload struct {
	Project *types.Project   `json:"project"`
	Files   []*FilePayload   `json:"files"`
	Folders []*FolderPayload `json:"folders"`
}

// EncodeFile serializes a file payload.
func EncodeFile(p *FilePayload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode file payload: %w", err)
	}
	return data, nil
}

// DecodeFile parses a file payload.
func DecodeFile(data json.RawMessage) (*FilePayload, error) {
	var p FilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode file payload: %w", err)
	}
	if p.File == nil {
		return nil, fmt.Errorf("%w: file payload missing file record", storage.ErrIntegrity)
	}
	return &p, nil
}

// EncodeFolder serializes a folder payload.
func EncodeFolder(p *FolderPayload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode folder payload: %w", err)
	}
	return data, nil
}

// DecodeFolder parses a folder payload.
func DecodeFolder(data json.RawMessage) (*FolderPayload, error) {
	var p FolderPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode folder payload: %w", err)
	}
	if p.Folder == nil {
		return nil, fmt.Errorf("%w: folder payload missing folder record", storage.ErrIntegrity)
	}
	return &p, nil
}

// EncodeProject serializes a project payload.
func EncodeProject(p *ProjectPayload) (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode project payload: %w", err)
	}
	return data, nil
}

// DecodeProject parses a project payload.
func DecodeProject(data json.RawMessage) (*ProjectPayload, error) {
	var p ProjectPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project payload: %w", err)
	}
	if p.Project == nil {
		return nil, fmt.Errorf("%w: project payload missing project record", storage.ErrIntegrity)
	}
	return &p, nil
}

// CollectFile reads a file and its rows into a payload.
func CollectFile(ctx context.Context, st storage.Stores, fileID int64) (*FilePayload, error) {
	file, err := st.Files().Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	rows, err := st.Files().GetRows(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &FilePayload{File: file, Rows: rows}, nil
}

// collectItem tracks one pending folder during subtree collection.
type collectItem struct {
	id    int64
	depth int
	node  *FolderPayload // filled in when the folder is visited
	into  *[]*FolderPayload
}

// CollectFolder reads a folder subtree into a payload using an explicit
// work stack. Depth is capped at types.MaxFolderDepth and revisiting a
// folder (a corrupt parent chain) aborts with ErrIntegrity.
func CollectFolder(ctx context.Context, st storage.Stores, folderID int64) (*FolderPayload, error) {
	root := &FolderPayload{}
	stack := []collectItem{{id: folderID, depth: 0, node: root}}
	seen := map[int64]bool{}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > types.MaxFolderDepth {
			return nil, fmt.Errorf("%w: folder tree deeper than %d", storage.ErrIntegrity, types.MaxFolderDepth)
		}
		if seen[item.id] {
			return nil, fmt.Errorf("%w: folder %d appears twice in its own subtree", storage.ErrIntegrity, item.id)
		}
		seen[item.id] = true

		contents, err := st.Folders().GetWithContents(ctx, item.id)
		if err != nil {
			return nil, err
		}

		node := item.node
		if node == nil {
			node = &FolderPayload{}
			*item.into = append(*item.into, node)
		}
		node.Folder = contents.Folder
		node.Files = make([]*FilePayload, 0, len(contents.Files))
		node.Subfolders = make([]*FolderPayload, 0, len(contents.Subfolders))

		for _, f := range contents.Files {
			rows, err := st.Files().GetRows(ctx, f.ID)
			if err != nil {
				return nil, err
			}
			node.Files = append(node.Files, &FilePayload{File: f, Rows: rows})
		}
		for _, sub := range contents.Subfolders {
			stack = append(stack, collectItem{id: sub.ID, depth: item.depth + 1, into: &node.Subfolders})
		}
	}
	return root, nil
}

// CollectProject reads a whole project into a payload: root files with
// their rows, then every root folder's subtree.
func CollectProject(ctx context.Context, st storage.Stores, projectID int64) (*ProjectPayload, error) {
	project, err := st.Projects().Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p := &ProjectPayload{Project: project}

	rootFiles, err := st.Files().GetForProject(ctx, projectID, nil)
	if err != nil {
		return nil, err
	}
	for _, f := range rootFiles {
		rows, err := st.Files().GetRows(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		p.Files = append(p.Files, &FilePayload{File: f, Rows: rows})
	}

	folders, err := st.Folders().GetForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		if f.ParentID != nil {
			continue // reached through its root ancestor
		}
		sub, err := CollectFolder(ctx, st, f.ID)
		if err != nil {
			return nil, err
		}
		p.Folders = append(p.Folders, sub)
	}
	return p, nil
}

// RestoreFile recreates a file and its rows with their original IDs. The
// file is renamed if its old name is taken among destination siblings.
func RestoreFile(ctx context.Context, st storage.Stores, p *FilePayload) error {
	file := *p.File
	name, err := naming.Unique(ctx, file.Name, func(ctx context.Context, candidate string) (bool, error) {
		return st.Files().CheckNameExists(ctx, file.ProjectID, file.FolderID, candidate, 0)
	})
	if err != nil {
		return err
	}
	file.Name = name

	if err := st.Files().Create(ctx, &file); err != nil {
		return err
	}
	return restoreRows(ctx, st, file.ID, p.Rows)
}

// restoreRows reinserts rows with their original IDs. QA findings are
// not serialized into trash, so the flag counters restart at zero.
func restoreRows(ctx context.Context, st storage.Stores, fileID int64, rows []*types.Row) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.QAFlagCount = 0
	}
	return st.Files().AddRows(ctx, fileID, rows)
}

// RestoreProject recreates a project and its contents with their
// original IDs. The project is renamed on collision within its platform
// namespace; descendants keep their names because the recreated
// namespaces start empty.
func RestoreProject(ctx context.Context, st storage.Stores, p *ProjectPayload) error {
	project := *p.Project
	name, err := naming.Unique(ctx, project.Name, func(ctx context.Context, candidate string) (bool, error) {
		return st.Projects().CheckNameExists(ctx, candidate, project.PlatformID, 0)
	})
	if err != nil {
		return err
	}
	project.Name = name
	if err := st.Projects().Create(ctx, &project); err != nil {
		return err
	}

	for _, fp := range p.Files {
		file := *fp.File
		if err := st.Files().Create(ctx, &file); err != nil {
			return err
		}
		if err := restoreRows(ctx, st, file.ID, fp.Rows); err != nil {
			return err
		}
	}
	for _, sub := range p.Folders {
		if err := restoreFolderPayload(ctx, st, sub, false); err != nil {
			return err
		}
	}
	return nil
}

// RestoreFolder recreates a folder subtree with its original IDs,
// inserting folder, then files, then rows, then subfolders. Only the
// top-level folder is renamed on collision; descendants keep their names
// because their namespaces are recreated empty.
func RestoreFolder(ctx context.Context, st storage.Stores, p *FolderPayload) error {
	return restoreFolderPayload(ctx, st, p, true)
}

func restoreFolderPayload(ctx context.Context, st storage.Stores, p *FolderPayload, renameTop bool) error {
	type restoreItem struct {
		payload *FolderPayload
		depth   int
		top     bool
	}
	stack := []restoreItem{{payload: p, depth: 0, top: renameTop}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > types.MaxFolderDepth {
			return fmt.Errorf("%w: folder payload deeper than %d", storage.ErrIntegrity, types.MaxFolderDepth)
		}

		folder := *item.payload.Folder
		if item.top {
			name, err := naming.Unique(ctx, folder.Name, func(ctx context.Context, candidate string) (bool, error) {
				return st.Folders().CheckNameExists(ctx, folder.ProjectID, folder.ParentID, candidate, 0)
			})
			if err != nil {
				return err
			}
			folder.Name = name
		}
		if err := st.Folders().Create(ctx, &folder); err != nil {
			return err
		}

		for _, fp := range item.payload.Files {
			file := *fp.File
			if err := st.Files().Create(ctx, &file); err != nil {
				return err
			}
			if err := restoreRows(ctx, st, file.ID, fp.Rows); err != nil {
				return err
			}
		}
		for _, sub := range item.payload.Subfolders {
			stack = append(stack, restoreItem{payload: sub, depth: item.depth + 1})
		}
	}
	return nil
}
