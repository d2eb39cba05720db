package trash

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/lockitd/lockit/internal/types"
)

func samplePayload() *FolderPayload {
	now := time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)
	parent := int64(40)
	return &FolderPayload{
		Folder: &types.Folder{ID: 40, ProjectID: 10, Name: "ui", CreatedAt: now, UpdatedAt: now},
		Files: []*FilePayload{
			{
				File: &types.File{
					ID: 70, ProjectID: 10, FolderID: &parent, Name: "menu.xlsx",
					Format: "xlsx", RowCount: 2,
					ExtraData: json.RawMessage(`{"sheet":"Sheet1","cols":[1,2]}`),
					CreatedAt: now, UpdatedAt: now,
				},
				Rows: []*types.Row{
					{ID: 700, FileID: 70, RowNum: 1, Source: "Save", Target: "Guardar",
						Status: types.RowTranslated, Memo: "toolbar", CreatedAt: now, UpdatedAt: now},
					{ID: 701, FileID: 70, RowNum: 2, Source: "Quit",
						Status: types.RowPending, ExtraData: json.RawMessage(`{"bold":true}`),
						CreatedAt: now, UpdatedAt: now},
				},
			},
		},
		Subfolders: []*FolderPayload{
			{
				Folder:     &types.Folder{ID: 41, ProjectID: 10, ParentID: &parent, Name: "dialogs", CreatedAt: now, UpdatedAt: now},
				Files:      []*FilePayload{},
				Subfolders: []*FolderPayload{},
			},
		},
	}
}

func TestFolderPayloadRoundTrip(t *testing.T) {
	original := samplePayload()

	data, err := EncodeFolder(original)
	if err != nil {
		t.Fatalf("EncodeFolder: %v", err)
	}
	decoded, err := DecodeFolder(data)
	if err != nil {
		t.Fatalf("DecodeFolder: %v", err)
	}

	if decoded.Folder.ID != 40 || decoded.Folder.Name != "ui" {
		t.Errorf("folder mismatch: %+v", decoded.Folder)
	}
	if len(decoded.Files) != 1 || len(decoded.Files[0].Rows) != 2 {
		t.Fatalf("files/rows lost in round trip")
	}
	if len(decoded.Subfolders) != 1 || decoded.Subfolders[0].Folder.ID != 41 {
		t.Fatalf("subfolders lost in round trip")
	}

	// Opaque JSON must survive byte-for-byte.
	row := decoded.Files[0].Rows[1]
	if !bytes.Equal(row.ExtraData, []byte(`{"bold":true}`)) {
		t.Errorf("row extra_data changed: %s", row.ExtraData)
	}
	if !bytes.Equal(decoded.Files[0].File.ExtraData, []byte(`{"sheet":"Sheet1","cols":[1,2]}`)) {
		t.Errorf("file extra_data changed: %s", decoded.Files[0].File.ExtraData)
	}
	if row.Status != types.RowPending || decoded.Files[0].Rows[0].Memo != "toolbar" {
		t.Error("row fields changed in round trip")
	}
}

func TestPayloadShape(t *testing.T) {
	data, err := EncodeFolder(samplePayload())
	if err != nil {
		t.Fatalf("EncodeFolder: %v", err)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		t.Fatalf("unmarshal shape: %v", err)
	}
	for _, key := range []string{"folder", "files", "subfolders"} {
		if _, ok := shape[key]; !ok {
			t.Errorf("folder payload missing %q key", key)
		}
	}

	fileData, err := EncodeFile(samplePayload().Files[0])
	if err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}
	shape = map[string]json.RawMessage{}
	if err := json.Unmarshal(fileData, &shape); err != nil {
		t.Fatalf("unmarshal file shape: %v", err)
	}
	if _, ok := shape["subfolders"]; ok {
		t.Error("file payload must omit subfolders")
	}
	for _, key := range []string{"file", "rows"} {
		if _, ok := shape[key]; !ok {
			t.Errorf("file payload missing %q key", key)
		}
	}
}

func TestDecodeRejectsEmptyPayloads(t *testing.T) {
	if _, err := DecodeFolder(json.RawMessage(`{}`)); err == nil {
		t.Error("DecodeFolder should reject a payload without a folder record")
	}
	if _, err := DecodeFile(json.RawMessage(`{"rows":[]}`)); err == nil {
		t.Error("DecodeFile should reject a payload without a file record")
	}
	if _, err := DecodeFolder(json.RawMessage(`not json`)); err == nil {
		t.Error("DecodeFolder should reject malformed JSON")
	}
}
