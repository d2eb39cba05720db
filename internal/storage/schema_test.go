package storage

import (
	"errors"
	"testing"

	"github.com/lockitd/lockit/internal/types"
)

func TestBindingTableNames(t *testing.T) {
	server := NewBinding(ModeServer, false)
	offline := NewBinding(ModeOffline, true)

	tests := []struct {
		logical     string
		wantServer  string
		wantOffline string
	}{
		{"platforms", "ldm_platforms", "offline_platforms"},
		{"rows", "ldm_rows", "offline_rows"},
		{"tm_entries", "ldm_tm_entries", "offline_tm_entries"},
		{"trash", "ldm_trash", "offline_trash"},
		{"local_changes", "local_changes", "local_changes"},
		{"sync_subscriptions", "sync_subscriptions", "sync_subscriptions"},
	}
	for _, tt := range tests {
		if got := server.Table(tt.logical); got != tt.wantServer {
			t.Errorf("server Table(%q) = %q, want %q", tt.logical, got, tt.wantServer)
		}
		if got := offline.Table(tt.logical); got != tt.wantOffline {
			t.Errorf("offline Table(%q) = %q, want %q", tt.logical, got, tt.wantOffline)
		}
	}
}

func TestBindingUnknownTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Table() should panic on unknown logical name")
		}
	}()
	NewBinding(ModeServer, false).Table("widgets")
}

func TestBindingSyncColumns(t *testing.T) {
	embedded := NewBinding(ModeServer, true) // server family inside the embedded store
	online := NewBinding(ModeServer, false)

	if !embedded.HasColumn("files", "sync_status") {
		t.Error("embedded binding should expose files.sync_status")
	}
	if online.HasColumn("files", "sync_status") {
		t.Error("online binding must not expose files.sync_status")
	}
	if !online.HasColumn("files", "name") {
		t.Error("always-present columns should report true")
	}
	if online.HasColumn("rows", "server_file_id") {
		t.Error("online binding must not expose rows.server_file_id")
	}
	if got := len(embedded.RowSyncColumns()); got != 3 {
		t.Errorf("RowSyncColumns() len = %d, want 3", got)
	}
	if online.FileSyncColumns() != nil {
		t.Error("online FileSyncColumns() should be nil")
	}
}

func TestValidateTarget(t *testing.T) {
	if err := ValidateTarget(types.TMTarget{}); err != nil {
		t.Errorf("unassigned target should validate, got %v", err)
	}
	if err := ValidateTarget(types.ProjectTarget(3)); err != nil {
		t.Errorf("single-scope target should validate, got %v", err)
	}

	two := types.TMTarget{}
	pid, fid := int64(1), int64(2)
	two.ProjectID, two.FolderID = &pid, &fid
	err := ValidateTarget(two)
	if !errors.Is(err, ErrInvalidScope) {
		t.Errorf("two-scope target should fail with ErrInvalidScope, got %v", err)
	}
}
