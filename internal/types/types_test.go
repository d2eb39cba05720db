package types

import (
	"strings"
	"testing"
	"time"
)

func TestRowValidation(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid row",
			row: Row{
				FileID: 10,
				RowNum: 1,
				Source: "Hello",
				Status: RowPending,
			},
			wantErr: false,
		},
		{
			name: "missing file id",
			row: Row{
				RowNum: 1,
				Source: "Hello",
			},
			wantErr: true,
			errMsg:  "file_id is required",
		},
		{
			name: "zero row num",
			row: Row{
				FileID: 10,
				RowNum: 0,
			},
			wantErr: true,
			errMsg:  "row_num must be 1 or greater",
		},
		{
			name: "invalid status",
			row: Row{
				FileID: 10,
				RowNum: 1,
				Status: RowStatus("done"),
			},
			wantErr: true,
			errMsg:  "invalid status",
		},
		{
			name: "negative qa flag count",
			row: Row{
				FileID:      10,
				RowNum:      1,
				QAFlagCount: -1,
			},
			wantErr: true,
			errMsg:  "qa_flag_count cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want containing %q", err, tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestFileValidation(t *testing.T) {
	f := File{Name: "strings.xlsx", ProjectID: 3}
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	f.SyncStatus = SyncStatus("stale")
	if err := f.Validate(); err == nil {
		t.Error("Validate() expected error for invalid sync status")
	}

	f = File{Name: "strings.xlsx"}
	if err := f.Validate(); err == nil {
		t.Error("Validate() expected error for missing project_id")
	}
}

func TestStatusValidity(t *testing.T) {
	for _, s := range []RowStatus{RowPending, RowTranslated, RowReviewed, RowApproved} {
		if !s.IsValid() {
			t.Errorf("RowStatus %q should be valid", s)
		}
	}
	if RowStatus("open").IsValid() {
		t.Error("RowStatus open should be invalid")
	}

	if RowPending.IsConfirmed() {
		t.Error("pending should not count as confirmed")
	}
	for _, s := range []RowStatus{RowTranslated, RowReviewed, RowApproved} {
		if !s.IsConfirmed() {
			t.Errorf("%q should count as confirmed", s)
		}
	}
}

func TestSyncStatusRowSubset(t *testing.T) {
	for _, s := range []SyncStatus{SyncSynced, SyncModified, SyncNew} {
		if !s.ValidForRow() {
			t.Errorf("%q should be valid for rows", s)
		}
	}
	for _, s := range []SyncStatus{SyncLocal, SyncOrphaned} {
		if !s.IsValid() {
			t.Errorf("%q should be valid for files", s)
		}
		if s.ValidForRow() {
			t.Errorf("%q should not be valid for rows", s)
		}
	}
}

func TestTMTargetKind(t *testing.T) {
	if kind := (TMTarget{}).Kind(); kind != ScopeUnassigned {
		t.Errorf("zero target Kind() = %q, want unassigned", kind)
	}
	if kind := PlatformTarget(1).Kind(); kind != ScopePlatform {
		t.Errorf("PlatformTarget Kind() = %q, want platform", kind)
	}
	if kind := ProjectTarget(2).Kind(); kind != ScopeProject {
		t.Errorf("ProjectTarget Kind() = %q, want project", kind)
	}
	if kind := FolderTarget(3).Kind(); kind != ScopeFolder {
		t.Errorf("FolderTarget Kind() = %q, want folder", kind)
	}

	both := TMTarget{ProjectID: int64Ptr(2), FolderID: int64Ptr(3)}
	if both.ScopeCount() != 2 {
		t.Errorf("ScopeCount() = %d, want 2", both.ScopeCount())
	}
	if !(TMTarget{}).IsUnassigned() {
		t.Error("zero target should be unassigned")
	}
}

func TestRowQueryOffset(t *testing.T) {
	tests := []struct {
		page, limit, want int
	}{
		{0, 0, 0},
		{1, 50, 0},
		{2, 50, 50},
		{4, 25, 75},
		{3, 0, 0},
	}
	for _, tt := range tests {
		q := RowQuery{Page: tt.page, Limit: tt.limit}
		if got := q.Offset(); got != tt.want {
			t.Errorf("Offset(page=%d, limit=%d) = %d, want %d", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestRowQueryFieldDefaults(t *testing.T) {
	q := RowQuery{Search: "hello"}
	fields := q.Fields()
	if len(fields) != 2 || fields[0] != FieldSource || fields[1] != FieldTarget {
		t.Errorf("Fields() = %v, want [source target]", fields)
	}

	q.SearchFields = []SearchField{FieldStringID}
	fields = q.Fields()
	if len(fields) != 1 || fields[0] != FieldStringID {
		t.Errorf("Fields() = %v, want [string_id]", fields)
	}
}

func TestRowPatchIsEmpty(t *testing.T) {
	if !(RowPatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (RowPatch{UpdatedBy: 7}).IsEmpty() != true {
		t.Error("updated_by alone changes nothing")
	}
	target := "x"
	if (RowPatch{Target: &target}).IsEmpty() {
		t.Error("patch with target should not be empty")
	}
}

func TestHashSourceNormalization(t *testing.T) {
	base := HashSource("Hello world")
	same := []string{
		"Hello world",
		"  Hello world  ",
		"Hello   world",
		"Hello\tworld",
		"\nHello world\n",
	}
	for _, s := range same {
		if got := HashSource(s); got != base {
			t.Errorf("HashSource(%q) = %s, want %s", s, got, base)
		}
	}

	// Case is significant.
	if HashSource("hello world") == base {
		t.Error("HashSource should be case-sensitive")
	}
	if len(base) != 64 {
		t.Errorf("HashSource length = %d, want 64 hex chars", len(base))
	}
}

func TestTimestampOrdering(t *testing.T) {
	earlier := time.Date(2025, 3, 1, 10, 0, 0, 123e6, time.UTC)
	later := earlier.Add(time.Millisecond)

	a, b := FormatTimestamp(earlier), FormatTimestamp(later)
	if !(a < b) {
		t.Errorf("lexicographic order broken: %q should sort before %q", a, b)
	}

	parsed, err := ParseTimestamp(a)
	if err != nil {
		t.Fatalf("ParseTimestamp(%q): %v", a, err)
	}
	if !parsed.Equal(earlier) {
		t.Errorf("round-trip mismatch: got %v, want %v", parsed, earlier)
	}

	if _, err := ParseTimestamp("2025-03-01 10:00:00"); err == nil {
		t.Error("ParseTimestamp should reject non-canonical input")
	}
}

func TestTrashEntryExpiry(t *testing.T) {
	now := time.Now()
	entry := TrashEntry{Status: TrashTrashed, ExpiresAt: now.Add(-time.Hour)}
	if !entry.IsExpired(now) {
		t.Error("past expires_at should be expired")
	}

	entry.ExpiresAt = now.Add(time.Hour)
	if entry.IsExpired(now) {
		t.Error("future expires_at should not be expired")
	}

	entry.Status = TrashRestored
	entry.ExpiresAt = now.Add(-time.Hour)
	if entry.IsExpired(now) {
		t.Error("restored entries never expire")
	}
}

func TestIsLocalID(t *testing.T) {
	if !IsLocalID(-123) {
		t.Error("-123 should be local")
	}
	if IsLocalID(5) {
		t.Error("5 should not be local")
	}
	if IsLocalID(0) {
		t.Error("0 is reserved, not local")
	}
}

func int64Ptr(v int64) *int64 { return &v }
