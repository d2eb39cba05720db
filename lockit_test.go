package lockit_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lockitd/lockit"
)

func TestOpenEmbedded(t *testing.T) {
	ctx := context.Background()
	store, err := lockit.OpenEmbedded(ctx, filepath.Join(t.TempDir(), "lockit.db"))
	if err != nil {
		t.Fatalf("OpenEmbedded failed: %v", err)
	}
	defer store.Close()

	project := &lockit.Project{Name: "Demo", OwnerID: 1}
	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.ID == 0 {
		t.Error("expected assigned project ID")
	}
}

func TestOpenFactory(t *testing.T) {
	dir := t.TempDir()
	f, err := lockit.Open(context.Background(), lockit.Config{
		Backend:      "sqlite",
		ServerDBPath: filepath.Join(dir, "server.db"),
		OfflinePath:  filepath.Join(dir, "offline.db"),
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if f.Primary() == nil {
		t.Error("expected primary store")
	}
}
