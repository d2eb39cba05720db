package naming

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// takenSet builds an Exists over a fixed case-insensitive sibling set.
func takenSet(names ...string) Exists {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return func(_ context.Context, name string) (bool, error) {
		return set[strings.ToLower(name)], nil
	}
}

func TestUnique(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		desired  string
		siblings []string
		want     string
	}{
		{"no collision", "Alpha", nil, "Alpha"},
		{"first suffix", "Alpha", []string{"Alpha"}, "Alpha_1"},
		{"case insensitive collision", "alpha", []string{"ALPHA"}, "alpha_1"},
		{"skips taken suffixes", "Alpha", []string{"Alpha", "Alpha_1", "Alpha_2"}, "Alpha_3"},
		{"smallest free suffix wins", "Alpha", []string{"Alpha", "Alpha_2"}, "Alpha_1"},
		{"extension preserved", "report.xlsx", []string{"report.xlsx"}, "report_1.xlsx"},
		{"double extension splits at last dot", "bundle.tar.gz", []string{"bundle.tar.gz"}, "bundle.tar_1.gz"},
		{"dotfile keeps empty ext", ".env", []string{".env"}, ".env_1"},
		{"no extension", "Strings", []string{"Strings"}, "Strings_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unique(ctx, tt.desired, takenSet(tt.siblings...))
			if err != nil {
				t.Fatalf("Unique() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Unique(%q) = %q, want %q", tt.desired, got, tt.want)
			}
		})
	}
}

func TestUniqueResultIsFree(t *testing.T) {
	ctx := context.Background()
	exists := takenSet("Doc", "Doc_1", "Doc_2", "Doc_3", "Doc_5")

	got, err := Unique(ctx, "Doc", exists)
	if err != nil {
		t.Fatalf("Unique() error: %v", err)
	}
	taken, _ := exists(ctx, got)
	if taken {
		t.Errorf("Unique() returned a taken name %q", got)
	}
	if got != "Doc_4" {
		t.Errorf("Unique() = %q, want smallest free suffix Doc_4", got)
	}
}

func TestUniquePropagatesError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := Unique(context.Background(), "x", func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Unique() error = %v, want %v", err, boom)
	}
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name, base, ext string
	}{
		{"report.xlsx", "report", ".xlsx"},
		{"bundle.tar.gz", "bundle.tar", ".gz"},
		{"noext", "noext", ""},
		{".gitignore", ".gitignore", ""},
		{".config.yaml", ".config", ".yaml"},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		base, ext := SplitExt(tt.name)
		if base != tt.base || ext != tt.ext {
			t.Errorf("SplitExt(%q) = (%q, %q), want (%q, %q)", tt.name, base, ext, tt.base, tt.ext)
		}
	}
}
