package debug

import "testing"

func TestVerboseToggle(t *testing.T) {
	if enabled {
		t.Skip("LOCKIT_DEBUG set in environment")
	}
	defer SetVerbose(false)

	if Enabled() {
		t.Error("Enabled() should be false by default")
	}
	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() should be true after SetVerbose(true)")
	}
}

func TestQuietToggle(t *testing.T) {
	defer SetQuiet(false)

	if IsQuiet() {
		t.Error("IsQuiet() should be false by default")
	}
	SetQuiet(true)
	if !IsQuiet() {
		t.Error("IsQuiet() should be true after SetQuiet(true)")
	}
}
