package telemetry

import (
	"context"
	"testing"

	"github.com/lockitd/lockit/internal/storage"
)

func TestEnabledOffByDefault(t *testing.T) {
	t.Setenv("LOCKIT_OTEL_ENABLED", "")
	if Enabled() {
		t.Error("telemetry should be off by default")
	}
	t.Setenv("LOCKIT_OTEL_ENABLED", "true")
	if !Enabled() {
		t.Error("telemetry should be on when LOCKIT_OTEL_ENABLED=true")
	}
	t.Setenv("LOCKIT_OTEL_ENABLED", "1")
	if Enabled() {
		t.Error("only the literal \"true\" enables telemetry")
	}
}

func TestInitDisabledInstallsNoops(t *testing.T) {
	t.Setenv("LOCKIT_OTEL_ENABLED", "")
	if err := Init(context.Background(), "lockit-test", "0.0.0"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown(context.Background())
}

type nilRows struct{ storage.RowRepository }

func TestWrapRowsPassthroughWhenDisabled(t *testing.T) {
	t.Setenv("LOCKIT_OTEL_ENABLED", "")
	inner := &nilRows{}
	if got := WrapRows(inner); got != storage.RowRepository(inner) {
		t.Error("WrapRows should return the repository unchanged when telemetry is off")
	}
}

func TestWrapRowsDecoratesWhenEnabled(t *testing.T) {
	t.Setenv("LOCKIT_OTEL_ENABLED", "true")
	inner := &nilRows{}
	got := WrapRows(inner)
	if _, ok := got.(*InstrumentedRows); !ok {
		t.Errorf("WrapRows should return *InstrumentedRows, got %T", got)
	}
}
