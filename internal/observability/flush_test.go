package observability

import (
	"testing"

	"go.uber.org/zap"
)

func TestFlushTelemetry(t *testing.T) {
	if err := FlushTelemetry(nil); err != nil {
		t.Errorf("FlushTelemetry(nil) error = %v, want nil", err)
	}
	if err := FlushTelemetry(zap.NewNop()); err != nil {
		t.Errorf("FlushTelemetry(nop) error = %v, want nil", err)
	}
}
