package tracing

import (
	"context"
	"errors"
	"testing"

	"slate-hq/slate/pkg/expiry"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("tracer reports enabled")
	}

	ctx, span := tracer.Start(context.Background(), "cleanup.run")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a recording span")
	}
	if got := TraceID(ctx); got != "" {
		t.Errorf("TraceID = %q, want empty for noop span", got)
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on noop tracer: %v", err)
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID on bare context = %q, want empty", got)
	}
}

func TestSetStatus_NoopSpan(t *testing.T) {
	tracer, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, span := tracer.Start(context.Background(), "cleanup.sweep")
	defer span.End()

	// Must not panic on noop spans.
	SetStatus(span, errors.New("sweep failed"))
	SetStatus(span, nil)
	SetJobAttributes(span, "job-1", "cleanup_all")
	SetSweepAttributes(span, "anonymous_strokes", 10, 2048, 0)
	SetCleanupAttributes(span, 10, 1, 0)
	SetReconcileAttributes(span, "optimize_storage", 3, 1, 4096)
}

// TestReconcileAttributes_FromResult feeds the helper from an actual
// reconcile result the way the daemon does, covering the int-to-int64
// widening of the file counters.
func TestReconcileAttributes_FromResult(t *testing.T) {
	tracer, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, span := tracer.Start(context.Background(), "cleanup.run")
	defer span.End()

	opt := &expiry.CleanupOperationResult{
		OperationType:      "optimize_storage",
		DeletedFilesCount:  3,
		OrphanedFilesCount: 1,
		FreedBytes:         4096,
	}
	SetReconcileAttributes(span, opt.OperationType,
		int64(opt.DeletedFilesCount), int64(opt.OrphanedFilesCount), opt.FreedBytes)
}
