package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "stt", 120*time.Millisecond, nil)
	m.RecordStage(ctx, "llm", 800*time.Millisecond, errors.New("backend down"))

	rm := collect(t, reader)
	if findMetric(rm, "voxbridge.stage.duration") == nil {
		t.Error("stage duration histogram not recorded")
	}
	errMetric := findMetric(rm, "voxbridge.stage.errors")
	if errMetric == nil {
		t.Fatal("stage error counter not recorded")
	}
	sum, ok := errMetric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("stage errors data type = %T, want Sum[int64]", errMetric.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 1 {
		t.Errorf("stage errors = %d, want 1 (only the llm call failed)", total)
	}
}

func TestRecordUtterance(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUtterance(ctx, "chunked", "ok", 2*time.Second)
	m.RecordUtterance(ctx, "atomic", "error", time.Second)

	rm := collect(t, reader)
	if findMetric(rm, "voxbridge.pipeline.duration") == nil {
		t.Error("pipeline duration histogram not recorded")
	}
	utter := findMetric(rm, "voxbridge.utterances")
	if utter == nil {
		t.Fatal("utterance counter not recorded")
	}
	sum := utter.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Errorf("utterance data points = %d, want 2 attribute sets", len(sum.DataPoints))
	}
}

func TestActiveSessionsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	sessions := findMetric(rm, "voxbridge.active_sessions")
	if sessions == nil {
		t.Fatal("active sessions metric not recorded")
	}
	sum := sessions.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("active sessions = %+v, want single data point with value 1", sum.DataPoints)
	}
}
