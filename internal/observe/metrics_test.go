package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
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

// sumFor returns the counter value for the data point carrying attr.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordGenerationAndCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "summary", "llama2", 1500*time.Millisecond)
	m.RecordGeneration(ctx, "summary", "llama2", 2*time.Second)
	m.RecordCommand(ctx, "blossom_upload", "ok", 300*time.Millisecond)

	rm := collect(t, reader)

	tests := []struct {
		name  string
		count uint64
	}{
		{"vibeline.generation.duration", 2},
		{"vibeline.command.duration", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is not a histogram", tc.name)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := hist.DataPoints[0].Count; got != tc.count {
				t.Errorf("sample count = %d, want %d", got, tc.count)
			}
		})
	}

	if got := sumFor(t, rm, "vibeline.command.runs", Attr("status", "ok")); got != 1 {
		t.Errorf("command runs = %d, want 1", got)
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordActivation(ctx, "summary")
	m.RecordActivation(ctx, "summary")
	m.RecordActivation(ctx, "blog_post")
	m.RecordGenerationResult(ctx, "summary", "generated")
	m.RecordGenerationResult(ctx, "blog_post", "failed")
	m.RecordTokens(ctx, "llama2", 100, 40)
	m.RecordTokens(ctx, "llama2", 0, 0)
	m.RecordCorrections(ctx, 3)
	m.RecordCorrections(ctx, 0)
	m.RecordTranscript(ctx, "ok", time.Second)

	rm := collect(t, reader)

	if got := sumFor(t, rm, "vibeline.plugin.activations", Attr("plugin", "summary")); got != 2 {
		t.Errorf("summary activations = %d, want 2", got)
	}
	if got := sumFor(t, rm, "vibeline.generation.results", Attr("status", "failed")); got != 1 {
		t.Errorf("failed results = %d, want 1", got)
	}
	if got := sumFor(t, rm, "vibeline.llm.tokens", Attr("kind", "prompt")); got != 100 {
		t.Errorf("prompt tokens = %d, want 100", got)
	}
	if got := sumFor(t, rm, "vibeline.llm.tokens", Attr("kind", "completion")); got != 40 {
		t.Errorf("completion tokens = %d, want 40", got)
	}
	if got := sumFor(t, rm, "vibeline.transcripts", Attr("status", "ok")); got != 1 {
		t.Errorf("transcripts = %d, want 1", got)
	}

	met := findMetric(rm, "vibeline.vocabulary.corrections")
	if met == nil {
		t.Fatal("corrections metric not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Errorf("corrections = %+v, want single point of 3", sum.DataPoints)
	}
}

func TestActiveTranscriptsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveTranscripts.Add(ctx, 2)
	m.ActiveTranscripts.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "vibeline.active_transcripts")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("not an int64 sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Errorf("active transcripts = %+v, want 1", sum.DataPoints)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a == nil || a != b {
		t.Fatal("DefaultMetrics must return the same non-nil instance")
	}
}

func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("empty metrics body")
	}
}
