package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-analysis/internal/domain"
	"github.com/couchcryptid/location-analysis/internal/observability"
	"github.com/couchcryptid/location-analysis/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out one batch per call, then blocks until cancelled.
type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

// failingExtractor errors on every call.
type failingExtractor struct {
	calls atomic.Int64
}

func (f *failingExtractor) ExtractBatch(context.Context, int) ([]domain.RawMessage, error) {
	f.calls.Add(1)
	return nil, errors.New("broker unavailable")
}

type mockProcessor struct {
	failKeys map[string]bool
}

func (m *mockProcessor) Process(_ context.Context, raw domain.RawMessage) (domain.ReportMessage, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.ReportMessage{}, domain.ErrEmptyRequest
	}
	return domain.ReportMessage{
		RequestID: string(raw.Key),
		Report:    domain.AnalysisReport{ID: "report-" + string(raw.Key)},
	}, nil
}

type mockLoader struct {
	mu      sync.Mutex
	loaded  []domain.ReportMessage
	failFor int
	calls   int
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.ReportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failFor {
		return errors.New("write failed")
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockLoader) reports() []domain.ReportMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ReportMessage(nil), m.loaded...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawMessage(key string, commits *atomic.Int64) domain.RawMessage {
	return domain.RawMessage{
		Key:   []byte(key),
		Value: []byte(`{}`),
		Topic: "location-analysis-requests",
		Commit: func(context.Context) error {
			commits.Add(1)
			return nil
		},
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawMessage("a", &commits), rawMessage("b", &commits)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockProcessor{}, ldr, discardLogger(), metrics, 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	got := ldr.reports()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RequestID)
	assert.Equal(t, "report-b", got[1].Report.ID)
	assert.Equal(t, int64(2), commits.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockProcessor{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.reports())
}

func TestPipeline_Run_RejectedRequestIsCommittedAndSkipped(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawMessage("bad", &commits), rawMessage("good", &commits)}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockProcessor{failKeys: map[string]bool{"bad": true}}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	got := ldr.reports()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].RequestID)
	assert.Equal(t, int64(2), commits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestErrors))
}

func TestPipeline_Run_AllRejectedNotReady(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawMessage("bad", &commits)}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockProcessor{failKeys: map[string]bool{"bad": true}}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 200*time.Millisecond)

	assert.Empty(t, ldr.reports())
	assert.Equal(t, int64(1), commits.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawMessage{{rawMessage("a", &commits)}}}
	ldr := &mockLoader{failFor: 1}

	p := pipeline.New(ext, &mockProcessor{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.reports())
	assert.Equal(t, int64(0), commits.Load())
}

func TestPipeline_Run_ExtractErrorsBackOff(t *testing.T) {
	ext := &failingExtractor{}
	p := pipeline.New(ext, &mockProcessor{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	// 200ms + 400ms of backoff fit at most three attempts in 500ms.
	runFor(t, p, 500*time.Millisecond)

	assert.GreaterOrEqual(t, ext.calls.Load(), int64(1))
	assert.LessOrEqual(t, ext.calls.Load(), int64(3))
}
