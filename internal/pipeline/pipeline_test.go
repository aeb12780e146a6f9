package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
	"github.com/couchcryptid/ebird-barchart/internal/observability"
	"github.com/couchcryptid/ebird-barchart/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu    sync.Mutex
	files map[string]string
	calls int
}

func (m *mockExtractor) Extract(_ context.Context, path string) (domain.RawFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	text, ok := m.files[path]
	if !ok {
		return domain.RawFile{}, fmt.Errorf("read %s: %w", path, os.ErrNotExist)
	}
	stem := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], ".txt")
	return domain.RawFile{Path: path, Stem: stem, Text: text}, nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exportText renders a minimal export with one uniformly observed taxon.
func exportText(label string, freq float64) string {
	lines := make([]string, 14)
	samples := make([]string, domain.Periods)
	freqs := make([]string, domain.Periods)
	for i := range samples {
		samples[i] = "10"
		freqs[i] = fmt.Sprint(freq)
	}
	lines = append(lines,
		"Sample Size:\t"+strings.Join(samples, "\t"),
		"",
		label+"\t"+strings.Join(freqs, "\t"),
	)
	return strings.Join(lines, "\n")
}

func exportPath(id string) string {
	return fmt.Sprintf("/exports/ebird_%s__1900_2021_1_12_barchart.txt", id)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{files: map[string]string{
		exportPath("L1"): exportText("Gadwall", 0.5),
		exportPath("L2"): exportText("goose sp.", 0.1),
		exportPath("L3"): exportText("Wood Duck", 0.2),
	}}
	metrics := newTestMetrics()
	p := pipeline.New(ext, pipeline.NewTransformer(nil, discardLogger()), discardLogger(), metrics, 2)

	res, err := p.Run(context.Background(), []string{exportPath("L1"), exportPath("L2"), exportPath("L3")})
	require.NoError(t, err)
	assert.Empty(t, res.Failed)

	ids := make([]string, len(res.Barcharts))
	for i, bc := range res.Barcharts {
		ids[i] = bc.LocationID()
	}
	if diff := cmp.Diff([]string{"L1", "L2", "L3"}, ids); diff != "" {
		t.Fatalf("location ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "L1", res.Barcharts[0].HotspotName(), "nil namer falls back to the location id")

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FilesRead), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.IngestDuration))
}

func TestPipeline_Run_PartialFailure(t *testing.T) {
	ext := &mockExtractor{files: map[string]string{
		exportPath("L1"):              exportText("Gadwall", 0.5),
		exportPath("L2"):              "truncated",
		"/exports/not-a-barchart.txt": exportText("Gadwall", 0.5),
		exportPath("L4"):              exportText("", 0.5),
		exportPath("L5"):              exportText("Wood Duck", 0.2),
	}}
	metrics := newTestMetrics()
	p := pipeline.New(ext, pipeline.NewTransformer(nil, discardLogger()), discardLogger(), metrics, 4)

	paths := []string{
		exportPath("L1"),
		exportPath("L2"),
		"/exports/not-a-barchart.txt",
		exportPath("L4"),
		exportPath("L5"),
		exportPath("missing"),
	}
	res, err := p.Run(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, res.Barcharts, 2)
	assert.Equal(t, "L1", res.Barcharts[0].LocationID())
	assert.Equal(t, "L5", res.Barcharts[1].LocationID())

	require.Len(t, res.Failed, 4)
	assert.Equal(t, exportPath("L2"), res.Failed[0].Path)
	require.ErrorIs(t, res.Failed[0], domain.ErrMalformedBody)
	require.ErrorIs(t, res.Failed[1], domain.ErrMalformedFilename)
	require.ErrorIs(t, res.Failed[2], domain.ErrMalformedBody)
	require.ErrorIs(t, res.Failed[3], os.ErrNotExist)
	assert.Contains(t, res.Failed[3].Error(), exportPath("missing"))

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.FilesRead), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.IngestErrors.WithLabelValues(observability.ReasonBody)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestErrors.WithLabelValues(observability.ReasonFilename)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestErrors.WithLabelValues(observability.ReasonRead)), 0)
}

func TestPipeline_Run_NameLookupFailure(t *testing.T) {
	ext := &mockExtractor{files: map[string]string{
		exportPath("L1"): exportText("Gadwall", 0.5),
		exportPath("L2"): exportText("Gadwall", 0.5),
	}}
	boom := errors.New("eBird unavailable")
	namer := domain.NamerFunc(func(_ context.Context, id string) (string, error) {
		if id == "L2" {
			return "", boom
		}
		return "Prospect Park", nil
	})
	metrics := newTestMetrics()
	p := pipeline.New(ext, pipeline.NewTransformer(namer, discardLogger()), discardLogger(), metrics, 1)

	res, err := p.Run(context.Background(), []string{exportPath("L1"), exportPath("L2")})
	require.NoError(t, err)

	require.Len(t, res.Barcharts, 1)
	assert.Equal(t, "Prospect Park", res.Barcharts[0].HotspotName())
	require.Len(t, res.Failed, 1)
	require.ErrorIs(t, res.Failed[0], boom)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestErrors.WithLabelValues(observability.ReasonName)), 0)
}

func TestPipeline_Run_RespectsConcurrencyLimit(t *testing.T) {
	files := make(map[string]string)
	paths := make([]string, 0, 20)
	for i := range 20 {
		path := exportPath(fmt.Sprintf("L%d", i))
		files[path] = exportText("Gadwall", 0.5)
		paths = append(paths, path)
	}

	var inFlight, peak atomic.Int64
	namer := domain.NamerFunc(func(_ context.Context, id string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		return id, nil
	})
	p := pipeline.New(&mockExtractor{files: files}, pipeline.NewTransformer(namer, discardLogger()), discardLogger(), newTestMetrics(), 3)

	res, err := p.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Len(t, res.Barcharts, 20)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{files: map[string]string{exportPath("L1"): exportText("Gadwall", 0.5)}}
	p := pipeline.New(ext, pipeline.NewTransformer(nil, discardLogger()), discardLogger(), newTestMetrics(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []string{exportPath("L1")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ext.calls)
}

func TestPipeline_Run_Empty(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, pipeline.NewTransformer(nil, discardLogger()), discardLogger(), newTestMetrics(), 0)

	res, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Barcharts)
	assert.Empty(t, res.Failed)
}

func TestPipeline_Run_DuplicateLocationKeepsBoth(t *testing.T) {
	ext := &mockExtractor{files: map[string]string{
		"/a/ebird_L1__1900_2021_1_12_barchart.txt": exportText("Gadwall", 0.5),
		"/b/ebird_L1__2010_2021_1_12_barchart.txt": exportText("Gadwall", 0.3),
	}}
	p := pipeline.New(ext, pipeline.NewTransformer(nil, discardLogger()), discardLogger(), newTestMetrics(), 2)

	res, err := p.Run(context.Background(), []string{
		"/a/ebird_L1__1900_2021_1_12_barchart.txt",
		"/b/ebird_L1__2010_2021_1_12_barchart.txt",
	})
	require.NoError(t, err)
	require.Len(t, res.Barcharts, 2)
	assert.Equal(t, 2010, res.Barcharts[1].Info().StartYear)
}

func TestBarchartTransformer_Transform(t *testing.T) {
	namer := domain.NamerFunc(func(context.Context, string) (string, error) { return "Prospect Park", nil })
	tfm := pipeline.NewTransformer(namer, discardLogger())

	bc, err := tfm.Transform(context.Background(), domain.RawFile{
		Path: exportPath("L109516"),
		Stem: "ebird_L109516__1900_2021_1_12_barchart",
		Text: exportText("Gadwall", 0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Prospect Park", bc.HotspotName())
	assert.Equal(t, []string{"Gadwall"}, bc.Species())
	assert.Equal(t, 5, bc.Observations("Gadwall")[0])
}
