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

	"github.com/couchcryptid/sensor-map-service/internal/domain"
	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/couchcryptid/sensor-map-service/internal/pipeline"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = "Id;Name;Type;Lat;Long;CO2;Temp;OccupancyRate;WagonsOccupancyList;FloorsOccupancyList\n" +
	"1;TGV 6201;Vehicle;48,8443;2,3744;[400,420,410,430];21;;[20,47,38,79];\n" +
	"2;Tour Montparnasse;Building;48,8421;2,3219;650;21,8;;;[10,20,30]\n" +
	"3;Central Café;Restaurant;;;500;20;55;;\n" +
	"4;;Gare;48,1;2,1;;;;;\n"

// --- mocks ---

type mockSource struct {
	mu      sync.Mutex
	results []sourceResult
	calls   atomic.Int64
}

type sourceResult struct {
	text string
	err  error
}

// Fetch replays results in order and repeats the last one.
func (m *mockSource) Fetch(_ context.Context) (string, error) {
	i := int(m.calls.Add(1) - 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	return m.results[i].text, m.results[i].err
}

func staticSource(text string) *mockSource {
	return &mockSource{results: []sourceResult{{text: text}}}
}

type mockPublisher struct {
	mu        sync.Mutex
	published [][]registry.MarkerEntry
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, entries []registry.MarkerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, entries)
	return m.err
}

type mockGeocoder struct {
	results map[string]domain.GeocodingResult
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, name string) (domain.GeocodingResult, error) {
	return m.results[name], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newIngester(src pipeline.FeedSource, opts pipeline.Options) (*pipeline.Ingester, *registry.Registry, *observability.Metrics) {
	reg := registry.New()
	metrics := observability.NewMetricsForTesting()
	opts.DecimalComma = true
	return pipeline.New(src, reg, opts, discardLogger(), metrics), reg, metrics
}

// --- Ingest ---

func TestIngester_Ingest_HappyPath(t *testing.T) {
	in, reg, metrics := newIngester(staticSource(testFeed), pipeline.Options{})

	report, err := in.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.SkippedRows)
	assert.Equal(t, 1, report.Unplaceable)
	assert.Zero(t, report.Geocoded)
	require.Equal(t, 3, reg.Len())

	entries := reg.Entries()
	assert.Equal(t, "TGV 6201", entries[0].Record.Name)
	assert.Equal(t, 46, entries[0].AggregateOccupancy)
	assert.Equal(t, 20, entries[1].AggregateOccupancy)
	assert.Equal(t, 55, entries[2].AggregateOccupancy)

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RowsIngested), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RowsSkipped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues("success")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.Markers), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.VisibleMarkers), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UnplaceableMarkers), 0)

	require.NoError(t, in.CheckReadiness(context.Background()))
	last, ok := in.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.Rows, last.Rows)
}

func TestIngester_MarkerGaugesFollowFilters(t *testing.T) {
	in, reg, metrics := newIngester(staticSource(testFeed), pipeline.Options{})
	_, err := in.Ingest(context.Background())
	require.NoError(t, err)

	reg.FilterByType("Building")
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.Markers), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.VisibleMarkers), 0)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				reg.FilterByType("Vehicle")
			} else {
				reg.ShowAll()
			}
		}()
	}
	wg.Wait()

	reg.ShowAll()
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.VisibleMarkers), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UnplaceableMarkers), 0)
}

func TestIngester_Ingest_ReplacesPreviousContent(t *testing.T) {
	second := "Name;Type;Lat;Long\nGare de Lyon;Gare;48,84;2,37\n"
	src := &mockSource{results: []sourceResult{{text: testFeed}, {text: second}}}
	in, reg, _ := newIngester(src, pipeline.Options{})

	_, err := in.Ingest(context.Background())
	require.NoError(t, err)
	reg.FilterByType("Vehicle")

	_, err = in.Ingest(context.Background())
	require.NoError(t, err)

	entries := reg.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Gare de Lyon", entries[0].Record.Name)
	assert.True(t, entries[0].Visible)
}

func TestIngester_Ingest_FetchErrorLeavesRegistryUntouched(t *testing.T) {
	fetchErr := errors.New("connection refused")
	src := &mockSource{results: []sourceResult{{text: testFeed}, {err: fetchErr}}}
	in, reg, metrics := newIngester(src, pipeline.Options{})

	_, err := in.Ingest(context.Background())
	require.NoError(t, err)

	_, err = in.Ingest(context.Background())
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 3, reg.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues("fetch_error")), 0)
}

func TestIngester_Ingest_FatalFeedErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty feed", "", domain.ErrEmptyFeed},
		{"blank lines only", "\n \n", domain.ErrEmptyFeed},
		{"no recognized column", "foo;bar\n1;2\n", domain.ErrNoHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, reg, metrics := newIngester(staticSource(tt.text), pipeline.Options{})

			_, err := in.Ingest(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, reg.Len())
			assert.Error(t, in.CheckReadiness(context.Background()))
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.IngestRuns.WithLabelValues("parse_error")), 0)
		})
	}
}

func TestIngester_Ingest_GeocodesUnplaceableRecords(t *testing.T) {
	geo := &mockGeocoder{results: map[string]domain.GeocodingResult{
		"Central Café": {Lat: 48.85, Lon: 2.35},
	}}
	in, reg, metrics := newIngester(staticSource(testFeed), pipeline.Options{Geocoder: geo})

	report, err := in.Ingest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Geocoded)
	entry, ok := reg.Search("central cafe")
	require.True(t, ok)
	assert.True(t, entry.Placeable())
	assert.InDelta(t, 48.85, entry.Record.Position.Lat, 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.UnplaceableMarkers), 0)
}

func TestIngester_Ingest_Publishes(t *testing.T) {
	pub := &mockPublisher{}
	in, _, _ := newIngester(staticSource(testFeed), pipeline.Options{Publisher: pub})

	_, err := in.Ingest(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Len(t, pub.published[0], 3)
}

func TestIngester_Ingest_PublishErrorIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	in, reg, metrics := newIngester(staticSource(testFeed), pipeline.Options{Publisher: pub})

	_, err := in.Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestIngester_Ingest_Serialized(t *testing.T) {
	in, reg, _ := newIngester(staticSource(testFeed), pipeline.Options{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = in.Ingest(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, reg.Len())
}

// --- Run ---

func TestIngester_Run_OnceWithoutRefresh(t *testing.T) {
	src := staticSource(testFeed)
	in, reg, _ := newIngester(src, pipeline.Options{})

	require.NoError(t, in.Run(context.Background()))
	assert.Equal(t, int64(1), src.calls.Load())
	assert.Equal(t, 3, reg.Len())
}

func TestIngester_Run_RefreshesOnInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := staticSource(testFeed)
	in, _, _ := newIngester(src, pipeline.Options{RefreshInterval: time.Minute, Clock: fc})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Equal(t, int64(1), src.calls.Load())

	fc.Advance(time.Minute)
	assert.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestIngester_Run_BacksOffAfterFailure(t *testing.T) {
	fc := clockwork.NewFakeClock()
	src := &mockSource{results: []sourceResult{{err: errors.New("timeout")}, {text: testFeed}}}
	in, reg, _ := newIngester(src, pipeline.Options{Clock: fc})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	assert.Error(t, in.CheckReadiness(ctx))

	fc.Advance(200 * time.Millisecond)
	require.NoError(t, <-done)

	assert.Equal(t, int64(2), src.calls.Load())
	assert.Equal(t, 3, reg.Len())
	assert.NoError(t, in.CheckReadiness(ctx))
}

func TestIngester_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{results: []sourceResult{{err: errors.New("unreachable")}}}
	in, _, _ := newIngester(src, pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, in.Run(ctx))
}
