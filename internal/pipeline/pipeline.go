// Package pipeline turns a sensor feed into registered map markers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// FeedSource returns the raw text of the sensor feed.
type FeedSource interface {
	Fetch(ctx context.Context) (string, error)
}

// Publisher forwards the markers of a completed ingestion downstream.
type Publisher interface {
	Publish(ctx context.Context, entries []registry.MarkerEntry) error
}

// Options configures an Ingester. Zero values are usable: no refresh, no
// geocoding, no publication, real clock.
type Options struct {
	DecimalComma    bool
	RefreshInterval time.Duration
	Geocoder        domain.Geocoder
	Publisher       Publisher
	Clock           clockwork.Clock
}

// Report summarizes one successful ingestion.
type Report struct {
	Rows           int            `json:"rows"`
	SkippedRows    int            `json:"skipped_rows"`
	BlankLines     int            `json:"blank_lines"`
	MalformedCells int            `json:"malformed_cells"`
	Unplaceable    int            `json:"unplaceable"`
	Geocoded       int            `json:"geocoded"`
	Issues         []domain.Issue `json:"issues,omitempty"`
	ParsedAt       time.Time      `json:"parsed_at"`
}

// Ingester runs fetch, parse, place, register and publish for the feed.
type Ingester struct {
	source   FeedSource
	registry *registry.Registry
	opts     Options
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex // serializes ingestion runs
	ready atomic.Bool
	last  atomic.Pointer[Report]
}

// New creates an Ingester writing into reg. Registry gauges are kept in sync
// with every registry change from here on.
func New(source FeedSource, reg *registry.Registry, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	// Gauges read the registry itself rather than the change payload, so a
	// listener that runs late never overwrites newer counts with older ones.
	reg.OnChange(func(registry.Change) {
		s := reg.Stats()
		metrics.Markers.Set(float64(s.Total))
		metrics.VisibleMarkers.Set(float64(s.Visible))
		metrics.UnplaceableMarkers.Set(float64(s.Unplaceable))
	})

	return &Ingester{
		source:   source,
		registry: reg,
		opts:     opts,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once one ingestion has succeeded.
func (in *Ingester) CheckReadiness(_ context.Context) error {
	if !in.ready.Load() {
		return errors.New("no feed has been ingested yet")
	}
	return nil
}

// LastReport returns the report of the most recent successful ingestion.
func (in *Ingester) LastReport() (Report, bool) {
	r := in.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}

// Ingest fetches and parses the feed and replaces the registry content with
// its records. A fetch or header failure is returned as-is and leaves the
// registry untouched. Concurrent calls run one after another.
func (in *Ingester) Ingest(ctx context.Context) (Report, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	start := in.clock.Now()

	text, err := in.source.Fetch(ctx)
	if err != nil {
		in.metrics.IngestRuns.WithLabelValues("fetch_error").Inc()
		return Report{}, fmt.Errorf("fetch feed: %w", err)
	}

	batch, err := domain.ParseFeed(text, domain.FeedOptions{DecimalComma: in.opts.DecimalComma})
	if err != nil {
		in.metrics.IngestRuns.WithLabelValues("parse_error").Inc()
		return Report{}, fmt.Errorf("parse feed: %w", err)
	}

	for _, is := range batch.Issues {
		in.logger.Debug("feed issue", "line", is.Line, "column", is.Column, "value", is.Value, "reason", is.Reason)
	}

	geocoded := in.place(ctx, batch.Records)

	in.registry.LoadBatch(batch.Records)

	report := Report{
		Rows:           len(batch.Records),
		SkippedRows:    batch.SkippedRows,
		BlankLines:     batch.BlankLines,
		MalformedCells: batch.MalformedCells(),
		Unplaceable:    batch.Unplaceable(),
		Geocoded:       geocoded,
		Issues:         batch.Issues,
		ParsedAt:       batch.ParsedAt,
	}

	in.metrics.RowsIngested.Add(float64(report.Rows))
	in.metrics.RowsSkipped.Add(float64(report.SkippedRows))
	in.metrics.MalformedCells.Add(float64(report.MalformedCells))

	in.publish(ctx)

	in.metrics.IngestRuns.WithLabelValues("success").Inc()
	in.metrics.IngestDuration.Observe(in.clock.Since(start).Seconds())
	in.last.Store(&report)
	in.ready.Store(true)

	in.logger.Info("feed ingested",
		"rows", report.Rows,
		"skipped_rows", report.SkippedRows,
		"malformed_cells", report.MalformedCells,
		"unplaceable", report.Unplaceable,
		"geocoded", report.Geocoded,
	)
	return report, nil
}

// Run ingests once, then again every RefreshInterval until ctx is cancelled.
// Failed runs are retried with exponential backoff. With no refresh interval
// Run returns after the first successful ingestion.
func (in *Ingester) Run(ctx context.Context) error {
	in.logger.Info("ingester started", "refresh_interval", in.opts.RefreshInterval)

	backoff := initialBackoff
	for {
		if _, err := in.Ingest(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			in.logger.Error("ingestion failed", "error", err, "retry_in", backoff)
			if !in.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		if in.opts.RefreshInterval <= 0 {
			return nil
		}
		if !in.sleep(ctx, in.opts.RefreshInterval) {
			in.logger.Info("ingester stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// place geocodes unplaceable records in-place and returns how many moved.
func (in *Ingester) place(ctx context.Context, records []domain.SensorRecord) int {
	if in.opts.Geocoder == nil {
		return 0
	}
	placed := 0
	for i, rec := range records {
		if updated, ok := domain.PlaceWithGeocoding(ctx, rec, in.opts.Geocoder, in.logger); ok {
			records[i] = updated
			placed++
		}
	}
	return placed
}

// publish sends the loaded entries downstream. Failures are counted and
// logged; they do not fail the ingestion.
func (in *Ingester) publish(ctx context.Context) {
	if in.opts.Publisher == nil {
		return
	}
	entries := in.registry.Entries()
	if err := in.opts.Publisher.Publish(ctx, entries); err != nil {
		in.metrics.PublishErrors.Inc()
		in.logger.Warn("publish markers failed", "error", err, "markers", len(entries))
	}
}

func (in *Ingester) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := in.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
