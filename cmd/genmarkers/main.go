// Command genmarkers renders a sensor feed into the marker detail payloads the
// API serves, for use as front-end and test fixtures. Timestamps are frozen so
// regenerated fixtures diff cleanly.
//
// Usage:
//
//	go run ./cmd/genmarkers -feed data/sensors.csv -out data/mock/markers.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
	"github.com/jonboulle/clockwork"
)

// fixture is the file layout written by genmarkers.
type fixture struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Source      string            `json:"source"`
	Stats       registry.Stats    `json:"stats"`
	Issues      []domain.Issue    `json:"issues,omitempty"`
	Markers     []registry.Detail `json:"markers"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedPath := flag.String("feed", "data/sensors.csv", "path to the sensor feed")
	out := flag.String("out", "", "output path for the markers JSON fixture")
	decimalComma := flag.Bool("decimal-comma", true, "numbers use a comma as decimal separator")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	f, err := build(*feedPath, *decimalComma)
	if err != nil {
		return err
	}
	if err := writeJSON(*out, f); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}

	log.Printf("wrote %d markers (%d unplaceable, %d issues) to %s",
		f.Stats.Total, f.Stats.Unplaceable, len(f.Issues), *out)
	return nil
}

func build(feedPath string, decimalComma bool) (fixture, error) {
	data, err := os.ReadFile(feedPath)
	if err != nil {
		return fixture{}, fmt.Errorf("read feed: %w", err)
	}
	batch, err := domain.ParseFeed(string(data), domain.FeedOptions{DecimalComma: decimalComma})
	if err != nil {
		return fixture{}, fmt.Errorf("parse feed: %w", err)
	}

	reg := registry.New()
	reg.LoadBatch(batch.Records)

	return fixture{
		GeneratedAt: batch.ParsedAt,
		Source:      filepath.Base(feedPath),
		Stats:       reg.Stats(),
		Issues:      batch.Issues,
		Markers:     registry.Details(reg.Entries()),
	}, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
