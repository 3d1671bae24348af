// Command feedcheck parses a sensor feed file offline and reports what the
// map service would make of it: header recognition, rejected rows and cells,
// markers that cannot be placed, occupancy outside 0-100 and sub-unit
// readings that do not line up.
//
// Usage:
//
//	go run ./cmd/feedcheck -feed data/sensors.csv
//	go run ./cmd/feedcheck -feed export.csv -decimal-comma=false
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
	"github.com/couchcryptid/sensor-map-service/internal/registry"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

// phase tracks pass/fail for a check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "data/sensors.csv", "path to the semicolon-delimited sensor feed")
	decimalComma := flag.Bool("decimal-comma", true, "numbers use a comma as decimal separator")
	flag.Parse()

	os.Exit(run(os.Stdout, *feedPath, *decimalComma))
}

func run(w io.Writer, feedPath string, decimalComma bool) int {
	data, err := os.ReadFile(feedPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: read feed: %v\n", err)
		return exitFatal
	}

	batch, err := domain.ParseFeed(string(data), domain.FeedOptions{DecimalComma: decimalComma})
	switch {
	case errors.Is(err, domain.ErrEmptyFeed), errors.Is(err, domain.ErrNoHeader):
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return exitFatal
	case err != nil:
		fmt.Fprintf(w, "FATAL: parse feed: %v\n", err)
		return exitFatal
	}

	reg := registry.New()
	reg.LoadBatch(batch.Records)
	entries := reg.Entries()

	fmt.Fprintf(w, "=== Sensor Feed Check: %s ===\n\n", feedPath)

	phases := []*phase{
		checkHeader(batch),
		checkRows(batch),
		checkPlacement(entries),
		checkOccupancy(entries),
		checkAlignment(entries),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-36s %s\n", p.name, status)
	}

	stats := reg.Stats()
	fmt.Fprintf(w, "\nMarkers: %d registered, %d unplaceable, %d rows skipped, %d blank lines\n",
		stats.Total, stats.Unplaceable, batch.SkippedRows, batch.BlankLines)
	printCategories(w, entries)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
		return exitOK
	}
	fmt.Fprintln(w, "\nFeed check FAILED.")
	return exitFailed
}

// checkHeader requires the columns a marker cannot do without.
func checkHeader(batch domain.Batch) *phase {
	p := &phase{name: "Header (required columns)"}
	present := make(map[string]bool, len(batch.Header))
	for _, h := range batch.Header {
		present[h] = true
	}
	for _, col := range []string{"name", "type", "lat", "long"} {
		if !present[col] {
			p.errorf("missing column %q", col)
		}
	}
	return p
}

func checkRows(batch domain.Batch) *phase {
	p := &phase{name: "Rows (skipped rows, bad cells)"}
	for _, is := range batch.Issues {
		if is.Column == "" {
			p.errorf("line %d: %s", is.Line, is.Reason)
			continue
		}
		p.errorf("line %d: column %s: %s %q", is.Line, is.Column, is.Reason, is.Value)
	}
	return p
}

func checkPlacement(entries []registry.MarkerEntry) *phase {
	p := &phase{name: "Placement (usable coordinates)"}
	for _, e := range entries {
		if !e.Placeable() {
			p.errorf("%q (%s) has no usable coordinates", e.Record.Name, e.Record.Type)
		}
	}
	return p
}

func checkOccupancy(entries []registry.MarkerEntry) *phase {
	p := &phase{name: "Occupancy (0-100)"}
	for _, e := range entries {
		if e.AggregateOccupancy < 0 || e.AggregateOccupancy > 100 {
			p.errorf("%q: aggregate occupancy %d out of range", e.Record.Name, e.AggregateOccupancy)
		}
		for i, v := range e.Record.OccupancySubUnits {
			if v < 0 || v > 100 {
				p.errorf("%q: %s %d occupancy %g out of range", e.Record.Name, e.Record.SubUnitKind, i+1, v)
			}
		}
	}
	return p
}

// checkAlignment flags multi-value readings that cannot be paired with sub-units.
func checkAlignment(entries []registry.MarkerEntry) *phase {
	p := &phase{name: "Alignment (readings per sub-unit)"}
	for _, e := range entries {
		rec := e.Record
		for name, readings := range map[string][]float64{"co2": rec.CO2, "temp": rec.Temperature} {
			if len(readings) <= 1 {
				continue
			}
			if len(readings) != len(rec.OccupancySubUnits) {
				p.errorf("%q: %d %s readings for %d sub-units", rec.Name, len(readings), name, len(rec.OccupancySubUnits))
			}
		}
	}
	sort.Strings(p.errors)
	return p
}

func printCategories(w io.Writer, entries []registry.MarkerEntry) {
	counts := map[domain.Category]int{}
	for _, e := range entries {
		counts[e.Record.Category()]++
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	fmt.Fprintln(w, "By category:")
	for _, c := range categories {
		fmt.Fprintf(w, "  %-12s %d\n", c, counts[domain.Category(c)])
	}
}
