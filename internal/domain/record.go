package domain

import (
	"math"
	"time"
)

// Position is a WGS-84 latitude/longitude pair. Missing or unparseable
// coordinates are NaN.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Placeable reports whether both coordinates are real numbers.
func (p Position) Placeable() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lon, 0)
}

// SensorRecord is one normalized feed row. It is never mutated after it has
// been registered.
type SensorRecord struct {
	ID       *int     `json:"id,omitempty"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Position Position `json:"position"`

	// CO2 and Temperature hold one value, or one value per sub-unit aligned by index.
	CO2         []float64 `json:"co2,omitempty"`
	Temperature []float64 `json:"temperature,omitempty"`

	OccupancySubUnits []float64 `json:"occupancy_sub_units,omitempty"`
	SubUnitKind       string    `json:"sub_unit_kind,omitempty"` // "wagon" or "floor"
	OccupancyScalar   *float64  `json:"occupancy_scalar,omitempty"`

	// Extra holds unrecognized columns verbatim, keyed by normalized header name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Category returns the record's known category, or CategoryUnknown.
func (r SensorRecord) Category() Category {
	return CategoryOf(r.Type)
}

// HasSubUnits reports whether the record carries a non-empty sub-unit list.
func (r SensorRecord) HasSubUnits() bool {
	return len(r.OccupancySubUnits) > 0
}

// Row is the outcome of normalizing one feed line.
type Row struct {
	Line   int
	Record SensorRecord
	Issues []Issue
}

// Issue describes a cell or row that was absorbed instead of ingested as-is.
type Issue struct {
	Line   int    `json:"line"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Batch is the result of parsing one feed.
type Batch struct {
	Header      []string
	Records     []SensorRecord
	Issues      []Issue
	BlankLines  int
	SkippedRows int
	ParsedAt    time.Time
}

// Unplaceable counts records the map cannot position.
func (b Batch) Unplaceable() int {
	n := 0
	for _, rec := range b.Records {
		if !rec.Position.Placeable() {
			n++
		}
	}
	return n
}

// MalformedCells counts cell-level issues.
func (b Batch) MalformedCells() int {
	n := 0
	for _, is := range b.Issues {
		if is.Column != "" {
			n++
		}
	}
	return n
}
