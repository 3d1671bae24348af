package domain

import (
	"math"
	"strings"
)

// ColumnKind tags how a column's cells are parsed.
type ColumnKind int

const (
	KindRawString ColumnKind = iota
	KindLocaleFloat
	KindNullableInt
	KindStructuredList
)

func (k ColumnKind) String() string {
	switch k {
	case KindLocaleFloat:
		return "scalar-float-locale"
	case KindNullableInt:
		return "scalar-int-nullable"
	case KindStructuredList:
		return "structured-list"
	default:
		return "raw-string"
	}
}

// cell is a parsed value; which field is meaningful depends on the column kind.
type cell struct {
	float   float64
	integer *int
	list    []float64
	text    string
}

type column struct {
	kind ColumnKind
	// scalarFirst takes an unbracketed cell that reads as one locale number as a
	// single value before list decoding.
	scalarFirst bool
	assign      func(rec *SensorRecord, c cell)
}

// columns is the dispatch table from normalized header name to parser.
// Headers absent from the table are KindRawString and land in Extra.
var columns = map[string]column{
	"id": {kind: KindNullableInt, assign: func(rec *SensorRecord, c cell) {
		rec.ID = c.integer
	}},
	"name": {kind: KindRawString, assign: func(rec *SensorRecord, c cell) {
		rec.Name = c.text
	}},
	"type": {kind: KindRawString, assign: func(rec *SensorRecord, c cell) {
		rec.Type = c.text
	}},
	"lat": {kind: KindLocaleFloat, assign: func(rec *SensorRecord, c cell) {
		rec.Position.Lat = c.float
	}},
	"long": {kind: KindLocaleFloat, assign: func(rec *SensorRecord, c cell) {
		rec.Position.Lon = c.float
	}},
	"co2": {kind: KindStructuredList, scalarFirst: true, assign: func(rec *SensorRecord, c cell) {
		rec.CO2 = c.list
	}},
	"temp": {kind: KindStructuredList, scalarFirst: true, assign: func(rec *SensorRecord, c cell) {
		rec.Temperature = c.list
	}},
	"occupancyrate": {kind: KindNullableInt, assign: func(rec *SensorRecord, c cell) {
		if c.integer == nil {
			rec.OccupancyScalar = nil
			return
		}
		v := float64(*c.integer)
		rec.OccupancyScalar = &v
	}},
	// Sub-unit lists are bound to the record once its type is known; see bindSubUnits.
	"wagonsoccupancylist": {kind: KindStructuredList},
	"floorsoccupancylist": {kind: KindStructuredList},
}

// KindOf returns the parser kind used for a header name.
func KindOf(name string) ColumnKind {
	return columns[normalizeHeaderName(name)].kind
}

// Header is the normalized column list of a feed.
type Header struct {
	names        []string
	decimalComma bool
}

// NewHeader normalizes header cells (trimmed, lower-cased). It returns
// ErrNoHeader when no cell names a recognized column.
func NewHeader(fields []string, decimalComma bool) (Header, error) {
	names := make([]string, len(fields))
	recognized := false
	for i, f := range fields {
		names[i] = normalizeHeaderName(f)
		if _, ok := columns[names[i]]; ok {
			recognized = true
		}
	}
	if !recognized {
		return Header{}, ErrNoHeader
	}
	return Header{names: names, decimalComma: decimalComma}, nil
}

// Names returns the normalized header names in column order.
func (h Header) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Normalize converts one split line into a record. ok is false when every cell
// is blank. Short rows are padded with empty cells; cells beyond the header are
// ignored.
func (h Header) Normalize(line int, fields []string) (row Row, ok bool) {
	if isBlank(fields) {
		return Row{}, false
	}

	rec := SensorRecord{Position: Position{Lat: math.NaN(), Lon: math.NaN()}}
	lists := make(map[string][]float64, 2)

	for i, name := range h.names {
		raw := ""
		if i < len(fields) {
			raw = fields[i]
		}

		col, known := columns[name]
		c, malformed := h.parse(col.kind, col.scalarFirst, raw)
		if malformed {
			row.Issues = append(row.Issues, Issue{
				Line:   line,
				Column: name,
				Value:  strings.TrimSpace(raw),
				Reason: "unparseable " + col.kind.String(),
			})
		}

		switch {
		case !known:
			if name == "" {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = c.text
		case col.assign == nil:
			lists[name] = c.list
		default:
			col.assign(&rec, c)
		}
	}

	bindSubUnits(&rec, lists)

	row.Line = line
	row.Record = rec
	return row, true
}

// parse applies one parser kind to a raw cell. malformed is true when a
// non-empty cell yielded no usable value.
func (h Header) parse(kind ColumnKind, scalarFirst bool, raw string) (c cell, malformed bool) {
	trimmed := strings.TrimSpace(raw)

	switch kind {
	case KindLocaleFloat:
		v, ok := ParseLocaleFloat(raw, h.decimalComma)
		if !ok {
			c.float = math.NaN()
			return c, false
		}
		c.float = v
		return c, math.IsNaN(v)
	case KindNullableInt:
		c.integer = ParseNullableInt(raw, h.decimalComma)
		return c, c.integer == nil && trimmed != ""
	case KindStructuredList:
		if scalarFirst && !isBracketed(trimmed) {
			if v, ok := ParseLocaleFloat(raw, h.decimalComma); ok && !math.IsNaN(v) {
				c.list = []float64{v}
				return c, false
			}
		}
		c.list = DecodeList(raw)
		return c, c.list == nil && trimmed != "" && trimmed != "[]"
	default:
		c.text = trimmed
		return c, false
	}
}

// bindSubUnits keeps the sub-unit list matching the record's category.
func bindSubUnits(rec *SensorRecord, lists map[string][]float64) {
	binding, ok := subUnitColumns[rec.Category()]
	if !ok {
		return
	}
	if units := lists[binding.column]; len(units) > 0 {
		rec.OccupancySubUnits = units
		rec.SubUnitKind = binding.kind
	}
}

func normalizeHeaderName(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
