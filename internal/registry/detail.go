package registry

import (
	"strconv"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
)

// Detail is the detail-panel payload the map renders for one marker.
type Detail struct {
	ID          *int             `json:"id,omitempty"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Category    domain.Category  `json:"category"`
	Icon        string           `json:"icon"`
	Position    *domain.Position `json:"position,omitempty"`
	CO2         any              `json:"co2,omitempty"`
	Temperature any              `json:"temperature,omitempty"`
	Occupancy   int              `json:"occupancy"`
	Color       string           `json:"color"`
	SubUnits    []SubUnit        `json:"sub_units,omitempty"`
	Visible     bool             `json:"visible"`
}

// SubUnit is one wagon or floor. Readings are set only when the record's
// reading list is aligned with its sub-units.
type SubUnit struct {
	Label       string   `json:"label"`
	Occupancy   float64  `json:"occupancy"`
	Color       string   `json:"color"`
	CO2         *float64 `json:"co2,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Detail builds the presentation payload. Unplaceable entries have no position.
func (e MarkerEntry) Detail() Detail {
	rec := e.Record
	category := rec.Category()

	d := Detail{
		ID:          rec.ID,
		Name:        rec.Name,
		Type:        rec.Type,
		Category:    category,
		Icon:        category.Icon(),
		CO2:         displayReadings(rec.CO2),
		Temperature: displayReadings(rec.Temperature),
		Occupancy:   e.AggregateOccupancy,
		Color:       e.Color.String(),
		Visible:     e.Visible,
	}
	if e.Placeable() {
		pos := rec.Position
		d.Position = &pos
	}

	for i, v := range rec.OccupancySubUnits {
		d.SubUnits = append(d.SubUnits, SubUnit{
			Label:       rec.SubUnitKind + " " + strconv.Itoa(i+1),
			Occupancy:   v,
			Color:       domain.EncodeColor(v).String(),
			CO2:         alignedReading(rec.CO2, i, len(rec.OccupancySubUnits)),
			Temperature: alignedReading(rec.Temperature, i, len(rec.OccupancySubUnits)),
		})
	}
	return d
}

// displayReadings collapses a single reading to a scalar.
func displayReadings(values []float64) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}

func alignedReading(values []float64, i, units int) *float64 {
	if len(values) != units || units < 2 {
		return nil
	}
	v := values[i]
	return &v
}

// Details converts entries to payloads, preserving order.
func Details(entries []MarkerEntry) []Detail {
	out := make([]Detail, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Detail())
	}
	return out
}
