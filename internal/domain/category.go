package domain

// Category is a recognized entity type. Feed values outside this set keep their
// verbatim Type and fall back to CategoryUnknown.
type Category string

const (
	CategoryBuilding   Category = "Building"
	CategoryVehicle    Category = "Vehicle"
	CategoryGare       Category = "Gare"
	CategoryRestaurant Category = "Restaurant"
	CategoryHopital    Category = "Hopital"
	CategoryUnknown    Category = "Unknown"
)

var categoryIcons = map[Category]string{
	CategoryBuilding:   "building",
	CategoryVehicle:    "vehicle",
	CategoryGare:       "train",
	CategoryRestaurant: "restaurant",
	CategoryHopital:    "hospital",
}

// subUnitColumns binds the categories that aggregate sub-units to their list column.
var subUnitColumns = map[Category]struct {
	column string
	kind   string
}{
	CategoryVehicle:  {column: "wagonsoccupancylist", kind: "wagon"},
	CategoryBuilding: {column: "floorsoccupancylist", kind: "floor"},
}

// CategoryOf maps a feed type to its category. Matching is exact.
func CategoryOf(typ string) Category {
	c := Category(typ)
	if _, ok := categoryIcons[c]; ok {
		return c
	}
	return CategoryUnknown
}

// Icon returns the marker icon key the map uses for the category.
func (c Category) Icon() string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return "unknown"
}

// SubUnitKind returns "wagon", "floor", or "" for categories without sub-units.
func (c Category) SubUnitKind() string {
	return subUnitColumns[c].kind
}
