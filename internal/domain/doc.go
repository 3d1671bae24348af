// Package domain models the sensor feed that drives the occupancy map.
//
// # Data Source
//
// The feed is a single semicolon-delimited text document. The first non-blank
// line names the columns; every following non-blank line describes one
// sensor-equipped entity (a building, a vehicle, a station, ...). The feed is
// maintained by hand in a spreadsheet and exported with a French locale, which
// shapes most of the conventions below.
//
// # Feed Conventions
//
// Headers:
//
//	Matched case-insensitively after trimming: "Lat", " LAT " and "lat" are the
//	same column. Recognized names are id, name, type, lat, long, co2, temp,
//	occupancyrate, wagonsoccupancylist and floorsoccupancylist. Anything else is
//	carried verbatim in [SensorRecord.Extra].
//
// Numbers:
//
//	Decimal comma: "21,8" = 21.8. Only the first comma is rewritten, so
//	"1,234,5" is not a number. Empty cells are absent; non-empty cells that do
//	not parse are NaN for floats and absent for integers.
//
// Lists:
//
//	Per-wagon and per-floor readings are written either as a JSON-ish literal,
//	"[20, 47,38,79]", or loosely as "20,47,38,79". The bracketed form is decoded
//	strictly; anything else is scanned for numeric tokens. See [DecodeList].
//
// Readings:
//
//	co2 and temp hold either one value ("21,8") or one value per sub-unit
//	("[21.5,22,23.1]"). A cell that reads as one locale number is taken as such
//	before list decoding, because "21,8" is a temperature and not two wagons.
//
// Sub-units:
//
//	wagonsoccupancylist applies to Vehicle rows, floorsoccupancylist to
//	Building rows. Other categories have no sub-units.
//
// # Occupancy and Color
//
// The aggregate occupancy of an entity is the rounded mean of its sub-unit
// readings, or its scalar occupancyrate, or 0. It is not clamped: a feed that
// reports 130% is shown as 130%. The marker color clamps to [0,100] and
// interpolates hue linearly from green (0%) to red (100%). See
// [AggregateOccupancy] and [EncodeColor].
//
// # Failure Policy
//
// A malformed cell affects only its own field and a malformed row only itself.
// Only a feed with no discoverable header row fails the whole batch
// ([ErrEmptyFeed], [ErrNoHeader]).
package domain
