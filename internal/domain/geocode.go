package domain

import (
	"context"
	"log/slog"
)

// PlaceWithGeocoding gives an unplaceable record a position by forward
// geocoding its name. Placeable records, a nil geocoder, and lookup failures
// all return the record unchanged, so the map layer keeps skipping it.
func PlaceWithGeocoding(ctx context.Context, rec SensorRecord, geocoder Geocoder, logger *slog.Logger) (SensorRecord, bool) {
	if geocoder == nil || rec.Position.Placeable() || rec.Name == "" {
		return rec, false
	}

	result, err := geocoder.ForwardGeocode(ctx, rec.Name)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"name", rec.Name,
			"type", rec.Type,
			"error", err,
		)
		return rec, false
	}
	if result.Lat == 0 && result.Lon == 0 {
		logger.Debug("forward geocoding found no match", "name", rec.Name)
		return rec, false
	}

	rec.Position = Position{Lat: result.Lat, Lon: result.Lon}
	return rec, true
}
