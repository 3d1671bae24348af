package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // provider confidence score, 0 to 1
}

// Geocoder resolves entity names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name to coordinates. A zero result with a
	// nil error means the provider found nothing.
	ForwardGeocode(ctx context.Context, name string) (GeocodingResult, error)
}
