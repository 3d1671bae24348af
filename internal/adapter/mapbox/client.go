package mapbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sensor-map-service/internal/domain"
	"github.com/couchcryptid/sensor-map-service/internal/observability"
	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox forward geocoding API.
type Client struct {
	http    *resty.Client
	token   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return newClient(defaultBaseURL, token, timeout, metrics, logger)
}

func newClient(baseURL, token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		token:   token,
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a sensor name (a station, a building, a restaurant)
// to coordinates. No match yields a zero result and a nil error.
func (c *Client) ForwardGeocode(ctx context.Context, name string) (domain.GeocodingResult, error) {
	var body response
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("query", name).
		SetQueryParams(map[string]string{
			"access_token": c.token,
			"limit":        "1",
			"types":        "poi,address,place,locality",
		}).
		SetResult(&body).
		Get("/{query}.json")
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %w", err)
	}
	if resp.IsError() {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode(), resp.String())
	}

	if len(body.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("mapbox returned no features", "query", name)
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()

	f := body.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
