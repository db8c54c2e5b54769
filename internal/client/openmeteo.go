package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// ForecastResponse holds the three Open-Meteo sections as raw fields so a single bad
// value degrades only the field it belongs to. A section that is absent or not an object is nil.
type ForecastResponse struct {
	Current map[string]json.RawMessage
	Hourly  map[string]json.RawMessage
	Daily   map[string]json.RawMessage
}

// OpenMeteoClient queries the Open-Meteo forecast API.
type OpenMeteoClient struct {
	transport
}

func NewOpenMeteoClient(opts Options) *OpenMeteoClient {
	return &OpenMeteoClient{transport: newTransport("open_meteo", defaultOpenMeteoURL, opts)}
}

// Forecast requests current conditions, hourly precipitation probability and a 7-day daily
// forecast for the coordinate, with timestamps in timezone.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64, timezone string) (ForecastResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ForecastResponse{}, fmt.Errorf("invalid open-meteo URL: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("hourly", "precipitation_probability")
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weathercode")
	params.Set("forecast_days", "7")
	params.Set("timezone", timezone)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ForecastResponse{}, fmt.Errorf("create request: %w", err)
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return ForecastResponse{}, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return ForecastResponse{}, fmt.Errorf("open_meteo: %w: %v", ErrUnexpectedShape, err)
	}
	return ForecastResponse{
		Current: rawObject(top["current_weather"]),
		Hourly:  rawObject(top["hourly"]),
		Daily:   rawObject(top["daily"]),
	}, nil
}

func rawObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}
