package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// GeocodeHit is one raw search result. Lat and Lon are kept raw because the provider may
// send them as numbers or numeric strings.
type GeocodeHit struct {
	DisplayName string          `json:"display_name"`
	Lat         json.RawMessage `json:"lat"`
	Lon         json.RawMessage `json:"lon"`
}

// NominatimClient queries the OpenStreetMap Nominatim search API.
type NominatimClient struct {
	transport
}

func NewNominatimClient(opts Options) *NominatimClient {
	return &NominatimClient{transport: newTransport("nominatim", defaultNominatimURL, opts)}
}

// Search returns up to limit raw matches for query in provider relevance order.
// A body that is not a JSON array yields ErrUnexpectedShape; malformed items are skipped.
func (c *NominatimClient) Search(ctx context.Context, query string, limit int) ([]GeocodeHit, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid nominatim URL: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "0")
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("nominatim: %w: %v", ErrUnexpectedShape, err)
	}
	hits := make([]GeocodeHit, 0, len(items))
	for _, item := range items {
		var hit GeocodeHit
		if err := json.Unmarshal(item, &hit); err != nil {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// ParseCoordinate decodes a JSON number or numeric string into a float.
func ParseCoordinate(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
