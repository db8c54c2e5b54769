package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultOverpassURL = "https://overpass-api.de/api/interpreter"

// POIFilters are the Overpass tag filters unioned in every search.
var POIFilters = []string{`nwr["tourism"="attraction"]`, `nwr["leisure"="park"]`, `nwr["historic"]`}

// OverpassElement is one node, way or relation. Ways and relations carry Center instead of Lat/Lon.
type OverpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *OverpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type OverpassCenter struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// OverpassClient queries the Overpass API interpreter.
type OverpassClient struct {
	transport
}

func NewOverpassClient(opts Options) *OverpassClient {
	return &OverpassClient{transport: newTransport("overpass", defaultOverpassURL, opts)}
}

// BuildQuery renders the Overpass QL for a radius search around lat/lon. Each filter is
// scoped to the same radius.
func BuildQuery(lat, lon float64, radius int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radius,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, f := range POIFilters {
		b.WriteString("  ")
		b.WriteString(f)
		b.WriteString(around)
		b.WriteString(";\n")
	}
	b.WriteString(");\nout center;")
	return b.String()
}

// Query runs the radius search and returns its elements in provider order.
// A missing elements array yields no elements; elements that fail to decode are skipped.
func (c *OverpassClient) Query(ctx context.Context, lat, lon float64, radius int) ([]OverpassElement, error) {
	form := url.Values{}
	form.Set("data", BuildQuery(lat, lon, radius))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("overpass: %w: %v", ErrUnexpectedShape, err)
	}
	elements := make([]OverpassElement, 0, len(payload.Elements))
	for _, raw := range payload.Elements {
		var el OverpassElement
		if err := json.Unmarshal(raw, &el); err != nil {
			continue
		}
		elements = append(elements, el)
	}
	return elements, nil
}
