// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/biocycling/efbcheck/utils/httputils"
)

const nominatimEndpoint = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder uses the OpenStreetMap Nominatim service. It needs no API
// key but requires an identifying User-Agent and is rate limited, so callers
// should cache results (SaveCoordinates does that for sites).
type NominatimGeocoder struct {
	endpoint   string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a Nominatim geocoder with the given User-Agent.
func NewNominatimGeocoder(userAgent string) *NominatimGeocoder {
	return &NominatimGeocoder{
		endpoint: nominatimEndpoint,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &httputils.AppendRequestHeadersRoundTripper{
				Transport: http.DefaultTransport,
				Headers:   map[string]string{"User-Agent": userAgent},
			},
		},
	}
}

// TraceHTTP dumps the geocoder's HTTP transactions to w.
func (g *NominatimGeocoder) TraceHTTP(w io.Writer) {
	g.httpClient.Transport = &httputils.LoggingRoundTripper{
		Transport: g.httpClient.Transport,
		Writer:    w,
		DumpBody:  true,
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Class       string `json:"class"`
	Type        string `json:"type"`
}

func (g *NominatimGeocoder) Geocode(address string) (*GeocodingResult, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "de")

	req, err := http.NewRequest(http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: "geocoding request failed",
			Err:     err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("no results for address: %s", address),
		}
	}

	result := results[0]

	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", result.Lat, err)
	}

	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", result.Lon, err)
	}

	// Nominatim has no location_type. A building or house hit is precise,
	// anything else resolved only the street or the town.
	confidence := "medium"

	switch result.Class {
	case "building":
		confidence = "high"
	case "place":
		confidence = "low"
	}

	if result.Type == "house" {
		confidence = "high"
	}

	return &GeocodingResult{
		Latitude:    lat,
		Longitude:   lon,
		Confidence:  confidence,
		Provider:    "nominatim",
		DisplayName: result.DisplayName,
	}, nil
}
