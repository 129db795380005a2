// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testNominatim(ts *httptest.Server) *NominatimGeocoder {
	g := NewNominatimGeocoder("efbcheck/test")
	g.endpoint = ts.URL
	g.httpClient.Timeout = 5 * time.Second

	return g
}

func TestNominatimGeocode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "efbcheck/test" {
			t.Errorf("User-Agent = %q, want efbcheck/test", got)
		}

		if got := r.URL.Query().Get("countrycodes"); got != "de" {
			t.Errorf("countrycodes = %q, want de", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"lat": "52.5170365",
			"lon": "13.3888599",
			"display_name": "Musterstr. 1, 12345 Musterstadt, Deutschland",
			"class": "building",
			"type": "yes"
		}]`))
	}))
	defer ts.Close()

	result, err := testNominatim(ts).Geocode("Musterstr. 1, 12345 Musterstadt, Deutschland")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}

	if result.Latitude != 52.5170365 || result.Longitude != 13.3888599 {
		t.Errorf("coordinates = %f,%f", result.Latitude, result.Longitude)
	}

	if result.Provider != "nominatim" {
		t.Errorf("Provider = %s, want nominatim", result.Provider)
	}

	if result.Confidence != "high" {
		t.Errorf("Confidence = %s, want high for a building hit", result.Confidence)
	}
}

func TestNominatimGeocodeNoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	_, err := testNominatim(ts).Geocode("Nirgendwo 99")
	if err == nil {
		t.Fatal("Geocode() = nil error, want not-found")
	}

	if !IsAddressNotFound(err) {
		t.Errorf("IsAddressNotFound(%v) = false, want true", err)
	}
}

func TestNominatimGeocodeRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := testNominatim(ts).Geocode("Musterstr. 1")
	if err == nil {
		t.Fatal("Geocode() = nil error, want rate-limit")
	}

	if !IsRateLimitError(err) {
		t.Errorf("IsRateLimitError(%v) = false, want true", err)
	}
}
