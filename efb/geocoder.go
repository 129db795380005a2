// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

// GeocodingResult represents a geocoding result from any provider.
type GeocodingResult struct {
	Latitude    float64
	Longitude   float64
	Confidence  string // high, medium, low
	Provider    string
	DisplayName string
}

// Geocoder resolves a postal address to coordinates. Implementations are
// external collaborators; a failure here never affects the AVV check path.
type Geocoder interface {
	Geocode(address string) (*GeocodingResult, error)
}
