// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// validateCoordinates checks that coordinates are plausible for a German site.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", lat)
	}

	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", lon)
	}

	// Germany spans roughly 47°N..55°N, 5°E..15°E. One degree of margin
	// absorbs geocoder imprecision near the borders.
	const (
		germanyMinLat = 46.0
		germanyMaxLat = 56.0
		germanyMinLon = 4.0
		germanyMaxLon = 16.0
	)

	if lat < germanyMinLat || lat > germanyMaxLat {
		return fmt.Errorf("latitude outside Germany bounds (%f to %f): %f", germanyMinLat, germanyMaxLat, lat)
	}

	if lon < germanyMinLon || lon > germanyMaxLon {
		return fmt.Errorf("longitude outside Germany bounds (%f to %f): %f", germanyMinLon, germanyMaxLon, lon)
	}

	return nil
}

// validateSite checks that a certificate annex produced a usable site record.
func validateSite(s *Site) error {
	if s == nil {
		return errors.New("site can't be nil")
	}

	if s.Annex <= 0 {
		return fmt.Errorf("annex number must be positive (got %d)", s.Annex)
	}

	if strings.TrimSpace(s.Ort) == "" {
		return errors.New("ort can't be empty")
	}

	if s.PLZ != "" {
		if n := len(s.PLZ); n < 4 || n > 5 {
			return fmt.Errorf("plz must have 4 or 5 digits: %q", s.PLZ)
		}

		for _, r := range s.PLZ {
			if r < '0' || r > '9' {
				return fmt.Errorf("plz must be numeric: %q", s.PLZ)
			}
		}
	}

	if len(s.Taetigkeit) > 4000 {
		return errors.New("taetigkeit too long (4000 characters max)")
	}

	if s.Point != nil {
		if err := validateCoordinates(s.Point.Lat, s.Point.Lng); err != nil {
			return fmt.Errorf("invalid coordinates: %w", err)
		}
	}

	return nil
}

// sanitizeField trims a free-text certificate field and caps its length. The
// cap is in bytes but never splits a rune, so umlauts at the boundary stay
// valid UTF-8.
func sanitizeField(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}

		s = s[:cut]
	}

	return s
}
