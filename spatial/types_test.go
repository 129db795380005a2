// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"
)

func TestPointString(t *testing.T) {
	p := Point{Lat: 52.5200, Lng: 13.4050}

	if got := p.String(); got != "POINT(13.405000 52.520000)" {
		t.Errorf("String() = %q", got)
	}
}

func TestPointScanWKT(t *testing.T) {
	var p Point
	if err := p.Scan([]byte("POINT (13.405 52.52)")); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if p.Lng != 13.405 || p.Lat != 52.52 {
		t.Errorf("Scan() = %+v, want lng 13.405 lat 52.52", p)
	}
}

func TestPointScanStruct(t *testing.T) {
	var p Point

	err := p.Scan(map[string]interface{}{"x": 13.405, "y": 52.52})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if p.Lng != 13.405 || p.Lat != 52.52 {
		t.Errorf("Scan() = %+v, want lng 13.405 lat 52.52", p)
	}
}

func TestPointScanNil(t *testing.T) {
	p := Point{Lat: 1, Lng: 2}
	if err := p.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}

	if p.Lat != 0 || p.Lng != 0 {
		t.Errorf("Scan(nil) = %+v, want zero point", p)
	}
}

func TestPointScanUnsupported(t *testing.T) {
	var p Point
	if err := p.Scan(42); err == nil {
		t.Error("Scan(int) did not fail")
	}

	if err := p.Scan(map[string]interface{}{"x": "not a float"}); err == nil {
		t.Error("Scan() accepted a malformed point struct")
	}
}

func TestHaversineDistance(t *testing.T) {
	berlin := &Point{Lat: 52.5200, Lng: 13.4050}
	munich := &Point{Lat: 48.1372, Lng: 11.5755}

	got := berlin.HaversineDistance(munich)

	// Berlin to Munich is roughly 504 km
	if math.Abs(got-504_000) > 5_000 {
		t.Errorf("HaversineDistance() = %.0f m, want about 504 km", got)
	}

	if d := berlin.HaversineDistance(berlin); d != 0 {
		t.Errorf("HaversineDistance(self) = %f, want 0", d)
	}
}
