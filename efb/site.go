// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"fmt"
	"strings"

	"github.com/biocycling/efbcheck/spatial"
	"github.com/uber/h3-go/v4"
)

// Site is one certified Standort: an annex of the EfB certificate with its
// address, activity description and the AVV codes permitted there.
type Site struct {
	ID          int            `json:"id"`
	Annex       int            `json:"annex"`
	PagesStart  int            `json:"pages_start"`
	PagesEnd    int            `json:"pages_end"`
	Bezeichnung string         `json:"bezeichnung,omitempty"`
	Strasse     string         `json:"strasse,omitempty"`
	PLZ         string         `json:"plz,omitempty"`
	Ort         string         `json:"ort"`
	Bundesland  string         `json:"bundesland,omitempty"`
	Taetigkeit  string         `json:"taetigkeit,omitempty"`
	Point       *spatial.Point `json:"point,omitempty"`
	H3Res5      int64          `json:"-"`
	H3Res6      int64          `json:"-"`
	H3Res7      int64          `json:"-"`
	H3Res8      int64          `json:"-"`
}

// computeH3 fills the coarse-to-fine H3 cells for the site coordinates. Sites
// without a point get zeroed cells.
func (s *Site) computeH3() error {
	if s.Point == nil {
		s.H3Res5, s.H3Res6, s.H3Res7, s.H3Res8 = 0, 0, 0, 0

		return nil
	}

	latLng := h3.NewLatLng(s.Point.Lat, s.Point.Lng)

	for res := 5; res <= 8; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
		}

		switch res {
		case 5:
			s.H3Res5 = int64(cell)
		case 6:
			s.H3Res6 = int64(cell)
		case 7:
			s.H3Res7 = int64(cell)
		case 8:
			s.H3Res8 = int64(cell)
		}
	}

	return nil
}

// Label builds the selector label for a site: "Ort (BL) • Anlage N".
func (s *Site) Label() string {
	ort := s.Ort
	if ort == "" {
		ort = "—"
	}

	return fmt.Sprintf("%s (%s) • Anlage %d", ort, s.Bundesland, s.Annex)
}

// FullAddress joins the postal address parts of the site, skipping the ones
// the certificate left blank. The country is always appended because the
// geocoder needs it for disambiguation.
func (s *Site) FullAddress() string {
	var parts []string

	if s.Strasse != "" {
		parts = append(parts, s.Strasse)
	}

	line2 := strings.TrimSpace(s.PLZ + " " + s.Ort)
	if line2 != "" {
		parts = append(parts, line2)
	}

	if s.Bundesland != "" {
		parts = append(parts, s.Bundesland)
	}

	parts = append(parts, "Deutschland")

	return strings.Join(parts, ", ")
}

// NearestSite returns the geocoded site closest to p and its distance in
// meters. Sites in the query's res-5 H3 cell or its neighbor ring are
// preferred; the ring is needed because a site just across a cell boundary
// can be closer than any site inside the cell. The Haversine scan falls back
// to all sites when the ring holds none. Returns nil when no site has
// coordinates.
func NearestSite(sites []*Site, p *spatial.Point) (*Site, float64) {
	var candidates []*Site

	if cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), 5); err == nil {
		if disk, err := h3.GridDisk(cell, 1); err == nil {
			ring := make(map[int64]bool, len(disk))
			for _, c := range disk {
				ring[int64(c)] = true
			}

			for _, s := range sites {
				if s.Point != nil && ring[s.H3Res5] {
					candidates = append(candidates, s)
				}
			}
		}
	}

	if len(candidates) == 0 {
		for _, s := range sites {
			if s.Point != nil {
				candidates = append(candidates, s)
			}
		}
	}

	var nearest *Site

	best := 0.0

	for _, s := range candidates {
		d := p.HaversineDistance(s.Point)
		if nearest == nil || d < best {
			nearest, best = s, d
		}
	}

	return nearest, best
}
