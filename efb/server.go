// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/biocycling/efbcheck/spatial"
	"github.com/gin-gonic/gin"
)

// Server exposes the certification store and the AVV check over a JSON API.
// It is the presentation boundary: the frontend populates its selector from
// /api/sites and renders the verdict from /api/sites/:id/check.
type Server struct {
	repo     SiteRepository
	checker  *Checker
	geocoder Geocoder
}

// NewServer wires the repository and the geocoding collaborator together.
func NewServer(repo SiteRepository, geocoder Geocoder) *Server {
	return &Server{
		repo:     repo,
		checker:  NewChecker(repo),
		geocoder: geocoder,
	}
}

// Run starts the HTTP server on the given address.
func (s *Server) Run(addr string) error {
	r := gin.Default()

	s.RegisterRoutes(r)

	return r.Run(addr)
}

// RegisterRoutes attaches the API handlers to the router.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/meta", s.getMeta)
	r.GET("/api/sites", s.listSites)
	r.GET("/api/sites/nearest", s.nearestSite)
	r.GET("/api/sites/:id", s.getSite)
	r.GET("/api/sites/:id/codes", s.listSiteCodes)
	r.GET("/api/sites/:id/check", s.checkCode)
	r.GET("/api/sites/:id/coordinates", s.getCoordinates)
}

func (s *Server) getMeta(ctx *gin.Context) {
	meta, err := s.repo.Meta()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, meta)
}

// SiteSummary is one row of the site selector.
type SiteSummary struct {
	ID        int    `json:"id"`
	Label     string `json:"label"`
	Address   string `json:"address"`
	CodeCount int    `json:"code_count"`
}

func (s *Server) listSites(ctx *gin.Context) {
	sites, err := s.repo.ListSites()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	counts, err := s.repo.CodeCounts()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	summaries := make([]SiteSummary, 0, len(sites))

	for _, site := range sites {
		summaries = append(summaries, SiteSummary{
			ID:        site.ID,
			Label:     site.Label(),
			Address:   site.FullAddress(),
			CodeCount: counts[site.ID],
		})
	}

	ctx.JSON(http.StatusOK, summaries)
}

func siteID(ctx *gin.Context) (int, bool) {
	var id int
	if _, err := fmt.Sscanf(ctx.Param("id"), "%d", &id); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid site id"})

		return 0, false
	}

	return id, true
}

func (s *Server) getSite(ctx *gin.Context) {
	id, ok := siteID(ctx)
	if !ok {
		return
	}

	site, err := s.repo.GetSite(id)
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"site":    site,
		"label":   site.Label(),
		"address": site.FullAddress(),
	})
}

func (s *Server) listSiteCodes(ctx *gin.Context) {
	id, ok := siteID(ctx)
	if !ok {
		return
	}

	if _, err := s.repo.GetSite(id); err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}

		return
	}

	codes, err := s.repo.ListCodes(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	codes = FilterCodes(codes, ctx.Query("filter"))

	if codes == nil {
		codes = []*WasteCode{}
	}

	ctx.JSON(http.StatusOK, codes)
}

func (s *Server) checkCode(ctx *gin.Context) {
	id, ok := siteID(ctx)
	if !ok {
		return
	}

	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "code query parameter is required"})

		return
	}

	result, err := s.checker.Check(id, code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "an AVV code has 6 digits, e.g. 200108"})
		case errors.Is(err, ErrSiteNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}

		return
	}

	ctx.JSON(http.StatusOK, result)
}

// CoordinatesResponse carries the map marker for a site.
type CoordinatesResponse struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Provider   string  `json:"provider,omitempty"`
	Confidence string  `json:"confidence,omitempty"`
	Cached     bool    `json:"cached"`
}

func (s *Server) getCoordinates(ctx *gin.Context) {
	id, ok := siteID(ctx)
	if !ok {
		return
	}

	site, err := s.repo.GetSite(id)
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}

		return
	}

	if site.Point != nil {
		ctx.JSON(http.StatusOK, CoordinatesResponse{
			Latitude:  site.Point.Lat,
			Longitude: site.Point.Lng,
			Cached:    true,
		})

		return
	}

	result, err := s.geocoder.Geocode(site.FullAddress())
	if err != nil {
		// The map degrades independently of the check: an unresolvable
		// address is a 404 on this endpoint, nothing more.
		status := http.StatusServiceUnavailable
		if IsAddressNotFound(err) {
			status = http.StatusNotFound
		}

		ctx.JSON(status, gin.H{"error": "no coordinates available", "details": err.Error()})

		return
	}

	point := &spatial.Point{Lat: result.Latitude, Lng: result.Longitude}
	if err := s.repo.SaveCoordinates(id, point); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("saving coordinates: %v", err)})

		return
	}

	ctx.JSON(http.StatusOK, CoordinatesResponse{
		Latitude:   result.Latitude,
		Longitude:  result.Longitude,
		Provider:   result.Provider,
		Confidence: result.Confidence,
		Cached:     false,
	})
}

// NearestSiteResponse names the closest certified site to a coordinate.
type NearestSiteResponse struct {
	SiteID         int     `json:"site_id"`
	Label          string  `json:"label"`
	Address        string  `json:"address"`
	DistanceMeters float64 `json:"distance_meters"`
}

func (s *Server) nearestSite(ctx *gin.Context) {
	var lat, lon float64

	if _, err := fmt.Sscanf(ctx.Query("lat"), "%f", &lat); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat parameter"})

		return
	}

	if _, err := fmt.Sscanf(ctx.Query("lon"), "%f", &lon); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon parameter"})

		return
	}

	sites, err := s.repo.ListSites()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	nearest, distance := NearestSite(sites, &spatial.Point{Lat: lat, Lng: lon})
	if nearest == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no geocoded sites in the store"})

		return
	}

	ctx.JSON(http.StatusOK, NearestSiteResponse{
		SiteID:         nearest.ID,
		Label:          nearest.Label(),
		Address:        nearest.FullAddress(),
		DistanceMeters: distance,
	})
}
