// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/biocycling/efbcheck/efb"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
)

var serveOptions struct {
	listen    string
	geocoder  string
	traceHTTP bool
}

// newGeocoder builds the configured geocoding collaborator. Nominatim needs
// no key; the Google provider takes GOOGLE_MAPS_API_KEY or falls back to ADC.
func newGeocoder() efb.Geocoder {
	if serveOptions.geocoder == "google" {
		apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = efb.APIKeyFromADC(context.Background())
			if err != nil {
				log.Printf("Failed to retrieve API key via ADC: %v", err)
				log.Print("Falling back to Nominatim geocoding.")

				return nominatimGeocoder()
			}
		}

		g := efb.NewGoogleMapsGeocoder(apiKey)
		if serveOptions.traceHTTP {
			g.TraceHTTP(os.Stderr)
		}

		return g
	}

	return nominatimGeocoder()
}

func nominatimGeocoder() *efb.NominatimGeocoder {
	g := efb.NewNominatimGeocoder(
		fmt.Sprintf("efbcheck/%s (+https://github.com/biocycling/efbcheck)", Version),
	)
	if serveOptions.traceHTTP {
		g.TraceHTTP(os.Stderr)
	}

	return g
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the AVV check API server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if _, err := os.Stat(databaseFile()); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database not found at %s - run 'seed' first", databaseFile())
		}

		db, err := sql.Open("duckdb", databaseFile())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo, err := efb.NewSiteRepository(db)
		if err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		count, err := repo.CountSites()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		if count == 0 {
			return fmt.Errorf("store at %s holds no sites - run 'seed' first", databaseFile())
		}

		server := efb.NewServer(repo, newGeocoder())

		fmt.Printf("EfB-Check serving %d sites on %s\n", count, serveOptions.listen)

		return server.Run(serveOptions.listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOptions.listen,
		"listen",
		"localhost:8080",
		"Address to listen on",
	)
	rootCmd.PersistentFlags().StringVar(
		&serveOptions.geocoder,
		"geocoder",
		"nominatim",
		"Geocoding provider (nominatim or google)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&serveOptions.traceHTTP,
		"trace-http",
		false,
		"Dump geocoding HTTP transactions to stderr",
	)
}
