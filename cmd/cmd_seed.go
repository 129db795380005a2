// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/biocycling/efbcheck/cert"
	"github.com/biocycling/efbcheck/efb"
	"github.com/biocycling/efbcheck/spatial"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var seedOptions struct {
	allSites bool
	geocode  bool
}

var seedCmd = &cobra.Command{
	Use:   "seed <certificate>",
	Short: "Build the local database from a certificate document",
	Long: `Reads an EfB certificate (HTML export or the JSON seed format), replaces the
local database with its sites and permitted AVV codes, and records the source
in the meta table. Only biogas sites are kept unless --all-sites is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		certificate, err := cert.ReadFile(args[0])
		if err != nil {
			return err
		}

		sites := certificate.Sites
		if !seedOptions.allSites {
			var biogas []*efb.CertifiedSite

			for _, s := range sites {
				if cert.IsBiogasSite(s.Taetigkeit) {
					biogas = append(biogas, s)
				}
			}

			sites = biogas
		}

		if len(sites) == 0 {
			return fmt.Errorf("no sites to seed from %s", args[0])
		}

		if err := os.MkdirAll(dbPath, 0o750); err != nil {
			return fmt.Errorf("creating db directory: %w", err)
		}

		// remove old db if it exists
		_ = os.Remove(databaseFile())
		_ = os.Remove(databaseFile() + ".wal")

		db, err := sql.Open("duckdb", databaseFile())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo, err := efb.NewSiteRepository(db)
		if err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		if seedOptions.geocode {
			geocodeSites(sites)
		}

		if err := repo.ReplaceSites(sites); err != nil {
			return fmt.Errorf("seeding sites: %w", err)
		}

		if err := repo.SetMeta("source", certificate.Source); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}

		if err := repo.SetMeta("generated_at_utc", time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}

		fmt.Printf("Database seeded with %d sites from %s\n", len(sites), certificate.Source)

		return nil
	},
}

// geocodeSites resolves coordinates for every site that has none yet. A
// failed lookup only logs: the site stays in the store and the server can
// retry on demand.
func geocodeSites(sites []*efb.CertifiedSite) {
	geocoder := newGeocoder()

	bar := progressbar.Default(int64(len(sites)), "geocoding sites")

	for _, s := range sites {
		_ = bar.Add(1)

		if s.Point != nil {
			continue
		}

		result, err := geocoder.Geocode(s.FullAddress())
		if err != nil {
			log.Printf("geocoding %q failed: %v", s.FullAddress(), err)

			continue
		}

		s.Point = &spatial.Point{Lat: result.Latitude, Lng: result.Longitude}
	}
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(
		&seedOptions.allSites,
		"all-sites",
		false,
		"Seed every site of the certificate, not only biogas plants",
	)
	seedCmd.Flags().BoolVar(
		&seedOptions.geocode,
		"geocode",
		false,
		"Resolve site coordinates while seeding",
	)
}
