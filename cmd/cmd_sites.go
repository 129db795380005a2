// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/biocycling/efbcheck/efb"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the certified sites in the local database",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := sql.Open("duckdb", databaseFile())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo, err := efb.NewSiteRepository(db)
		if err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		sites, err := repo.ListSites()
		if err != nil {
			return fmt.Errorf("listing sites: %w", err)
		}

		counts, err := repo.CodeCounts()
		if err != nil {
			return fmt.Errorf("counting codes: %w", err)
		}

		a, b, c, d := strings.Repeat("─", 2), strings.Repeat("─", 30), strings.Repeat("─", 44), strings.Repeat("─", 4)
		fmt.Println("Standorte in der Datenbank:")
		fmt.Printf("╭─%2s─┬─%-30s─┬─%-44s─┬─%-4s─╮\n", a, b, c, d)
		fmt.Printf("│ %2s │ %-30s │ %-44s │ %-4s │\n", "Id", "Standort", "Adresse", "AVV")
		fmt.Printf("├─%2s─┼─%-30s─┼─%-44s─┼─%-4s─┤\n", a, b, c, d)

		for _, s := range sites {
			fmt.Printf("│ %2d │ %-30s │ %-44s │ %4d │\n", s.ID, s.Label(), s.FullAddress(), counts[s.ID])
		}

		fmt.Printf("╰─%2s─┴─%-30s─┴─%-44s─┴─%-4s─╯\n", a, b, c, d)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
