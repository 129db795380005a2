// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/biocycling/efbcheck/efb"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <site-id>",
	Short: "Check AVV codes against a site, one per line from stdin",
	Long: `Reads AVV codes from stdin and prints one verdict per line.

$ echo "20 01 08" | efbcheck check 1
200108	POSITIV	Musterstr. 1, 12345 Musterstadt, Deutschland
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		siteID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid site id %q", args[0])
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

		checker := efb.NewChecker(repo)

		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(os.Stderr, "AVV-Abfallschlüssel eingeben, einer pro Zeile…")
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			code := scanner.Text()

			result, err := checker.Check(siteID, code)
			if err != nil {
				fmt.Printf("%s\t%q\n", code, err)

				continue
			}

			verdict := "NEGATIV"
			if result.Permitted {
				verdict = "POSITIV"
			}

			fmt.Printf("%s\t%s\t%s\n", result.Code, verdict, result.Address)

			if result.Permitted && result.Text != "" {
				fmt.Printf("\t%s\n", result.Text)
			}
		}

		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
