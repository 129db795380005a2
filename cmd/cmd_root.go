// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "efbcheck",
	Short: "EfB-Check: AVV je Standort",
	Long: `
efbcheck prüft, ob ein AVV-Abfallschlüssel im EfB-Zertifikat für einen
Standort aufgeführt ist. Die Daten stammen aus einer lokal eingespielten
Zertifikats-Datenbank; Adressen werden über einen externen Geocoding-Dienst
aufgelöst.
`,
}

// dbPath is the base directory holding the local database state.
var dbPath string

const dbFilename = "efb_avv.duckdb"

func databaseFile() string {
	return filepath.Join(dbPath, dbFilename)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"db",
		"Directory holding the local database",
	)
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
