package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/passbi/raptor_core/internal/db"
	"github.com/passbi/raptor_core/internal/experiments"
	"github.com/passbi/raptor_core/internal/timetable"
)

func usageExit() {
	fmt.Fprintf(os.Stderr, `Usage: %s <dataset> <R|HLR> <n|p>

Run the RAPTOR/HL-RAPTOR engine over the dataset's generated queries
and log the running time and arrival times of each query.

Positional arguments:
  dataset  name of the dataset directory under $RAPTOR_DATA
  algo     R for RAPTOR, HLR for HL-RAPTOR
  type     n for earliest-arrival queries, p for profile queries
`, os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) != 4 {
		usageExit()
	}

	dataset := os.Args[1]
	algo := timetable.Algorithm(os.Args[2])
	queryType := experiments.QueryType(os.Args[3])

	if !algo.Valid() || !queryType.Valid() {
		usageExit()
	}

	dataDir := getEnv("RAPTOR_DATA", "./Public-Transit-Data")
	datasetDir := filepath.Join(dataDir, dataset)

	tt, err := timetable.Load(datasetDir, dataset, algo)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}
	tt.Summary()

	queries, err := experiments.ReadQueries(datasetDir)
	if err != nil {
		log.Fatalf("Failed to read queries: %v", err)
	}
	log.Printf("Running %d queries (%s, %s)", len(queries), algo, queryType)

	ctx := context.Background()
	runLog, err := experiments.StartRunLog(ctx, dataset, string(algo), string(queryType))
	if err != nil {
		log.Printf("Run log unavailable: %v", err)
	}
	if runLog != nil {
		defer db.Close()
	}

	start := time.Now()
	results := experiments.Run(tt, queries, queryType)
	elapsed := time.Since(start)

	if err := experiments.WriteResults(".", tt, queryType, results); err != nil {
		if logErr := runLog.Finish(ctx, "failed", len(queries), elapsed); logErr != nil {
			log.Printf("Run log update failed: %v", logErr)
		}
		log.Fatalf("Failed to write results: %v", err)
	}

	if err := runLog.Finish(ctx, "success", len(queries), elapsed); err != nil {
		log.Printf("Run log update failed: %v", err)
	}

	log.Printf("Completed %d queries in %v", len(results), elapsed)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
