package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/passbi/raptor_core/internal/genquery"
	"github.com/passbi/raptor_core/internal/labels"
	"github.com/passbi/raptor_core/internal/timetable"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `genquery - generate a rank-stratified query set for a dataset

Usage:

  %s [<options>] <dataset>

Allowed options:

`, os.Args[0])
		flag.PrintDefaults()
	}

	maxPerRank := flag.IntP("max-per-rank", "q", 1000, "quota of queries per Dijkstra-rank bucket")
	minRank := flag.IntP("min-rank", "r", 4, "smallest rank bucket to fill")
	maxInertia := flag.IntP("max-inertia", "i", 1000, "give up after this many consecutive fruitless sources")
	seed := flag.Int64P("seed", "s", 0, "random seed")
	help := flag.BoolP("help", "?", false, "this message")

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "No dataset specified, see --help")
		os.Exit(1)
	}
	dataset := flag.Arg(0)

	dataDir := getEnv("RAPTOR_DATA", "./Public-Transit-Data")
	datasetDir := filepath.Join(dataDir, dataset)

	// The generator needs both views of the dataset: the hub labels
	// for walking distances and the timetable for the trip-count
	// weights of the source sampling.
	gl, err := labels.Load(datasetDir)
	if err != nil {
		log.Fatalf("Failed to load hub labels: %v", err)
	}
	tt, err := timetable.Load(datasetDir, dataset, timetable.AlgoHLR)
	if err != nil {
		log.Fatalf("Failed to load timetable: %v", err)
	}

	opts := genquery.Options{
		MaxPerRank: *maxPerRank,
		MinRank:    *minRank,
		MaxInertia: *maxInertia,
		Seed:       *seed,
	}
	queries := genquery.Generate(gl, tt, opts)

	outPath := filepath.Join(datasetDir, "queries.csv")
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", outPath, err)
	}
	defer f.Close()

	if err := genquery.Write(f, queries); err != nil {
		log.Fatalf("Failed to write queries: %v", err)
	}
	log.Printf("Wrote %d queries to %s", len(queries), outPath)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
