// Command genmock writes a deterministic synthetic sighting table for local
// runs and manual testing. It prints the figures the analytics queries should
// return for the generated file so test assertions can be updated from them.
//
// Usage:
//
//	go run ./cmd/genmock -out data/ufo_sighting_data.csv -rows 5000 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/sighting-analytics-service/internal/aggregate"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/mockdata"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
	"github.com/couchcryptid/sighting-analytics-service/internal/timeindex"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path; a .zst suffix enables compression")
	rows := flag.Int("rows", 1000, "number of rows to generate")
	seed := flag.Uint64("seed", 42, "generator seed")
	firstYear := flag.Int("first-year", 1995, "earliest sighting year")
	lastYear := flag.Int("last-year", 2014, "latest sighting year")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	tbl, err := mockdata.Generate(mockdata.Options{
		Rows:      *rows,
		Seed:      *seed,
		FirstYear: *firstYear,
		LastYear:  *lastYear,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := snapshot.WriteTable(*out, tbl); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	log.Printf("wrote %d rows: %s", len(tbl.Rows), *out)

	recs, err := tbl.Records()
	if err != nil {
		return err
	}
	sightings, warnings := domain.Normalize(recs)
	printStats(sightings, warnings)
	return nil
}

func printStats(sightings []domain.Sighting, warnings []domain.ParseWarning) {
	idx := timeindex.New(sightings)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (without year: %d)\n", idx.Len(), idx.Unknown())

	byField := map[string]int{}
	for _, w := range warnings {
		byField[w.Field]++
	}
	fmt.Printf("Warnings: %d (datetime=%d, encounter_duration=%d)\n",
		len(warnings), byField[domain.FieldDatetime], byField[domain.FieldDuration])

	located := 0
	for i := range sightings {
		if sightings[i].HasCoordinates() {
			located++
		}
	}
	fmt.Printf("With coordinates: %d\n", located)

	years := idx.Years()
	if len(years) == 0 {
		return
	}
	latest := years[len(years)-1]

	fmt.Println("\nPer year:")
	for _, yc := range idx.CumulativeCounts(latest) {
		fmt.Printf("  %d: %d\n", yc.Year, yc.Count)
	}
	subset := idx.FilterByYear(latest)
	for _, mode := range aggregate.Modes() {
		entries, err := aggregate.Run(mode, subset, aggregate.DefaultN)
		if err != nil {
			continue
		}
		fmt.Printf("\n%s in %d:\n", mode.Title(), latest)
		for _, e := range entries {
			fmt.Printf("  %-16s %g\n", e.Label, e.Value)
		}
	}
}
