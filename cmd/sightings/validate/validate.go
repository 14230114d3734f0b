// Package validate implements the validate subcommand: integrity checks
// across the raw sighting table and the snapshots derived from it. It
// verifies row counts, field parsing, and cluster assignments.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/sighting-analytics-service/internal/app"
	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
	"github.com/spf13/cobra"
)

// Command creates the validate command.
func Command(ctx *app.Context) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the snapshots against the raw sighting table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("k") {
				k = ctx.Config.ClusterK
			}
			return Run(cmd.Context(), ctx.Store(), k, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "expected number of clusters (defaults to CLUSTER_K)")
	return cmd
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxErrors caps the detail printed per phase.
const maxErrors = 20

// Run validates every snapshot of store and writes a report to out. It
// returns an error when any phase fails.
func Run(ctx context.Context, store *snapshot.Store, k int, out io.Writer) error {
	fmt.Fprintln(out, "=== Sighting Snapshot Validation ===")
	fmt.Fprintln(out)

	src, err := store.Extract(ctx)
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}
	sightings, warnings := domain.Normalize(src.Records)

	phases := []*phase{
		validateSource(sightings, warnings),
		validateNormalized(store.NormalizedPath, sightings),
		validateClustered(ctx, store, sightings, k),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		switch {
		case p.skipped:
			status = "SKIP"
		case !p.passed():
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d source rows, %d parse warnings\n", len(sightings), len(warnings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Fprintf(out, "  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if !allPassed {
		fmt.Fprintln(out, "\nValidation FAILED.")
		return errors.New("validation failed")
	}
	fmt.Fprintln(out, "\nAll validations passed.")
	return nil
}

// validateSource checks that at least some rows parsed and that no row lost
// every field it could have carried.
func validateSource(sightings []domain.Sighting, warnings []domain.ParseWarning) *phase {
	p := &phase{name: "Source table parses"}
	if len(sightings) == 0 {
		p.errorf("source table has no rows")
		return p
	}
	perRow := make(map[int]int)
	for _, w := range warnings {
		perRow[w.Row]++
	}
	for row, n := range perRow {
		if n >= 4 {
			p.errorf("row %d: every parsed field degraded to absent", row)
		}
	}
	return p
}

// validateNormalized checks that the normalized snapshot mirrors the source
// row for row and parses cleanly.
func validateNormalized(path string, sightings []domain.Sighting) *phase {
	p := &phase{name: "Normalized snapshot matches source"}
	if path == "" {
		p.skipped = true
		return p
	}
	t, err := snapshot.ReadTable(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	recs, err := t.Records()
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if len(recs) != len(sightings) {
		p.errorf("row count: normalized=%d source=%d", len(recs), len(sightings))
		return p
	}

	normalized, warnings := domain.Normalize(recs)
	for _, w := range warnings {
		p.errorf("normalized %s", w.Error())
	}
	for i := range normalized {
		compareSighting(p, i, &sightings[i], &normalized[i])
	}
	return p
}

// validateClustered checks that every row with coordinates appears once in
// the clustered snapshot, in source order, with a cluster id in [0, k).
func validateClustered(ctx context.Context, store *snapshot.Store, sightings []domain.Sighting, k int) *phase {
	p := &phase{name: "Clustered snapshot covers located rows"}
	if store.ClusteredPath == "" {
		p.skipped = true
		return p
	}
	snap, err := store.ReadClustered(ctx)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	var located []int
	for i := range sightings {
		if sightings[i].HasCoordinates() {
			located = append(located, i)
		}
	}
	if len(snap.Records) != len(located) {
		p.errorf("row count: clustered=%d located source rows=%d", len(snap.Records), len(located))
		return p
	}

	clustered, _ := domain.Normalize(snap.Records)
	sizes := make([]int, k)
	for i, id := range snap.Clusters {
		if id < 0 || id >= k {
			p.errorf("row %d: cluster id %d outside [0, %d)", i, id, k)
			continue
		}
		sizes[id]++
		compareSighting(p, i, &sightings[located[i]], &clustered[i])
	}
	for id, n := range sizes {
		if n == 0 && len(located) >= k {
			p.errorf("cluster %d is empty", id)
		}
	}
	return p
}

func compareSighting(p *phase, row int, want, got *domain.Sighting) {
	if !intPtrEq(want.Year, got.Year) {
		p.errorf("row %d: year %s != %s", row, fmtIntPtr(got.Year), fmtIntPtr(want.Year))
	}
	if !floatPtrEq(want.Latitude, got.Latitude) || !floatPtrEq(want.Longitude, got.Longitude) {
		p.errorf("row %d: coordinates differ from source", row)
	}
	if !floatPtrEq(want.DurationSeconds, got.DurationSeconds) {
		p.errorf("row %d: duration differs from source", row)
	}
	if want.Location != got.Location || want.Shape != got.Shape {
		p.errorf("row %d: location/shape %q/%q != %q/%q", row, got.Location, got.Shape, want.Location, want.Shape)
	}
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprint(*v)
}
