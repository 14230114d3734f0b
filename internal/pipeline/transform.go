package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/sighting-analytics-service/internal/domain"
	"github.com/couchcryptid/sighting-analytics-service/internal/snapshot"
)

// prepare extracts the source table and normalizes every row. Both the
// snapshot build and the serving load go through here so the two paths parse
// records identically.
func (p *Pipeline) prepare(ctx context.Context) (*snapshot.Source, []domain.Sighting, int, error) {
	src, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("extract sightings: %w", err)
	}
	p.metrics.RecordsLoaded.Add(float64(len(src.Records)))

	sightings, warnings := domain.Normalize(src.Records)
	p.reportWarnings(warnings)
	return src, sightings, len(warnings), nil
}

// reportWarnings logs the first MaxLoggedWarnings parse warnings individually
// and the total once.
func (p *Pipeline) reportWarnings(warnings []domain.ParseWarning) {
	for i, w := range warnings {
		p.metrics.ParseWarnings.WithLabelValues(w.Field).Inc()
		if i < p.opts.MaxLoggedWarnings {
			p.logger.Warn("field degraded to absent",
				"row", w.Row,
				"field", w.Field,
				"value", w.Value,
				"reason", w.Reason,
			)
		}
	}
	if len(warnings) > 0 {
		p.logger.Info("normalization finished with warnings",
			"warnings", len(warnings),
			"logged", min(len(warnings), p.opts.MaxLoggedWarnings),
		)
	}
}
