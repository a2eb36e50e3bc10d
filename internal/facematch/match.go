package facematch

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/rs/zerolog"
)

// Matcher finds the closest enrolled descriptor within a tolerance.
type Matcher struct {
	tolerance float64
	log       zerolog.Logger
}

// NewMatcher creates a matcher. Distances <= tolerance are matches.
func NewMatcher(tolerance float64, log zerolog.Logger) *Matcher {
	return &Matcher{tolerance: tolerance, log: log}
}

// Tolerance returns the configured tolerance.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match runs a linear nearest-neighbour scan over stored in the given order.
// The first descriptor seen at the minimum distance wins. Descriptors whose
// length differs from candidate are skipped.
func (m *Matcher) Match(candidate database.Descriptor, stored []database.StoredDescriptor) Result {
	best := notFound()
	var bestIdentity database.Identity
	found := false

	for i := range stored {
		s := &stored[i]
		if s.Descriptor == nil {
			continue
		}

		dist, err := EuclideanDistance(candidate, s.Descriptor)
		if err != nil {
			m.log.Warn().Err(err).Int64("user_id", s.Identity.ID).Msg("skipping stored descriptor")
			continue
		}
		best.Compared++

		if dist < best.BestDistance {
			best.BestDistance = dist
			bestIdentity = s.Identity
			found = true
		}
	}

	if found && best.BestDistance <= m.tolerance {
		m.log.Info().
			Int64("user_id", bestIdentity.ID).
			Float64("distance", best.BestDistance).
			Msg("face matched")
		return Matched{Identity: bestIdentity, Distance: best.BestDistance}
	}

	m.log.Debug().
		Int("compared", best.Compared).
		Float64("best_distance", best.BestDistance).
		Float64("tolerance", m.tolerance).
		Msg("no face within tolerance")
	return best
}

// FindNearest loads every enrolled descriptor and matches candidate against them.
func FindNearest(
	ctx context.Context, loader database.DescriptorLoader, candidate database.Descriptor, tolerance float64, log zerolog.Logger,
) (Result, error) {
	stored, err := loader.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	return NewMatcher(tolerance, log).Match(candidate, stored), nil
}
