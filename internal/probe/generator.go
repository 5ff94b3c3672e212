package probe

import (
	"math/rand"

	"github.com/okian/hotspot/internal/adapters/dataset"
	"github.com/okian/hotspot/internal/domain/types"
)

// generateQueries spreads query points across the demo accident zones.
func generateQueries(config *Config, stats *Stats) []Query {
	rng := rand.New(rand.NewSource(config.Seed)) //nolint:gosec // reproducible probe input
	zones := dataset.Zones

	queries := make([]Query, config.NumQueries)
	for i := range queries {
		z := zones[i%len(zones)]
		lat := z.LatMin + rng.Float64()*(z.LatMax-z.LatMin)
		lng := z.LngMin + rng.Float64()*(z.LngMax-z.LngMin)
		radius := config.RadiusKm
		queries[i] = Query{
			Zone:    z.Name,
			Request: types.QueryRequest{Lat: &lat, Lng: &lng, RadiusKm: &radius},
		}
	}
	stats.QueriesGenerated = len(queries)
	return queries
}
