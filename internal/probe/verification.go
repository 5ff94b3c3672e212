package probe

import (
	"context"
	"math"

	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/pkg/logger"
)

// verifyResults checks ordering, spacing and containment of every answer.
func verifyResults(ctx context.Context, config *Config, queries []Query, stats *Stats) {
	for i := range queries {
		q := &queries[i]
		if q.Request.Lat == nil || q.Request.Lng == nil {
			continue
		}
		center := model.Point{Lat: *q.Request.Lat, Lng: *q.Request.Lng}
		hs := q.Response.Hotspots
		stats.HotspotsReturned += len(hs)

		for j, h := range hs {
			p := model.Point{Lat: h.Lat, Lng: h.Lng}
			if j > 0 && h.DistanceKm < hs[j-1].DistanceKm {
				stats.OrderViolations++
				report(ctx, config, "results out of order", i, j)
			}
			if h.Source == string(model.SourceCatalog) && h.DistanceKm > q.Response.RadiusKm+distanceTolerance {
				stats.RadiusViolations++
				report(ctx, config, "catalog hotspot outside radius", i, j)
			}
			if math.Abs(geo.DistanceKm(center, p)-h.DistanceKm) > distanceTolerance {
				stats.RadiusViolations++
				report(ctx, config, "reported distance does not match position", i, j)
			}
			for k := j + 1; k < len(hs); k++ {
				if geo.DistanceKm(p, model.Point{Lat: hs[k].Lat, Lng: hs[k].Lng}) < config.DedupeKm-distanceTolerance {
					stats.SpacingViolations++
					report(ctx, config, "results closer than the dedupe threshold", i, j)
				}
			}
		}
	}
}

func report(ctx context.Context, config *Config, msg string, query, index int) {
	if config.Verbose {
		logger.Get().Warn(ctx, msg, logger.Int("query", query), logger.Int("index", index))
	}
}
