// Package dataset loads the points the hotspot catalog is built from:
// a CSV or JSON file, or generated demo data.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/scoring"
)

// ErrInvalidDataset is returned for unreadable or malformed datasets.
var ErrInvalidDataset = errors.New("invalid dataset")

// Zone is a rectangular area demo points are drawn from.
type Zone struct {
	Name           string
	LatMin, LatMax float64
	LngMin, LngMax float64
}

// Zones are areas with a known history of road accidents.
var Zones = []Zone{
	{"Odisha", 20.0, 21.5, 85.5, 87.0},
	{"Mumbai", 19.0, 20.0, 72.8, 73.0},
	{"Delhi", 28.5, 28.8, 77.0, 77.3},
	{"Chicago", 41.6, 42.0, -87.9, -87.5},
	{"New York", 40.7, 40.8, -74.0, -73.9},
	{"Los Angeles", 34.0, 34.2, -118.3, -118.2},
	{"London", 51.5, 51.6, -0.2, 0.0},
	{"Paris", 48.8, 48.9, 2.3, 2.4},
	{"Berlin", 52.5, 52.6, 13.3, 13.5},
	{"Tokyo", 35.6, 35.8, 139.6, 139.8},
	{"Singapore", 1.3, 1.4, 103.8, 104.0},
	{"Jakarta", -6.2, -6.1, 106.8, 106.9},
}

// Demo spreads n points evenly over Zones and scores them with scorer.
// The same seed always yields the same points.
func Demo(ctx context.Context, n int, seed int64, scorer scoring.Scorer) ([]model.ScoredPoint, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: demo size %d", ErrInvalidDataset, n)
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible demo data
	points := make([]model.Point, 0, n)
	per, extra := n/len(Zones), n%len(Zones)
	for i, z := range Zones {
		count := per
		if i < extra {
			count++
		}
		for j := 0; j < count; j++ {
			points = append(points, model.Point{
				Lat: z.LatMin + rng.Float64()*(z.LatMax-z.LatMin),
				Lng: z.LngMin + rng.Float64()*(z.LngMax-z.LngMin),
			})
		}
	}
	return scoring.ScoreAll(ctx, scorer, points)
}

// row is one dataset entry; a nil Risk is filled in by the scorer.
type row struct {
	Lat  float64  `json:"lat"`
	Lng  float64  `json:"lng"`
	Risk *float64 `json:"risk_score,omitempty"`
}

// LoadFile reads path as JSON when it ends in .json and as CSV otherwise.
// Rows without a risk score are scored with scorer.
func LoadFile(ctx context.Context, path string, scorer scoring.Scorer) ([]model.ScoredPoint, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	defer f.Close()

	var rows []row
	if strings.EqualFold(filepath.Ext(path), ".json") {
		rows, err = readJSON(f)
	} else {
		rows, err = readCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDataset, path, err)
	}
	return score(ctx, rows, scorer)
}

func score(ctx context.Context, rows []row, scorer scoring.Scorer) ([]model.ScoredPoint, error) {
	out := make([]model.ScoredPoint, len(rows))
	for i, r := range rows {
		p := model.Point{Lat: r.Lat, Lng: r.Lng}
		if err := model.ValidatePoint(p); err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrInvalidDataset, i+1, err)
		}
		out[i].Point = p
		if r.Risk != nil {
			out[i].RiskScore = *r.Risk
			continue
		}
		if scorer == nil {
			return nil, fmt.Errorf("%w: row %d has no risk score and no scorer is configured", ErrInvalidDataset, i+1)
		}
		res, err := scorer.Score(ctx, scoring.Input{Point: p})
		if err != nil {
			return nil, fmt.Errorf("score row %d: %w", i+1, err)
		}
		out[i].RiskScore = res.RiskScore
	}
	return out, nil
}

func readJSON(r io.Reader) ([]row, error) {
	var rows []row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// readCSV accepts lat,lng[,risk_score] rows. An optional header names the
// columns; without one that order is assumed.
func readCSV(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	latCol, lngCol, riskCol := 0, 1, 2
	if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err != nil {
		latCol, lngCol, riskCol = -1, -1, -1
		for i, h := range records[0] {
			switch strings.ToLower(strings.TrimSpace(h)) {
			case "lat", "latitude":
				latCol = i
			case "lng", "lon", "long", "longitude":
				lngCol = i
			case "risk", "risk_score":
				riskCol = i
			}
		}
		if latCol < 0 || lngCol < 0 {
			return nil, fmt.Errorf("header %v has no latitude/longitude columns", records[0])
		}
		records = records[1:]
	}

	rows := make([]row, 0, len(records))
	for i, rec := range records {
		field := func(col int) (string, bool) {
			if col < 0 || col >= len(rec) {
				return "", false
			}
			v := strings.TrimSpace(rec[col])
			return v, v != ""
		}
		var out row
		for _, c := range []struct {
			col int
			dst *float64
		}{{latCol, &out.Lat}, {lngCol, &out.Lng}} {
			v, ok := field(c.col)
			if !ok {
				return nil, fmt.Errorf("row %d: missing coordinate", i+1)
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			*c.dst = f
		}
		if v, ok := field(riskCol); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: risk score: %w", i+1, err)
			}
			out.Risk = &f
		}
		rows = append(rows, out)
	}
	return rows, nil
}
