// Package scoring assigns risk scores to catalog points. It stands in for
// an external risk model: scores are drawn from a seeded distribution, with
// optional simulated latency.
package scoring

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/hotspot/internal/domain/model"
)

const (
	defaultRandomSeed = 42

	// Beta(2, 5) is the distribution of the 2nd smallest of 6 uniforms.
	betaAlpha   = 2
	betaSamples = 6
)

// Option applies a configuration option to a scorer.
type Option func(*base)

// WithSeed sets the random seed.
func WithSeed(seed int64) Option {
	return func(b *base) {
		b.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible scores, not security
	}
}

// WithLatencyRange sets the simulated model latency per call.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(b *base) {
		if minLatency >= 0 && maxLatency >= minLatency {
			b.minLatency = minLatency
			b.maxLatency = maxLatency
		}
	}
}

// Input is the point to score.
type Input struct {
	Point model.Point
}

// Result contains the computed risk score in [0, 1].
type Result struct {
	Point     model.Point
	RiskScore float64
}

// Scorer computes a risk score for a point.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

type base struct {
	mu         sync.Mutex
	rng        *rand.Rand
	minLatency time.Duration
	maxLatency time.Duration
}

func newBase(opts []Option) *base {
	b := &base{rng: rand.New(rand.NewSource(defaultRandomSeed))} //nolint:gosec // reproducible scores, not security
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// draw runs f under the lock and then waits out the simulated latency.
func (b *base) draw(ctx context.Context, f func(r *rand.Rand) float64) (float64, error) {
	b.mu.Lock()
	v := f(b.rng)
	var latency time.Duration
	if b.maxLatency > 0 {
		latency = b.minLatency
		if span := b.maxLatency - b.minLatency; span > 0 {
			latency += time.Duration(b.rng.Int63n(int64(span)))
		}
	}
	b.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context cancelled: %w", err)
	}
	return v, nil
}

// UniformScorer draws scores uniformly from [0, 1).
type UniformScorer struct {
	b *base
}

// NewUniformScorer creates a uniform scorer.
func NewUniformScorer(opts ...Option) *UniformScorer {
	return &UniformScorer{b: newBase(opts)}
}

// Score implements Scorer.
func (s *UniformScorer) Score(ctx context.Context, in Input) (Result, error) {
	v, err := s.b.draw(ctx, (*rand.Rand).Float64)
	if err != nil {
		return Result{}, err
	}
	return Result{Point: in.Point, RiskScore: v}, nil
}

// BetaScorer draws scores from Beta(2, 5), which skews most points toward
// low risk and leaves a thin high-risk tail.
type BetaScorer struct {
	b *base
}

// NewBetaScorer creates a Beta(2, 5) scorer.
func NewBetaScorer(opts ...Option) *BetaScorer {
	return &BetaScorer{b: newBase(opts)}
}

// Score implements Scorer.
func (s *BetaScorer) Score(ctx context.Context, in Input) (Result, error) {
	v, err := s.b.draw(ctx, func(r *rand.Rand) float64 {
		var u [betaSamples]float64
		for i := range u {
			u[i] = r.Float64()
		}
		sort.Float64s(u[:])
		return u[betaAlpha-1]
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Point: in.Point, RiskScore: v}, nil
}

// New returns the scorer registered under name: "beta" or "uniform".
func New(name string, opts ...Option) (Scorer, error) {
	switch name {
	case "", "beta":
		return NewBetaScorer(opts...), nil
	case "uniform":
		return NewUniformScorer(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scorer: %q", name)
	}
}

// ScoreAll scores every point in order and returns catalog entries. It
// stops at the first error.
func ScoreAll(ctx context.Context, s Scorer, points []model.Point) ([]model.ScoredPoint, error) {
	out := make([]model.ScoredPoint, 0, len(points))
	for _, p := range points {
		res, err := s.Score(ctx, Input{Point: p})
		if err != nil {
			return nil, fmt.Errorf("score point %d: %w", len(out), err)
		}
		out = append(out, model.ScoredPoint{Point: res.Point, RiskScore: res.RiskScore})
	}
	return out, nil
}
