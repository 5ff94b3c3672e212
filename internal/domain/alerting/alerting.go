// Package alerting decides which observers receive a proximity alert.
// It only classifies; delivery is left to the caller.
package alerting

import (
	"fmt"
	"math"

	"github.com/okian/hotspot/internal/domain/geo"
	"github.com/okian/hotspot/internal/domain/model"
)

// DefaultMultiplier widens the hotspot search radius into the alert radius.
const DefaultMultiplier = 1.5

// LocationPolicy decides how observers without a known location are
// treated.
type LocationPolicy int

const (
	// NotifyLocationless alerts every observer with no location on file.
	NotifyLocationless LocationPolicy = iota
	// SkipLocationless never alerts observers with no location on file.
	SkipLocationless
)

func (p LocationPolicy) String() string {
	switch p {
	case NotifyLocationless:
		return "notify"
	case SkipLocationless:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseLocationPolicy maps "notify" or "skip" to a policy.
func ParseLocationPolicy(s string) (LocationPolicy, error) {
	switch s {
	case "", "notify":
		return NotifyLocationless, nil
	case "skip":
		return SkipLocationless, nil
	default:
		return 0, fmt.Errorf("unknown locationless policy: %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithMultiplier sets the alert radius multiplier. Values below 1 or
// non-finite values are ignored.
func WithMultiplier(m float64) Option {
	return func(e *Engine) {
		if m >= 1 && !math.IsInf(m, 0) {
			e.multiplier = m
		}
	}
}

// WithLocationPolicy sets the treatment of observers with no location.
func WithLocationPolicy(p LocationPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// Engine classifies observers against a query. It is stateless after New
// and safe for concurrent use.
type Engine struct {
	multiplier float64
	policy     LocationPolicy
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{multiplier: DefaultMultiplier, policy: NotifyLocationless}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Multiplier returns the alert radius multiplier.
func (e *Engine) Multiplier() float64 { return e.multiplier }

// Policy returns the locationless policy.
func (e *Engine) Policy() LocationPolicy { return e.policy }

// Select returns one outcome per observer in input order, or nothing when
// hotspots is empty.
func (e *Engine) Select(hotspots []model.HotspotResult, observers []model.Observer, center model.Point, radiusKm float64) []model.AlertOutcome {
	if len(hotspots) == 0 {
		return []model.AlertOutcome{}
	}
	limit := radiusKm * e.multiplier
	out := make([]model.AlertOutcome, len(observers))
	for i, o := range observers {
		out[i] = model.AlertOutcome{Observer: o}
		loc, ok := o.Located()
		switch {
		case !ok && e.policy == SkipLocationless:
			out[i].Reason = model.ReasonNoLocationSkipped
		case !ok:
			out[i].Qualifies, out[i].Reason = true, model.ReasonNoLocation
		case geo.DistanceKm(loc, center) <= limit:
			out[i].Qualifies, out[i].Reason = true, model.ReasonWithinRadius
		default:
			out[i].Reason = model.ReasonOutsideRadius
		}
	}
	return out
}

// Qualifying filters outcomes down to the observers to notify, keeping order.
func Qualifying(outcomes []model.AlertOutcome) []model.Observer {
	var out []model.Observer
	for _, o := range outcomes {
		if o.Qualifies {
			out = append(out, o.Observer)
		}
	}
	return out
}
