package dedupe

import "math"

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithThreshold sets the separation, in kilometers, below which two
// candidates are treated as the same physical spot. Negative or NaN values
// are ignored; zero disables merging.
func WithThreshold(km float64) Option {
	return func(a *Aggregator) {
		if km >= 0 && !math.IsInf(km, 0) {
			a.thresholdKm = km
		}
	}
}
