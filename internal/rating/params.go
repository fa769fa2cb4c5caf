package rating

import (
	"errors"
	"fmt"
	"math"
)

// Params are the system constants of the Glicko-2 engine.
type Params struct {
	// Scale converts between the display scale and the internal mu/phi scale.
	Scale float64
	// DefaultRating is both the starting rating and the center of the mu scale.
	DefaultRating     float64
	DefaultRD         float64
	DefaultVolatility float64
	// Tau constrains the change in volatility per game.
	Tau float64
	// Tolerance is the convergence bound of the volatility root-find.
	Tolerance float64
	// MaxIterations bounds both the bracket search and the Illinois iteration.
	MaxIterations int
}

func DefaultParams() Params {
	return Params{
		Scale:             173.7178,
		DefaultRating:     1500,
		DefaultRD:         350,
		DefaultVolatility: 0.06,
		Tau:               0.5,
		Tolerance:         1e-6,
		MaxIterations:     1000,
	}
}

func (p Params) Validate() error {
	var err error
	check := func(name string, v float64, positive bool) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = errors.Join(err, fmt.Errorf("%s: %w", name, ErrNonFinite))
			return
		}
		if positive && v <= 0 {
			err = errors.Join(err, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	check("scale", p.Scale, true)
	check("default rating", p.DefaultRating, false)
	check("default rd", p.DefaultRD, true)
	check("default volatility", p.DefaultVolatility, true)
	check("tau", p.Tau, true)
	check("tolerance", p.Tolerance, true)
	if p.MaxIterations <= 0 {
		err = errors.Join(err, fmt.Errorf("max iterations must be positive, got %d", p.MaxIterations))
	}
	return err
}

func (p Params) newPlayer() *playerState {
	return &playerState{
		Rating:     p.DefaultRating,
		RD:         p.DefaultRD,
		Volatility: p.DefaultVolatility,
	}
}

func (p Params) toMu(r float64) float64 {
	return (r - p.DefaultRating) / p.Scale
}

func (p Params) toPhi(rd float64) float64 {
	return rd / p.Scale
}

func (p Params) fromMu(mu float64) float64 {
	return mu*p.Scale + p.DefaultRating
}

func (p Params) fromPhi(phi float64) float64 {
	return phi * p.Scale
}
