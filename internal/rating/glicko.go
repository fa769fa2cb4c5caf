package rating

import (
	"errors"
	"fmt"
	"math"

	"github.com/goserg/poolrating/internal/domain"
)

var (
	ErrNonFinite    = errors.New("non-finite rating value")
	ErrNotConverged = errors.New("volatility iteration did not converge")

	// ErrSaturated is returned when the rating gap is so wide that the
	// expected score rounds to 0 or 1 and the update is undefined.
	ErrSaturated = errors.New("expected score saturated")
)

// G discounts an opponent's impact by its rating uncertainty.
func G(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// E is the expected score of a player with mean mu against an opponent with
// mean muOpp and deviation phiOpp.
func E(mu, muOpp, phiOpp float64) float64 {
	return 1 / (1 + math.Exp(-G(phiOpp)*(mu-muOpp)))
}

// Volatility solves the Glicko-2 volatility equation for the new sigma using
// the Illinois variant of regula falsi.
func (p Params) Volatility(phi, sigma, delta, v float64) (float64, error) {
	a := math.Log(sigma * sigma)
	tau2 := p.Tau * p.Tau
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex
		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/tau2
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1
		for f(a-float64(k)*p.Tau) < 0 {
			k++
			if k > p.MaxIterations {
				return 0, fmt.Errorf("bracket search: %w", ErrNotConverged)
			}
		}
		B = a - float64(k)*p.Tau
	}

	fA, fB := f(A), f(B)
	for i := 0; math.Abs(B-A) > p.Tolerance; i++ {
		if i >= p.MaxIterations {
			return 0, fmt.Errorf("after %d iterations: %w", i, ErrNotConverged)
		}
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB < 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	sigmaPrime := math.Exp(A / 2)
	if !finite(sigmaPrime) {
		return 0, fmt.Errorf("volatility: %w", ErrNonFinite)
	}
	return sigmaPrime, nil
}

// rate applies a single-game Glicko-2 update of pl against one virtual opponent.
func (p Params) rate(pl *playerState, opp TeamRating, score float64) error {
	mu := p.toMu(pl.Rating)
	phi := p.toPhi(pl.RD)
	muOpp := p.toMu(opp.Rating)
	phiOpp := p.toPhi(opp.RD)

	g := G(phiOpp)
	e := E(mu, muOpp, phiOpp)
	if e <= 0 || e >= 1 {
		return fmt.Errorf("%w at %v", ErrSaturated, e)
	}
	v := 1 / (g * g * e * (1 - e))
	delta := v * g * (score - e)

	sigmaPrime, err := p.Volatility(phi, pl.Volatility, delta, v)
	if err != nil {
		return err
	}
	phiStar := math.Sqrt(phi*phi + sigmaPrime*sigmaPrime)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*g*(score-e)

	pl.Rating = p.fromMu(muPrime)
	pl.RD = p.fromPhi(phiPrime)
	pl.Volatility = sigmaPrime
	if !finite(pl.Rating) || !finite(pl.RD) {
		return ErrNonFinite
	}
	pl.record(score == 1)
	return nil
}

// ExpectedScore is the probability that side a beats side b.
func (p Params) ExpectedScore(a, b TeamRating) float64 {
	return E(p.toMu(a.Rating), p.toMu(b.Rating), p.toPhi(b.RD))
}

type playerState domain.PlayerRating

// record updates the win/loss counters. A streak in the opposite direction
// restarts at magnitude one.
func (s *playerState) record(won bool) {
	if won {
		s.Wins++
		if s.Streak > 0 {
			s.Streak++
		} else {
			s.Streak = 1
		}
		return
	}
	s.Losses++
	if s.Streak < 0 {
		s.Streak--
	} else {
		s.Streak = -1
	}
}

func (s *playerState) finite() bool {
	return finite(s.Rating) && finite(s.RD) && finite(s.Volatility)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
