package rating

import (
	"fmt"
	"sort"

	"github.com/goserg/poolrating/internal/domain"
)

type SkipReason string

const (
	SkipMissingSide    SkipReason = "missing side"
	SkipMissingWinner  SkipReason = "missing winner"
	SkipEmptyTeam      SkipReason = "empty team"
	SkipWinnerMismatch SkipReason = "winner matches neither side"
)

// Engine replays a game history from default ratings. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	params Params
	onSkip func(domain.Match, SkipReason)
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// OnSkip returns a copy of the engine that reports every malformed game it
// skips. Skipping itself is unaffected.
func (e *Engine) OnSkip(fn func(domain.Match, SkipReason)) *Engine {
	c := *e
	c.onSkip = fn
	return &c
}

func (e *Engine) Params() Params {
	return e.params
}

// ComputeFinalRatings returns the state of every player referenced by an
// eligible game after the whole history is replayed.
func (e *Engine) ComputeFinalRatings(matches []domain.Match) (map[string]domain.PlayerRating, error) {
	r := e.newReplay(false)
	if err := r.run(matches); err != nil {
		return nil, err
	}
	result := make(map[string]domain.PlayerRating, len(r.players))
	for name, state := range r.players {
		result[name] = domain.PlayerRating(*state)
	}
	return result, nil
}

// ComputeRatingHistory returns, for every applied game, each participant's
// rating after the game and its change.
func (e *Engine) ComputeRatingHistory(matches []domain.Match) (domain.RatingHistory, error) {
	r := e.newReplay(true)
	if err := r.run(matches); err != nil {
		return nil, err
	}
	return r.history, nil
}

var defaultEngine = NewEngine(DefaultParams())

func ComputeFinalRatings(matches []domain.Match) (map[string]domain.PlayerRating, error) {
	return defaultEngine.ComputeFinalRatings(matches)
}

func ComputeRatingHistory(matches []domain.Match) (domain.RatingHistory, error) {
	return defaultEngine.ComputeRatingHistory(matches)
}

// Eligible returns the verified games sorted in replay order. The input is
// not modified.
func Eligible(matches []domain.Match) []domain.Match {
	eligible := make([]domain.Match, 0, len(matches))
	for i := range matches {
		if matches[i].IsVerified() {
			eligible = append(eligible, matches[i])
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return replayBefore(eligible[i], eligible[j])
	})
	return eligible
}

// replayBefore orders by day, then by creation time within the day. The id
// breaks exact ties so that input order never matters.
func replayBefore(a, b domain.Match) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

type replay struct {
	params  Params
	onSkip  func(domain.Match, SkipReason)
	players map[string]*playerState
	history domain.RatingHistory
}

func (e *Engine) newReplay(withHistory bool) *replay {
	r := &replay{
		params:  e.params,
		onSkip:  e.onSkip,
		players: make(map[string]*playerState),
	}
	if withHistory {
		r.history = make(domain.RatingHistory)
	}
	return r
}

func (r *replay) run(matches []domain.Match) error {
	for _, m := range Eligible(matches) {
		reason, err := r.apply(m)
		if err != nil {
			return fmt.Errorf("game %s: %w", m.ID, err)
		}
		if reason != "" && r.onSkip != nil {
			r.onSkip(m, reason)
		}
	}
	return nil
}

func (r *replay) ensure(name string) *playerState {
	p, ok := r.players[name]
	if !ok {
		p = r.params.newPlayer()
		r.players[name] = p
	}
	return p
}

func (r *replay) team(names []string) TeamRating {
	members := make([]domain.PlayerRating, 0, len(names))
	for _, name := range names {
		members = append(members, domain.PlayerRating(*r.ensure(name)))
	}
	return AverageTeam(members)
}

func (r *replay) apply(m domain.Match) (SkipReason, error) {
	if m.PlayerA == "" || m.PlayerB == "" {
		return SkipMissingSide, nil
	}
	if m.Winner == "" {
		return SkipMissingWinner, nil
	}
	isTeam := m.Format.IsTeam()
	teamA := ParseTeam(m.PlayerA, isTeam)
	teamB := ParseTeam(m.PlayerB, isTeam)
	if len(teamA) == 0 || len(teamB) == 0 {
		return SkipEmptyTeam, nil
	}
	aWon := m.Winner == m.PlayerA
	bWon := m.Winner == m.PlayerB
	if !aWon && !bWon {
		return SkipWinnerMismatch, nil
	}

	participants := make([]string, 0, len(teamA)+len(teamB))
	participants = append(participants, teamA...)
	participants = append(participants, teamB...)
	before := make(map[string]float64, len(participants))
	for _, name := range participants {
		p := r.ensure(name)
		if !p.finite() {
			return "", fmt.Errorf("player %q: %w", name, ErrNonFinite)
		}
		before[name] = p.Rating
	}

	sideA := r.team(teamA)
	sideB := r.team(teamB)

	for _, name := range teamA {
		if err := r.params.rate(r.players[name], sideB, score(aWon)); err != nil {
			return "", fmt.Errorf("player %q: %w", name, err)
		}
	}
	for _, name := range teamB {
		if err := r.params.rate(r.players[name], sideA, score(bWon)); err != nil {
			return "", fmt.Errorf("player %q: %w", name, err)
		}
	}

	// Teammates share the pre-game team volatility.
	for _, name := range teamA {
		r.players[name].Volatility = sideA.Volatility
	}
	for _, name := range teamB {
		r.players[name].Volatility = sideB.Volatility
	}

	if r.history != nil {
		snapshots := make(map[string]domain.RatingSnapshot, len(participants))
		for _, name := range participants {
			after := r.players[name].Rating
			snapshots[name] = domain.RatingSnapshot{
				Rating: after,
				Delta:  after - before[name],
			}
		}
		r.history[m.ID] = snapshots
	}
	return "", nil
}

func score(won bool) float64 {
	if won {
		return 1
	}
	return 0
}
