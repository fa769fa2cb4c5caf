package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/cache/mem"
	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/rating"
	"github.com/goserg/poolrating/internal/storage"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidAction  = errors.New("invalid action")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidGame    = errors.New("invalid game")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidExport  = errors.New("invalid export")
)

type RatingService struct {
	storage         storage.Storage
	engine          *rating.Engine
	cache           *mem.Cache
	notifier        Notifier
	streakThreshold int
	log             *logrus.Entry
}

func New(l *logrus.Logger, st storage.Storage, cfg config.Rating) *RatingService {
	log := l.WithFields(map[string]interface{}{
		"from": "rating-service",
	})
	engine := rating.NewEngine(cfg.Params()).OnSkip(func(m domain.Match, reason rating.SkipReason) {
		log.WithFields(logrus.Fields{
			"game_id": m.ID,
			"reason":  reason,
		}).Debug("game skipped")
	})
	threshold := cfg.StreakThreshold
	if threshold <= 0 {
		threshold = 3
	}
	return &RatingService{
		storage:         st,
		engine:          engine,
		cache:           mem.New(),
		notifier:        NewLogNotifier(l),
		streakThreshold: threshold,
		log:             log,
	}
}

// SetNotifier replaces the delivery channel for game events.
func (s *RatingService) SetNotifier(n Notifier) {
	s.notifier = n
}

type BackfillResult struct {
	Games   int      `json:"games"`
	Updated int      `json:"updated"`
	Missing []string `json:"missing,omitempty"`
}

func (r BackfillResult) String() string {
	return fmt.Sprintf("Processed %d games and updated %d profiles.", r.Games, r.Updated)
}

// Backfill recomputes every rating from the verified history and writes the
// result back to the matching profiles.
func (s *RatingService) Backfill(ctx context.Context) (BackfillResult, error) {
	games, err := s.verifiedGames(ctx)
	if err != nil {
		return BackfillResult{}, err
	}
	s.log.WithField("games", len(games)).Info("starting rating backfill")

	ratings, err := s.engine.ComputeFinalRatings(games)
	if err != nil {
		return BackfillResult{}, err
	}
	profiles, err := s.storage.ListProfiles(ctx)
	if err != nil {
		return BackfillResult{}, err
	}
	byName := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byName[p.Username] = p
	}

	result := BackfillResult{Games: len(games)}
	updates := make([]domain.ProfileRating, 0, len(ratings))
	for name, r := range ratings {
		p, ok := byName[name]
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}
		updates = append(updates, domain.ProfileRating{
			ProfileID:    p.ID,
			Username:     name,
			PlayerRating: r,
		})
	}
	sort.Strings(result.Missing)
	for _, name := range result.Missing {
		s.log.WithField("username", name).Warn("profile not found")
	}
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Username < updates[j].Username
	})

	if len(updates) > 0 {
		if err := s.storage.UpsertRatings(ctx, updates); err != nil {
			return BackfillResult{}, fmt.Errorf("update profiles: %w", err)
		}
	}
	result.Updated = len(updates)
	s.cache.Invalidate()
	s.log.WithFields(logrus.Fields{
		"games":   result.Games,
		"updated": result.Updated,
		"missing": len(result.Missing),
	}).Info("rating backfill done")
	return result, nil
}

func (s *RatingService) verifiedGames(ctx context.Context) ([]domain.Match, error) {
	return s.storage.ListGames(ctx, storage.GameFilter{Status: domain.StatusVerified})
}

func (s *RatingService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if entries, ok := s.cache.Get(); ok {
		return entries, nil
	}
	gen := s.cache.Generation()
	games, err := s.verifiedGames(ctx)
	if err != nil {
		return nil, err
	}
	ratings, err := s.engine.ComputeFinalRatings(games)
	if err != nil {
		return nil, err
	}
	profiles, err := s.storage.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	params := s.engine.Params()
	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		record, ok := ratings[p.Username]
		if !ok {
			record = domain.PlayerRating{
				Rating:     orDefault(p.Rating, params.DefaultRating),
				RD:         orDefault(p.RD, params.DefaultRD),
				Volatility: orDefault(p.Volatility, params.DefaultVolatility),
				Streak:     p.Streak,
			}
		}
		played := record.GamesPlayed()
		if played == 0 {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Player:      p.Username,
			Rating:      int(math.Round(record.Rating)),
			RD:          int(math.Round(record.RD)),
			Wins:        record.Wins,
			Losses:      record.Losses,
			Streak:      record.Streak,
			GamesPlayed: played,
			WinRate:     int(math.Round(float64(record.Wins) / float64(played) * 100)),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].WinRate > entries[j].WinRate
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if !s.cache.Update(gen, entries) {
		s.log.Debug("leaderboard changed while computing, not cached")
	}
	return entries, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// StreakLeaders returns leaderboard players on a winning streak of at least
// min games. A non-positive min uses the configured threshold.
func (s *RatingService) StreakLeaders(ctx context.Context, min int) ([]domain.LeaderboardEntry, error) {
	if min <= 0 {
		min = s.streakThreshold
	}
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	leaders := make([]domain.LeaderboardEntry, 0)
	for _, e := range entries {
		if e.Streak >= min {
			leaders = append(leaders, e)
		}
	}
	sort.SliceStable(leaders, func(i, j int) bool {
		if leaders[i].Streak != leaders[j].Streak {
			return leaders[i].Streak > leaders[j].Streak
		}
		return leaders[i].Player < leaders[j].Player
	})
	return leaders, nil
}

// FindPlayer looks a leaderboard row up by name, ignoring case.
func (s *RatingService) FindPlayer(ctx context.Context, name string) (domain.LeaderboardEntry, error) {
	if _, err := s.Leaderboard(ctx); err != nil {
		return domain.LeaderboardEntry{}, err
	}
	entry, ok := s.cache.GetPlayerByName(strings.TrimSpace(name))
	if !ok {
		return domain.LeaderboardEntry{}, storage.ErrNotFound
	}
	return entry, nil
}

// PlayerHistory returns one point per applied game the player took part in,
// in replay order.
func (s *RatingService) PlayerHistory(ctx context.Context, username string) ([]domain.HistoryPoint, error) {
	games, err := s.verifiedGames(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.engine.ComputeRatingHistory(games)
	if err != nil {
		return nil, err
	}

	points := make([]domain.HistoryPoint, 0)
	for _, g := range rating.Eligible(games) {
		snap, ok := history[g.ID][username]
		if !ok {
			continue
		}
		own, other := g.PlayerA, g.PlayerB
		if !onSide(g, g.PlayerA, username) {
			own, other = g.PlayerB, g.PlayerA
		}
		points = append(points, domain.HistoryPoint{
			GameID:   g.ID,
			Date:     g.Date,
			Rating:   snap.Rating,
			Delta:    snap.Delta,
			Opponent: other,
			Won:      g.Winner == own,
		})
	}
	if len(points) == 0 {
		if _, err := s.storage.GetProfileByUsername(ctx, username); err != nil {
			return nil, err
		}
	}
	return points, nil
}

func onSide(g domain.Match, side, username string) bool {
	for _, name := range rating.ParseTeam(side, g.Format.IsTeam()) {
		if name == username {
			return true
		}
	}
	return false
}

func (s *RatingService) GameRatings(ctx context.Context) (domain.RatingHistory, error) {
	games, err := s.verifiedGames(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputeRatingHistory(games)
}

type Odds struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Odds estimates the chance of each side winning from current ratings.
// Players without a rated game count as new players.
func (s *RatingService) Odds(ctx context.Context, a, b string, format domain.Format) (Odds, error) {
	if format == "" {
		format = domain.FormatSingles
	}
	teamA := rating.ParseTeam(strings.TrimSpace(a), format.IsTeam())
	teamB := rating.ParseTeam(strings.TrimSpace(b), format.IsTeam())
	if isEmptyTeam(teamA) || isEmptyTeam(teamB) {
		return Odds{}, fmt.Errorf("%w: both sides are required", ErrInvalidGame)
	}

	games, err := s.verifiedGames(ctx)
	if err != nil {
		return Odds{}, err
	}
	ratings, err := s.engine.ComputeFinalRatings(games)
	if err != nil {
		return Odds{}, err
	}
	params := s.engine.Params()
	team := func(names []string) rating.TeamRating {
		members := make([]domain.PlayerRating, 0, len(names))
		for _, name := range names {
			r, ok := ratings[name]
			if !ok {
				r = domain.PlayerRating{
					Rating:     params.DefaultRating,
					RD:         params.DefaultRD,
					Volatility: params.DefaultVolatility,
				}
			}
			members = append(members, r)
		}
		return rating.AverageTeam(members)
	}
	ta, tb := team(teamA), team(teamB)
	return Odds{
		A: params.ExpectedScore(ta, tb),
		B: params.ExpectedScore(tb, ta),
	}, nil
}

func isEmptyTeam(names []string) bool {
	return len(names) == 0 || (len(names) == 1 && names[0] == "")
}
