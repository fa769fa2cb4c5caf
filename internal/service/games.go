package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/rating"
	"github.com/goserg/poolrating/internal/storage"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

const maxBallsRemaining = 7

type SubmitGame struct {
	Date           string
	Table          string
	Format         domain.Format
	PlayerA        string
	PlayerB        string
	Winner         string
	Score          string
	SubmittedBy    uuid.UUID
	OpponentID     uuid.UUID
	BallsRemaining *int
}

func (g *SubmitGame) normalize(now time.Time) {
	g.PlayerA = strings.TrimSpace(g.PlayerA)
	g.PlayerB = strings.TrimSpace(g.PlayerB)
	g.Winner = strings.TrimSpace(g.Winner)
	g.Table = strings.TrimSpace(g.Table)
	if g.Date == "" {
		g.Date = now.Format(domain.DateLayout)
	}
	if g.Format == "" {
		g.Format = domain.FormatSingles
	}
}

// Validate reports every problem with the game at once.
func (g SubmitGame) Validate() error {
	var errs []error
	if _, err := time.Parse(domain.DateLayout, g.Date); err != nil {
		errs = append(errs, fmt.Errorf("date %q is not YYYY-MM-DD", g.Date))
	}
	if g.Format != domain.FormatSingles && g.Format != domain.FormatDoubles {
		errs = append(errs, fmt.Errorf("unknown format %q", g.Format))
	}
	if g.PlayerA == "" {
		errs = append(errs, errors.New("player A is required"))
	}
	if g.PlayerB == "" {
		errs = append(errs, errors.New("player B is required"))
	}
	if g.Winner != g.PlayerA && g.Winner != g.PlayerB {
		errs = append(errs, errors.New("winner must be one of the sides"))
	}
	if g.BallsRemaining != nil && (*g.BallsRemaining < 0 || *g.BallsRemaining > maxBallsRemaining) {
		errs = append(errs, fmt.Errorf("balls remaining must be between 0 and %d", maxBallsRemaining))
	}
	if g.PlayerA != "" && g.PlayerB != "" {
		errs = append(errs, validateTeams(g.PlayerA, g.PlayerB, g.Format.IsTeam())...)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidGame, errors.Join(errs...))
}

func validateTeams(a, b string, isTeam bool) []error {
	var errs []error
	teamA := mapset.NewThreadUnsafeSet(rating.ParseTeam(a, isTeam)...)
	teamB := mapset.NewThreadUnsafeSet(rating.ParseTeam(b, isTeam)...)
	if isTeam {
		if teamA.Cardinality() != 2 {
			errs = append(errs, errors.New("side A needs two different players"))
		}
		if teamB.Cardinality() != 2 {
			errs = append(errs, errors.New("side B needs two different players"))
		}
	}
	if both := teamA.Intersect(teamB); both.Cardinality() > 0 {
		names := both.ToSlice()
		errs = append(errs, fmt.Errorf("players on both sides: %s", strings.Join(names, ", ")))
	}
	return errs
}

// ListGames returns games newest first. An empty status lists every game and
// a non-empty player keeps only games that player took part in.
func (s *RatingService) ListGames(ctx context.Context, status domain.Status, player string) ([]domain.Match, error) {
	if status != "" && status != domain.StatusPending && status != domain.StatusVerified {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	games, err := s.storage.ListGames(ctx, storage.GameFilter{Status: status})
	if err != nil {
		return nil, err
	}
	player = strings.TrimSpace(player)
	res := make([]domain.Match, 0, len(games))
	for _, g := range games {
		if player != "" && !onSide(g, g.PlayerA, player) && !onSide(g, g.PlayerB, player) {
			continue
		}
		res = append(res, g)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

// SubmitGame stores a pending game and tells the opponent about it.
func (s *RatingService) SubmitGame(ctx context.Context, g SubmitGame) (domain.Match, error) {
	g.normalize(time.Now())
	if err := g.Validate(); err != nil {
		return domain.Match{}, err
	}
	if g.Table == "" {
		g.Table = "Table 1"
	}
	game, err := s.storage.CreateGame(ctx, domain.Match{
		Date:           g.Date,
		Table:          g.Table,
		Format:         g.Format,
		PlayerA:        g.PlayerA,
		PlayerB:        g.PlayerB,
		Winner:         g.Winner,
		Score:          g.Score,
		Status:         domain.StatusPending,
		SubmittedBy:    g.SubmittedBy,
		OpponentID:     g.OpponentID,
		BallsRemaining: g.BallsRemaining,
	})
	if err != nil {
		return domain.Match{}, err
	}
	s.log.WithField("game_id", game.ID).Info("game submitted")
	if err := s.notifier.NotifyGameSubmitted(ctx, game); err != nil {
		s.log.WithError(err).WithField("game_id", game.ID).Error("notify game submitted")
	}
	return game, nil
}

// VerifyGame lets the opponent accept or reject a pending game. Accepting
// recomputes every rating from history.
func (s *RatingService) VerifyGame(ctx context.Context, gameID string, action Action, userID uuid.UUID) error {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.OpponentID != uuid.Nil && game.OpponentID != userID {
		return fmt.Errorf("%w: not the opponent of game %s", ErrForbidden, gameID)
	}

	log := s.log.WithFields(logrus.Fields{
		"game_id": gameID,
		"action":  action,
	})
	switch action {
	case ActionAccept:
		if err := s.storage.SetGameStatus(ctx, gameID, domain.StatusVerified); err != nil {
			return err
		}
	case ActionReject:
		if err := s.storage.DeleteGame(ctx, gameID); err != nil {
			return err
		}
		s.cache.Invalidate()
		log.Info("game rejected")
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if _, err := s.Backfill(ctx); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	log.Info("game verified")

	history, err := s.GameRatings(ctx)
	if err != nil {
		log.WithError(err).Error("load rating changes")
		return nil
	}
	game.Status = domain.StatusVerified
	if err := s.notifier.NotifyGameVerified(ctx, game, history[gameID]); err != nil {
		log.WithError(err).Error("notify game verified")
	}
	return nil
}

// CreateProfile registers a player name so backfills can persist its rating.
func (s *RatingService) CreateProfile(ctx context.Context, username, email string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Profile{}, fmt.Errorf("%w: username is required", ErrInvalidProfile)
	}
	if strings.Contains(username, strings.TrimSpace(domain.TeamSeparator)) {
		return domain.Profile{}, fmt.Errorf("%w: username must not contain %q", ErrInvalidProfile, domain.TeamSeparator)
	}
	p, err := s.storage.CreateProfile(ctx, domain.Profile{
		Username: username,
		Email:    strings.TrimSpace(email),
	})
	if err != nil {
		return domain.Profile{}, err
	}
	s.cache.Invalidate()
	return p, nil
}
