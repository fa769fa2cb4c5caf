package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/storage"
)

const exportVersion = 1

type export struct {
	Version  int
	Profiles []domain.Profile
	Games    []domain.Match
}

// Export dumps every profile and game, pending ones included.
func (s *RatingService) Export(ctx context.Context) ([]byte, error) {
	profiles, err := s.storage.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.storage.ListGames(ctx, storage.GameFilter{})
	if err != nil {
		return nil, err
	}
	return json.Marshal(export{
		Version:  exportVersion,
		Profiles: profiles,
		Games:    games,
	})
}

// Import loads an Export dump. Existing profiles and games are kept as they
// are; ratings are recomputed afterwards.
func (s *RatingService) Import(ctx context.Context, data []byte) (BackfillResult, error) {
	var importData export
	if err := json.Unmarshal(data, &importData); err != nil {
		return BackfillResult{}, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	if importData.Version != exportVersion {
		return BackfillResult{}, fmt.Errorf("%w: file version %d", ErrInvalidExport, importData.Version)
	}
	for _, p := range importData.Profiles {
		_, err := s.storage.GetProfileByUsername(ctx, p.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return BackfillResult{}, err
		}
		if _, err := s.storage.CreateProfile(ctx, p); err != nil {
			return BackfillResult{}, fmt.Errorf("profile %s: %w", p.Username, err)
		}
	}
	for _, g := range importData.Games {
		_, err := s.storage.GetGame(ctx, g.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return BackfillResult{}, err
		}
		if _, err := s.storage.CreateGame(ctx, g); err != nil {
			return BackfillResult{}, fmt.Errorf("game %s: %w", g.ID, err)
		}
	}
	return s.Backfill(ctx)
}
