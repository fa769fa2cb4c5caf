package storage

import (
	"context"
	"errors"

	"github.com/goserg/poolrating/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// GameFilter narrows ListGames. The zero value lists every game.
type GameFilter struct {
	Status domain.Status
}

type GameStorage interface {
	ListGames(ctx context.Context, filter GameFilter) ([]domain.Match, error)
	GetGame(ctx context.Context, id string) (domain.Match, error)
	CreateGame(ctx context.Context, game domain.Match) (domain.Match, error)
	SetGameStatus(ctx context.Context, id string, status domain.Status) error
	DeleteGame(ctx context.Context, id string) error
}

type ProfileStorage interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error)
	CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)
	// UpsertRatings writes recomputed ratings back to existing profiles.
	UpsertRatings(ctx context.Context, ratings []domain.ProfileRating) error
}

type Storage interface {
	GameStorage
	ProfileStorage
	Close() error
}
