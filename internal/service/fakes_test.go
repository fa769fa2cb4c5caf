package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/storage"
)

type fakeStorage struct {
	mu       sync.Mutex
	games    map[string]domain.Match
	profiles map[string]domain.Profile
	upserts  int
}

var _ storage.Storage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		games:    make(map[string]domain.Match),
		profiles: make(map[string]domain.Profile),
	}
}

func (f *fakeStorage) ListGames(_ context.Context, filter storage.GameFilter) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var games []domain.Match
	for _, g := range f.games {
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

func (f *fakeStorage) GetGame(_ context.Context, id string) (domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return domain.Match{}, storage.ErrNotFound
	}
	return g, nil
}

func (f *fakeStorage) CreateGame(_ context.Context, game domain.Match) (domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	game = storage.PrepareNewGame(game, time.Now())
	f.games[game.ID] = game
	return game, nil
}

func (f *fakeStorage) SetGameStatus(_ context.Context, id string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return storage.ErrNotFound
	}
	g.Status = status
	f.games[id] = g
	return nil
}

func (f *fakeStorage) DeleteGame(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.games[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.games, id)
	return nil
}

func (f *fakeStorage) ListProfiles(_ context.Context) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profiles := make([]domain.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Username < profiles[j].Username
	})
	return profiles, nil
}

func (f *fakeStorage) GetProfileByUsername(_ context.Context, username string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[username]
	if !ok {
		return domain.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStorage) CreateProfile(_ context.Context, profile domain.Profile) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile = storage.PrepareNewProfile(profile, time.Now())
	f.profiles[profile.Username] = profile
	return profile, nil
}

func (f *fakeStorage) UpsertRatings(_ context.Context, ratings []domain.ProfileRating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	for _, r := range ratings {
		p := f.profiles[r.Username]
		p.PlayerRating = r.PlayerRating
		f.profiles[r.Username] = p
	}
	return nil
}

func (f *fakeStorage) Close() error {
	return nil
}

type verifiedEvent struct {
	game    domain.Match
	changes map[string]domain.RatingSnapshot
}

type fakeNotifier struct {
	submitted []domain.Match
	verified  []verifiedEvent
}

func (n *fakeNotifier) NotifyGameSubmitted(_ context.Context, game domain.Match) error {
	n.submitted = append(n.submitted, game)
	return nil
}

func (n *fakeNotifier) NotifyGameVerified(_ context.Context, game domain.Match, changes map[string]domain.RatingSnapshot) error {
	n.verified = append(n.verified, verifiedEvent{game: game, changes: changes})
	return nil
}

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*RatingService, *fakeStorage, *fakeNotifier) {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	st := newFakeStorage()
	n := &fakeNotifier{}
	s := New(l, st, config.Rating{})
	s.SetNotifier(n)
	return s, st, n
}

// gatedStorage holds the first ListProfiles call until release is closed.
type gatedStorage struct {
	*fakeStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStorage() *gatedStorage {
	return &gatedStorage{
		fakeStorage: newFakeStorage(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStorage) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.fakeStorage.ListProfiles(ctx)
}

func (f *fakeStorage) addProfile(name string) domain.Profile {
	p, _ := f.CreateProfile(context.Background(), domain.Profile{Username: name})
	return p
}

// addGame stores a verified singles game; games added later replay later.
func (f *fakeStorage) addGame(id, a, b, winner string) domain.Match {
	f.mu.Lock()
	n := len(f.games)
	f.mu.Unlock()
	g, _ := f.CreateGame(context.Background(), domain.Match{
		ID:        id,
		Date:      "2024-01-01",
		Format:    domain.FormatSingles,
		PlayerA:   a,
		PlayerB:   b,
		Winner:    winner,
		Status:    domain.StatusVerified,
		CreatedAt: base.Add(time.Duration(n) * time.Minute),
	})
	return g
}
