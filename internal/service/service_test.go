package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/storage"
)

func TestRatingService_Backfill(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	st.addGame("g1", "alice", "bob", "alice")
	st.addGame("g2", "alice", "ghost", "alice")
	_, err := st.CreateGame(ctx, domain.Match{
		ID: "pending", Date: "2024-01-02", PlayerA: "bob", PlayerB: "alice", Winner: "bob",
	})
	require.NoError(t, err)

	result, err := s.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Games: 2, Updated: 2, Missing: []string{"ghost"}}, result)
	assert.Equal(t, "Processed 2 games and updated 2 profiles.", result.String())

	alice, err := st.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.Wins)
	assert.Equal(t, 2, alice.Streak)
	bob, err := st.GetProfileByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, bob.Losses)
	assert.Equal(t, -1, bob.Streak)
}

func TestRatingService_BackfillWithoutGames(t *testing.T) {
	s, st, _ := newTestService()
	st.addProfile("alice")

	result, err := s.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, st.upserts)
}

func TestRatingService_Leaderboard(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	st.addProfile("carol")
	st.addGame("g1", "alice", "bob", "alice")

	entries, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LeaderboardEntry{
		Rank: 1, Player: "alice", Rating: 1662, RD: 290, Wins: 1, Streak: 1, GamesPlayed: 1, WinRate: 100,
	}, entries[0])
	assert.Equal(t, domain.LeaderboardEntry{
		Rank: 2, Player: "bob", Rating: 1338, RD: 290, Losses: 1, Streak: -1, GamesPlayed: 1, WinRate: 0,
	}, entries[1])

	// served from cache until the next backfill
	st.addGame("g2", "carol", "alice", "carol")
	cached, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	_, err = s.Backfill(ctx)
	require.NoError(t, err)
	fresh, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestRatingService_LeaderboardRecomputedAfterConcurrentVerify(t *testing.T) {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	st := newGatedStorage()
	s := New(l, st, config.Rating{})
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	game, err := st.CreateGame(ctx, domain.Match{
		Date: "2024-01-01", Format: domain.FormatSingles,
		PlayerA: "alice", PlayerB: "bob", Winner: "alice",
		Status: domain.StatusPending, CreatedAt: base,
	})
	require.NoError(t, err)

	done := make(chan []domain.LeaderboardEntry)
	go func() {
		entries, _ := s.Leaderboard(ctx)
		done <- entries
	}()
	<-st.entered
	require.NoError(t, s.VerifyGame(ctx, game.ID, ActionAccept, uuid.Nil))
	close(st.release)
	assert.Empty(t, <-done, "computed before the game was verified")

	entries, err := s.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Player)
}

func TestRatingService_LeaderboardIgnoresStoredRecords(t *testing.T) {
	s, st, _ := newTestService()
	st.addProfile("alice")
	st.addProfile("bob")
	st.mu.Lock()
	st.profiles["alice"] = withRecord(st.profiles["alice"], 1500, 1, 1)
	st.profiles["bob"] = withRecord(st.profiles["bob"], 1500.2, 0, 2)
	st.mu.Unlock()

	entries, err := s.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "profiles without replayed games are not ranked")
}

func withRecord(p domain.Profile, r float64, wins, losses int) domain.Profile {
	p.Rating = r
	p.Wins = wins
	p.Losses = losses
	return p
}

func TestRatingService_StreakLeaders(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	for _, id := range []string{"g1", "g2", "g3"} {
		st.addGame(id, "alice", "bob", "alice")
	}

	tests := []struct {
		name string
		min  int
		want []string
	}{
		{name: "default threshold", min: 0, want: []string{"alice"}},
		{name: "above streak", min: 4, want: []string{}},
		{name: "low threshold", min: 1, want: []string{"alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaders, err := s.StreakLeaders(ctx, tt.min)
			require.NoError(t, err)
			names := make([]string, 0, len(leaders))
			for _, l := range leaders {
				names = append(names, l.Player)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRatingService_FindPlayer(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("Alice")
	st.addProfile("bob")
	st.addGame("g1", "Alice", "bob", "Alice")

	entry, err := s.FindPlayer(ctx, " alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", entry.Player)

	_, err = s.FindPlayer(ctx, "carol")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRatingService_PlayerHistory(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	st.addProfile("carol")
	st.addGame("g1", "alice", "bob", "alice")
	st.addGame("g2", "bob", "alice", "bob")

	points, err := s.PlayerHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "g1", points[0].GameID)
	assert.Equal(t, "bob", points[0].Opponent)
	assert.True(t, points[0].Won)
	assert.InDelta(t, 162.3108939062977, points[0].Delta, 1e-9)
	assert.False(t, points[1].Won)
	assert.Less(t, points[1].Delta, 0.0)
	assert.InDelta(t, points[0].Rating+points[1].Delta, points[1].Rating, 1e-9)

	empty, err := s.PlayerHistory(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.PlayerHistory(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRatingService_PlayerHistoryDoubles(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	_, err := st.CreateGame(ctx, domain.Match{
		ID: "d1", Date: "2024-01-01", Format: domain.FormatDoubles,
		PlayerA: "a & b", PlayerB: "c & d", Winner: "c & d",
		Status: domain.StatusVerified, CreatedAt: base,
	})
	require.NoError(t, err)

	points, err := s.PlayerHistory(ctx, "b")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "c & d", points[0].Opponent)
	assert.False(t, points[0].Won)
}

func TestRatingService_GameRatings(t *testing.T) {
	s, st, _ := newTestService()
	st.addGame("g1", "alice", "bob", "alice")

	history, err := s.GameRatings(context.Background())
	require.NoError(t, err)
	require.Contains(t, history, "g1")
	assert.InDelta(t, 1662.3108939062977, history["g1"]["alice"].Rating, 1e-9)
	assert.InDelta(t, -162.3108939062977, history["g1"]["bob"].Delta, 1e-9)
}

func TestRatingService_Odds(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()

	even, err := s.Odds(ctx, "alice", "bob", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, even.A, 1e-12)
	assert.InDelta(t, 0.5, even.B, 1e-12)

	st.addGame("g1", "alice", "bob", "alice")
	odds, err := s.Odds(ctx, "alice", "bob", domain.FormatSingles)
	require.NoError(t, err)
	assert.Greater(t, odds.A, 0.5)
	assert.Less(t, odds.B, 0.5)
	assert.InDelta(t, 1, odds.A+odds.B, 1e-9)

	_, err = s.Odds(ctx, "", "bob", domain.FormatSingles)
	assert.ErrorIs(t, err, ErrInvalidGame)
	_, err = s.Odds(ctx, " & ", "c & d", domain.FormatDoubles)
	assert.ErrorIs(t, err, ErrInvalidGame)
}

func TestRatingService_ExportImport(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addProfile("alice")
	st.addProfile("bob")
	st.addGame("g1", "alice", "bob", "alice")

	data, err := s.Export(ctx)
	require.NoError(t, err)

	target, targetStorage, _ := newTestService()
	result, err := target.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Games)
	assert.Equal(t, 2, result.Updated)

	alice, err := targetStorage.GetProfileByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.Wins)

	// importing twice keeps existing rows
	_, err = target.Import(ctx, data)
	require.NoError(t, err)
	games, err := targetStorage.ListGames(ctx, storage.GameFilter{})
	require.NoError(t, err)
	assert.Len(t, games, 1)

	bad, err := json.Marshal(map[string]int{"Version": 99})
	require.NoError(t, err)
	_, err = target.Import(ctx, bad)
	assert.Error(t, err)
}

func TestRatingService_CreateProfile(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	p, err := s.CreateProfile(ctx, " alice ", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, 1500.0, p.Rating)

	_, err = s.CreateProfile(ctx, "", "")
	assert.Error(t, err)
	_, err = s.CreateProfile(ctx, "a & b", "")
	assert.Error(t, err)
}
