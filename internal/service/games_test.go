package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/storage"
)

func intPtr(v int) *int {
	return &v
}

func TestSubmitGame_Validate(t *testing.T) {
	tests := []struct {
		name    string
		game    SubmitGame
		wantErr bool
	}{
		{
			name: "singles",
			game: SubmitGame{Date: "2024-01-01", Format: domain.FormatSingles, PlayerA: "a", PlayerB: "b", Winner: "a"},
		},
		{
			name: "doubles",
			game: SubmitGame{Date: "2024-01-01", Format: domain.FormatDoubles, PlayerA: "a & b", PlayerB: "c & d", Winner: "c & d"},
		},
		{
			name:    "bad date",
			game:    SubmitGame{Date: "01/01/2024", Format: domain.FormatSingles, PlayerA: "a", PlayerB: "b", Winner: "a"},
			wantErr: true,
		},
		{
			name:    "unknown format",
			game:    SubmitGame{Date: "2024-01-01", Format: "9-ball", PlayerA: "a", PlayerB: "b", Winner: "a"},
			wantErr: true,
		},
		{
			name:    "missing side",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatSingles, PlayerA: "a", Winner: "a"},
			wantErr: true,
		},
		{
			name:    "winner is not a side",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatSingles, PlayerA: "a", PlayerB: "b", Winner: "c"},
			wantErr: true,
		},
		{
			name:    "same player on both sides",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatSingles, PlayerA: "a", PlayerB: "a", Winner: "a"},
			wantErr: true,
		},
		{
			name:    "doubles with one player",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatDoubles, PlayerA: "a", PlayerB: "c & d", Winner: "a"},
			wantErr: true,
		},
		{
			name:    "doubles with repeated player",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatDoubles, PlayerA: "a & a", PlayerB: "c & d", Winner: "a & a"},
			wantErr: true,
		},
		{
			name:    "doubles sharing a player",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatDoubles, PlayerA: "a & b", PlayerB: "b & c", Winner: "a & b"},
			wantErr: true,
		},
		{
			name:    "too many balls",
			game:    SubmitGame{Date: "2024-01-01", Format: domain.FormatSingles, PlayerA: "a", PlayerB: "b", Winner: "a", BallsRemaining: intPtr(8)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.game.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGame)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRatingService_SubmitGame(t *testing.T) {
	s, st, n := newTestService()
	ctx := context.Background()
	opponent := st.addProfile("bob")

	game, err := s.SubmitGame(ctx, SubmitGame{
		PlayerA:    " alice ",
		PlayerB:    "bob",
		Winner:     "alice",
		OpponentID: opponent.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, game.Status)
	assert.Equal(t, domain.FormatSingles, game.Format)
	assert.Equal(t, "alice", game.PlayerA)
	assert.Equal(t, "Table 1", game.Table)
	assert.NotEmpty(t, game.Date)
	require.Len(t, n.submitted, 1)
	assert.Equal(t, game.ID, n.submitted[0].ID)

	stored, err := st.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, opponent.ID, stored.OpponentID)

	_, err = s.SubmitGame(ctx, SubmitGame{PlayerA: "alice", PlayerB: "bob", Winner: "carol"})
	assert.ErrorIs(t, err, ErrInvalidGame)
	assert.Len(t, n.submitted, 1)
}

func TestRatingService_VerifyGame(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		asOther  bool
		gameID   string
		wantErr  error
		wantGame bool
		verified bool
	}{
		{name: "accept", action: ActionAccept, wantGame: true, verified: true},
		{name: "reject", action: ActionReject},
		{name: "invalid action", action: "maybe", wantErr: ErrInvalidAction, wantGame: true},
		{name: "not the opponent", action: ActionAccept, asOther: true, wantErr: ErrForbidden, wantGame: true},
		{name: "unknown game", action: ActionAccept, gameID: "missing", wantErr: storage.ErrNotFound, wantGame: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st, n := newTestService()
			ctx := context.Background()
			st.addProfile("alice")
			bob := st.addProfile("bob")
			game, err := s.SubmitGame(ctx, SubmitGame{
				Date: "2024-01-01", PlayerA: "alice", PlayerB: "bob", Winner: "alice", OpponentID: bob.ID,
			})
			require.NoError(t, err)

			id := game.ID
			if tt.gameID != "" {
				id = tt.gameID
			}
			user := bob.ID
			if tt.asOther {
				user = uuid.New()
			}
			err = s.VerifyGame(ctx, id, tt.action, user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			stored, err := st.GetGame(ctx, game.ID)
			if !tt.wantGame {
				assert.ErrorIs(t, err, storage.ErrNotFound)
				return
			}
			require.NoError(t, err)
			if !tt.verified {
				assert.Equal(t, domain.StatusPending, stored.Status)
				assert.Empty(t, n.verified)
				return
			}
			assert.Equal(t, domain.StatusVerified, stored.Status)
			alice, err := st.GetProfileByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.InDelta(t, 1662.3108939062977, alice.Rating, 1e-9)

			require.Len(t, n.verified, 1)
			changes := n.verified[0].changes
			assert.InDelta(t, 162.3108939062977, changes["alice"].Delta, 1e-9)
			assert.InDelta(t, -162.3108939062977, changes["bob"].Delta, 1e-9)
		})
	}
}

func TestRatingService_VerifyGameWithoutOpponent(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	game, err := s.SubmitGame(ctx, SubmitGame{Date: "2024-01-01", PlayerA: "alice", PlayerB: "bob", Winner: "bob"})
	require.NoError(t, err)

	require.NoError(t, s.VerifyGame(ctx, game.ID, ActionAccept, uuid.New()))
	stored, err := st.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())
}

func TestRatingService_ListGames(t *testing.T) {
	s, st, _ := newTestService()
	ctx := context.Background()
	st.addGame("g1", "alice", "bob", "alice")
	st.addGame("g2", "carol", "bob", "carol")
	_, err := st.CreateGame(ctx, domain.Match{
		ID: "d1", Date: "2024-01-02", Format: domain.FormatDoubles,
		PlayerA: "alice & dave", PlayerB: "bob & carol", Winner: "bob & carol",
		Status: domain.StatusPending, CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		status domain.Status
		player string
		want   []string
	}{
		{name: "all newest first", want: []string{"d1", "g2", "g1"}},
		{name: "pending", status: domain.StatusPending, want: []string{"d1"}},
		{name: "verified", status: domain.StatusVerified, want: []string{"g2", "g1"}},
		{name: "player", player: "alice", want: []string{"d1", "g1"}},
		{name: "team member", player: " dave ", want: []string{"d1"}},
		{name: "pending for player", status: domain.StatusPending, player: "carol", want: []string{"d1"}},
		{name: "nobody", player: "erin", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			games, err := s.ListGames(ctx, tt.status, tt.player)
			require.NoError(t, err)
			ids := make([]string, 0, len(games))
			for _, g := range games {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err = s.ListGames(ctx, "done", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
