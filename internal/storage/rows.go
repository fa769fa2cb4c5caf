package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/rating"
)

const (
	GameColumns    = "id, game_date, table_name, format, player_a, player_b, winner, score, opponent_id, submitted_by, balls_remaining, status, created_at"
	ProfileColumns = "id, username, email, rating, rd, vol, wins, losses, streak, created_at"

	defaultTable = "Table 1"
)

// GameRow mirrors the games table. Most columns are nullable because rows
// come from older clients that did not fill them.
type GameRow struct {
	ID             string
	Date           sql.NullString
	Table          sql.NullString
	Format         sql.NullString
	PlayerA        sql.NullString
	PlayerB        sql.NullString
	Winner         sql.NullString
	Score          sql.NullString
	OpponentID     uuid.NullUUID
	SubmittedBy    uuid.NullUUID
	BallsRemaining sql.NullInt64
	Status         sql.NullString
	CreatedAt      time.Time
}

// Dest returns scan destinations in GameColumns order.
func (r *GameRow) Dest() []any {
	return []any{
		&r.ID, &r.Date, &r.Table, &r.Format, &r.PlayerA, &r.PlayerB, &r.Winner, &r.Score,
		&r.OpponentID, &r.SubmittedBy, &r.BallsRemaining, &r.Status, &r.CreatedAt,
	}
}

// Args returns insert arguments in GameColumns order.
func (r *GameRow) Args() []any {
	return []any{
		r.ID, r.Date, r.Table, r.Format, r.PlayerA, r.PlayerB, r.Winner, r.Score,
		r.OpponentID, r.SubmittedBy, r.BallsRemaining, r.Status, r.CreatedAt,
	}
}

func (r GameRow) ToDomain() domain.Match {
	m := domain.Match{
		ID:          r.ID,
		Date:        r.Date.String,
		Table:       r.Table.String,
		Format:      domain.Format(r.Format.String),
		PlayerA:     r.PlayerA.String,
		PlayerB:     r.PlayerB.String,
		Winner:      r.Winner.String,
		Score:       r.Score.String,
		CreatedAt:   r.CreatedAt,
		Status:      domain.Status(r.Status.String),
		SubmittedBy: r.SubmittedBy.UUID,
		OpponentID:  r.OpponentID.UUID,
	}
	if !r.Table.Valid {
		m.Table = defaultTable
	}
	if !r.Format.Valid {
		m.Format = domain.FormatSingles
	}
	if !r.Status.Valid {
		m.Status = domain.StatusVerified
	}
	if r.BallsRemaining.Valid {
		balls := int(r.BallsRemaining.Int64)
		m.BallsRemaining = &balls
	}
	return m
}

func GameRowFromDomain(m domain.Match) GameRow {
	r := GameRow{
		ID:          m.ID,
		Date:        nullString(m.Date),
		Table:       nullString(m.Table),
		Format:      nullString(string(m.Format)),
		PlayerA:     nullString(m.PlayerA),
		PlayerB:     nullString(m.PlayerB),
		Winner:      nullString(m.Winner),
		Score:       nullString(m.Score),
		OpponentID:  nullUUID(m.OpponentID),
		SubmittedBy: nullUUID(m.SubmittedBy),
		Status:      nullString(string(m.Status)),
		CreatedAt:   m.CreatedAt,
	}
	if m.BallsRemaining != nil {
		r.BallsRemaining = sql.NullInt64{Int64: int64(*m.BallsRemaining), Valid: true}
	}
	return r
}

// PrepareNewGame assigns an id and a creation time to a game about to be stored.
func PrepareNewGame(m domain.Match, now time.Time) domain.Match {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.Status == "" {
		m.Status = domain.StatusPending
	}
	return m
}

// PrepareNewProfile fills the id, registration time and starting rating of a new profile.
func PrepareNewProfile(p domain.Profile, now time.Time) domain.Profile {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = now
	}
	if p.Rating == 0 && p.RD == 0 && p.Volatility == 0 {
		def := rating.DefaultParams()
		p.Rating, p.RD, p.Volatility = def.DefaultRating, def.DefaultRD, def.DefaultVolatility
	}
	return p
}

type ProfileRow struct {
	domain.Profile
}

func (r *ProfileRow) Dest() []any {
	return []any{
		&r.ID, &r.Username, &r.Email, &r.Rating, &r.RD, &r.Volatility,
		&r.Wins, &r.Losses, &r.Streak, &r.RegisteredAt,
	}
}

func (r *ProfileRow) Args() []any {
	return []any{
		r.ID, r.Username, r.Email, r.Rating, r.RD, r.Volatility,
		r.Wins, r.Losses, r.Streak, r.RegisteredAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
