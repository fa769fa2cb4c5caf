package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // postgresql driver for migrations
	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/migrate"
	"github.com/goserg/poolrating/internal/storage"
)

type Storage struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

func New(ctx context.Context, l *logrus.Logger, cfg config.Storage) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "postgres-storage",
	})
	if err := up(cfg.PostgresURL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("storage connected")
	return &Storage{
		pool: pool,
		log:  log,
	}, nil
}

// up runs migrations over a short-lived database/sql handle, which is what
// the migrate driver expects.
func up(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrate.UpPostgres(db)
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) ListGames(ctx context.Context, filter storage.GameFilter) ([]domain.Match, error) {
	query := "SELECT " + storage.GameColumns + " FROM games"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = $1"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.Match
	for rows.Next() {
		var row storage.GameRow
		if err := rows.Scan(row.Dest()...); err != nil {
			return nil, err
		}
		games = append(games, row.ToDomain())
	}
	return games, rows.Err()
}

func (s *Storage) GetGame(ctx context.Context, id string) (domain.Match, error) {
	var row storage.GameRow
	err := s.pool.QueryRow(ctx,
		"SELECT "+storage.GameColumns+" FROM games WHERE id = $1", id,
	).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, storage.ErrNotFound
		}
		return domain.Match{}, err
	}
	return row.ToDomain(), nil
}

func (s *Storage) CreateGame(ctx context.Context, game domain.Match) (domain.Match, error) {
	game = storage.PrepareNewGame(game, time.Now().UTC())
	row := storage.GameRowFromDomain(game)
	_, err := s.pool.Exec(ctx, `
        INSERT INTO games(`+storage.GameColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, row.Args()...)
	if err != nil {
		return domain.Match{}, err
	}
	return game, nil
}

func (s *Storage) SetGameStatus(ctx context.Context, id string, status domain.Status) error {
	tag, err := s.pool.Exec(ctx, "UPDATE games SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return err
	}
	return expectAffected(tag)
}

func (s *Storage) DeleteGame(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM games WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(tag)
}

func (s *Storage) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+storage.ProfileColumns+" FROM profiles ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var row storage.ProfileRow
		if err := rows.Scan(row.Dest()...); err != nil {
			return nil, err
		}
		profiles = append(profiles, row.Profile)
	}
	return profiles, rows.Err()
}

func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	var row storage.ProfileRow
	err := s.pool.QueryRow(ctx,
		"SELECT "+storage.ProfileColumns+" FROM profiles WHERE username = $1", username,
	).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, storage.ErrNotFound
		}
		return domain.Profile{}, err
	}
	return row.Profile, nil
}

func (s *Storage) CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	profile = storage.PrepareNewProfile(profile, time.Now().UTC())
	row := storage.ProfileRow{Profile: profile}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO profiles(`+storage.ProfileColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, row.Args()...)
	if err != nil {
		return domain.Profile{}, uniqueViolation(err)
	}
	return profile, nil
}

func (s *Storage) UpsertRatings(ctx context.Context, ratings []domain.ProfileRating) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range ratings {
		batch.Queue(`
            UPDATE profiles
               SET rating = $1, rd = $2, vol = $3, wins = $4, losses = $5, streak = $6
             WHERE id = $7
        `, r.Rating, r.RD, r.Volatility, r.Wins, r.Losses, r.Streak, r.ProfileID)
	}
	results := tx.SendBatch(ctx, batch)
	for _, r := range ratings {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("update %s: %w", r.Username, err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func expectAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const codeUniqueViolation = "23505"

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return fmt.Errorf("%w: %w", storage.ErrAlreadyExists, err)
	}
	return err
}
