package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/migrate"
	"github.com/goserg/poolrating/internal/storage"
)

type Storage struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ storage.Storage = (*Storage)(nil)

func New(l *logrus.Logger, cfg config.Storage) (*Storage, error) {
	log := l.WithFields(map[string]interface{}{
		"from": "sqlite-storage",
	})
	db, err := sql.Open("sqlite3", buildSource(cfg.SqliteFile))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	err = migrate.UpSqlite(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("storage connected")
	return &Storage{
		db:  db,
		log: log,
	}, nil
}

func buildSource(fileName string) string {
	return "file:" + fileName + "?cache=shared&_foreign_keys=on"
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) ListGames(ctx context.Context, filter storage.GameFilter) ([]domain.Match, error) {
	query := "SELECT " + storage.GameColumns + " FROM games"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	err := s.db.QueryRowContext(ctx,
		"SELECT "+storage.GameColumns+" FROM games WHERE id = ?", id,
	).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Match{}, storage.ErrNotFound
		}
		return domain.Match{}, err
	}
	return row.ToDomain(), nil
}

func (s *Storage) CreateGame(ctx context.Context, game domain.Match) (domain.Match, error) {
	game = storage.PrepareNewGame(game, time.Now().UTC())
	row := storage.GameRowFromDomain(game)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO games ("+storage.GameColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.Args()...,
	)
	if err != nil {
		return domain.Match{}, err
	}
	return game, nil
}

func (s *Storage) SetGameStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := s.db.ExecContext(ctx, "UPDATE games SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Storage) DeleteGame(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Storage) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+storage.ProfileColumns+" FROM profiles ORDER BY username")
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
	err := s.db.QueryRowContext(ctx,
		"SELECT "+storage.ProfileColumns+" FROM profiles WHERE username = ?", username,
	).Scan(row.Dest()...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, storage.ErrNotFound
		}
		return domain.Profile{}, err
	}
	return row.Profile, nil
}

func (s *Storage) CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	profile = storage.PrepareNewProfile(profile, time.Now().UTC())
	row := storage.ProfileRow{Profile: profile}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO profiles ("+storage.ProfileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.Args()...,
	)
	if err != nil {
		return domain.Profile{}, uniqueViolation(err)
	}
	return profile, nil
}

func (s *Storage) UpsertRatings(ctx context.Context, ratings []domain.ProfileRating) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE profiles SET rating = ?, rd = ?, vol = ?, wins = ?, losses = ?, streak = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range ratings {
		_, err = stmt.ExecContext(ctx, r.Rating, r.RD, r.Volatility, r.Wins, r.Losses, r.Streak, r.ProfileID)
		if err != nil {
			return fmt.Errorf("update %s: %w", r.Username, err)
		}
	}
	return tx.Commit()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func uniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %w", storage.ErrAlreadyExists, err)
	}
	return err
}
