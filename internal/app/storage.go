package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/config"
	"github.com/goserg/poolrating/internal/storage"
	"github.com/goserg/poolrating/internal/storage/postgres"
	"github.com/goserg/poolrating/internal/storage/sqlite"
)

// OpenStorage connects to the configured driver and applies its migrations.
func OpenStorage(ctx context.Context, l *logrus.Logger, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverSqlite:
		return sqlite.New(l, cfg)
	case config.DriverPostgres:
		return postgres.New(ctx, l, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
