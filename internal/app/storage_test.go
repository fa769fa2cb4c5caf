package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/poolrating/internal/config"
)

func TestOpenStorage(t *testing.T) {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)

	st, err := OpenStorage(context.Background(), l, config.Storage{
		Driver:     config.DriverSqlite,
		SqliteFile: filepath.Join(t.TempDir(), "pool.sqlite"),
	})
	require.NoError(t, err)
	defer st.Close()

	profiles, err := st.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)

	_, err = OpenStorage(context.Background(), l, config.Storage{Driver: "mysql"})
	assert.Error(t, err)
}
