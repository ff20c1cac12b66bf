package database

import (
	"io"
	"path/filepath"
	"testing"

	"tripcatalog/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := Connect(filepath.Join(t.TempDir(), "catalog.db"), log)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&models.Destination{}))
	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasIndex(&models.Destination{}, "Featured"))

	// migrating twice is a no-op
	require.NoError(t, Migrate(db))
}
