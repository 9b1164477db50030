package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residentportal/internal/model"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	db, err := Open("oracle", "whatever")
	assert.Nil(t, db)
	assert.Error(t, err)
}

func TestMigrate_SQLite(t *testing.T) {
	gormDB, err := Open("sqlite", "file::memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(gormDB, false))
	assert.True(t, gormDB.Migrator().HasTable(&model.Account{}))

	require.NoError(t, gormDB.Create(&model.Account{Email: "a@example.com", PasswordHash: "x"}).Error)

	require.NoError(t, Migrate(gormDB, true))
	var count int64
	require.NoError(t, gormDB.Model(&model.Account{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmailCollation(t *testing.T) {
	assert.Contains(t, emailCollation("mysql"), "COLLATE utf8mb4_bin")
	assert.Empty(t, emailCollation("postgres"))
	assert.Empty(t, emailCollation("sqlite"))
}

func TestMigrate_SQLiteEmailIsCaseSensitive(t *testing.T) {
	gormDB, err := Open("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(gormDB, false))

	require.NoError(t, gormDB.Create(&model.Account{Email: "alice@example.com", PasswordHash: "x"}).Error)
	require.NoError(t, gormDB.Create(&model.Account{Email: "Alice@example.com", PasswordHash: "x"}).Error)

	var count int64
	require.NoError(t, gormDB.Model(&model.Account{}).Where("email = ?", "alice@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
