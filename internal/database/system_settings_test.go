package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexushq/nexus/internal/models"
)

func TestGetAndUpsertSystemSetting(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value1"))

	retrieved, err := GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value1", retrieved)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value2"))

	retrieved, err = GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value2", retrieved)
}

func TestEnsureJWTSecretKeepsFirstValue(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	secret, err := EnsureJWTSecret(context.Background(), db, "initial")
	require.NoError(t, err)
	require.Equal(t, "initial", secret)

	secret, err = EnsureJWTSecret(context.Background(), db, "regenerated")
	require.NoError(t, err)
	require.Equal(t, "initial", secret)

	_, err = EnsureJWTSecret(context.Background(), db, " ")
	require.Error(t, err)
}
