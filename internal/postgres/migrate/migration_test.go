// SPDX-FileCopyrightText: 2025 Mads R. Havmand <mads@v42.dk>
//
// SPDX-License-Identifier: AGPL-3.0-only

//go:build integration

package migrate

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pgMigrate "github.com/AppDist/braingw/internal/postgres"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	t.Run("apply_migrations_up", func(t *testing.T) {
		err := pgMigrate.RunMigrations(logger, connStr)
		require.NoError(t, err)

		conn, err := pgx.Connect(ctx, connStr)
		require.NoError(t, err)
		defer conn.Close(ctx)

		var tableCount int
		err = conn.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'usage_events'
		`).Scan(&tableCount)
		require.NoError(t, err)
		assert.Equal(t, 1, tableCount, "Expected usage_events table to be created")
	})

	t.Run("rollback_migrations_down", func(t *testing.T) {
		err := pgMigrate.RunMigrations(logger, connStr)
		require.NoError(t, err)

		sourceDriver, err := iofs.New(pgMigrate.GetMigrationFiles(), "migrate")
		require.NoError(t, err)

		// Convert postgres:// to pgx5:// URL scheme for pgx/v5 driver
		migrationURL := strings.Replace(connStr, "postgres://", "pgx5://", 1)

		m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrationURL)
		require.NoError(t, err)
		defer m.Close()

		err = m.Down()
		require.NoError(t, err)

		conn, err := pgx.Connect(ctx, connStr)
		require.NoError(t, err)
		defer conn.Close(ctx)

		var tableCount int
		err = conn.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'usage_events'
		`).Scan(&tableCount)
		require.NoError(t, err)
		assert.Equal(t, 0, tableCount, "Expected usage_events table to be dropped")
	})

	t.Run("reapply_migrations_after_rollback", func(t *testing.T) {
		err := pgMigrate.RunMigrations(logger, connStr)
		require.NoError(t, err)

		// Running migrations again should be idempotent
		err = pgMigrate.RunMigrations(logger, connStr)
		require.NoError(t, err)
	})
}
