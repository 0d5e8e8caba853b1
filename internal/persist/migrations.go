package persist

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

func (db *DB) goose() (*sql.DB, error) {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	return stdlib.OpenDBFromPool(db.Pool), nil
}

// Migrate applies all pending scene store migrations.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB, err := db.goose()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	db.log.Info("scene store migrated", zap.Int64("version", version))
	return nil
}

// Reset rolls every migration back. Used by tests against a scratch database.
func (db *DB) Reset(ctx context.Context) error {
	sqlDB, err := db.goose()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := goose.ResetContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("reset migrations: %w", err)
	}
	return nil
}
