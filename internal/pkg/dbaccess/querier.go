package dbaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roackb2/rollout/config"
)

var (
	dbPool  *pgxpool.Pool
	Default *Queries
)

func Initialize(cfg config.DatabaseConfig) error {
	pool, err := getDbPool(cfg)
	if err != nil {
		slog.Error("Failed to get db pool", "error", err)
		return err
	}
	dbPool = pool
	Default = New(dbPool)
	return nil
}

func Close() {
	if dbPool == nil {
		return
	}
	slog.Info("Closing db pool")
	dbPool.Close()
	dbPool = nil
}

func getConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)
}

func getDbPool(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), getConnString(cfg))
	if err != nil {
		slog.Error("Failed to create db pool", "error", err)
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("Failed to ping db pool", "error", err)
		pool.Close()
		return nil, err
	}
	slog.Info("Pinged db pool", "host", cfg.Host, "dbname", cfg.DBName)

	return pool, nil
}
