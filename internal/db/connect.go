package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ksInsandji/pensezy-edition/internal/ctxutil"
)

// Open connects through the pgx stdlib driver and pings once.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	database.SetMaxOpenConns(20)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(30 * time.Minute)

	if err := Ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return database, nil
}

func Ping(ctx context.Context, database *sql.DB) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return database.PingContext(ctx)
}
