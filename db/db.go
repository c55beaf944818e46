// Package db opens the three backing stores and prepares their schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventhub/models"
)

const connectTimeout = 10 * time.Second

// OpenPostgres connects, pings and migrates the user store.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// one row per (user, event); the primary key makes inserts set-like
	`CREATE TABLE IF NOT EXISTS user_registered_events (
		user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_id      TEXT NOT NULL,
		registered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS user_registered_events_event_idx
		ON user_registered_events (event_id)`,
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// OpenMongo connects and returns the events collection with its indexes in place.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	col := client.Database(database).Collection("events")
	if err := models.EnsureEventIndexes(ctx, col); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, col, nil
}

func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
