package database

import (
	"context"
	"database/sql"
	"log"
	"time"

	"go-groupware/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/fx"
)

// PostgresDB wraps the shared sql.DB handle for the primary datastore.
type PostgresDB struct {
	DB *sql.DB
}

// NewDatabase opens the Postgres connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	log.Println("Connected to Postgres!")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("Closing Postgres connection...")
			return db.Close()
		},
	})

	return &PostgresDB{DB: db}, nil
}
