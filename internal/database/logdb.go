package database

import (
	"context"
	"log"
	"time"

	"go-groupware/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// LogDB holds the Mongo database used by the async application-log sink.
// DB is nil when the sink is unreachable; the logger then writes to console only.
type LogDB struct {
	DB *mongo.Database
}

// NewLogDatabase connects to the log sink. A failure here must not take the
// application down, so it degrades to a nil handle instead of returning an error.
func NewLogDatabase(lc fx.Lifecycle, cfg *config.Config) *LogDB {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Printf("Log sink unavailable, console logging only: %v", err)
		return &LogDB{}
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Printf("Log sink unreachable, console logging only: %v", err)
		return &LogDB{}
	}

	log.Println("Connected to log sink")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return &LogDB{DB: client.Database(cfg.LogDBName)}
}
