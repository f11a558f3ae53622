package logger

import (
	"context"
	"fmt"
	"time"

	"go-groupware/internal/config"
	"go-groupware/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to our worker
type LogEntry struct {
	Level      zapcore.Level
	Message    string
	ActorID    string
	TargetType string
	Caller     string // Function name
}

// logRecord is the persisted shape of a log entry.
type logRecord struct {
	AppId        string    `bson:"app_id"`
	Message      string    `bson:"message"`
	ActorID      string    `bson:"actor_id,omitempty"`
	TargetType   string    `bson:"target_type,omitempty"`
	Caller       string    `bson:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(logdb *database.LogDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		db:      logdb.DB,
		logChan: make(chan LogEntry, 1000),
		appId:   cfg.AppId,
	}

	go writer.processLogs()

	return writer
}

// AddLog is called by our Zap hook. It never blocks the request path.
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the API
		fmt.Println("Log sink channel full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		rec := logRecord{
			AppId:        w.appId,
			Message:      entry.Message,
			ActorID:      entry.ActorID,
			TargetType:   entry.TargetType,
			Caller:       entry.Caller,
			LogLevelId:   mapLevelToInt(entry.Level),
			CreatedOnUtc: time.Now().UTC(),
		}

		// Insert errors are swallowed; the sink is a non-critical side channel
		w.db.Collection("app_logs").InsertOne(context.Background(), rec)
	}
}

func mapLevelToInt(l zapcore.Level) int {
	switch l {
	case zapcore.DebugLevel:
		return 10
	case zapcore.InfoLevel:
		return 20
	case zapcore.WarnLevel:
		return 30
	case zapcore.ErrorLevel:
		return 40
	case zapcore.FatalLevel:
		return 50
	default:
		return 20
	}
}
