package logger

import (
	"go-groupware/internal/config"
	"go-groupware/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the zap logger. Entries are written to the console encoder
// and teed into the async log-sink writer when the sink is reachable.
func NewLogger(cfg *config.Config, logdb *database.LogDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if logdb.DB == nil {
		return baseLogger, nil
	}

	dbWriter := NewDBLogWriter(logdb, cfg)
	finalCore := NewDBCore(baseLogger.Core(), dbWriter)

	return zap.New(finalCore, zap.AddCaller()), nil
}
