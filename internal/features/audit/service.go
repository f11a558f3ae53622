package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditService records actions on a best-effort basis. Record never blocks and
// never fails the caller; a full queue drops the entry with a console note.
type AuditService interface {
	Record(action, actorID, detail, level string)
	List(ctx context.Context, page, limit int64) ([]AuditLog, error)
}

type AuditServiceImpl struct {
	Repo    AuditRepository
	Logger  *zap.Logger
	entries chan AuditLog
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	s := &AuditServiceImpl{
		Repo:    repo,
		Logger:  logger,
		entries: make(chan AuditLog, 1000),
	}

	go s.processEntries()

	return s
}

func (s *AuditServiceImpl) Record(action, actorID, detail, level string) {
	if level == "" {
		level = LevelInfo
	}
	entry := AuditLog{
		Action:    action,
		ActorID:   actorID,
		Detail:    detail,
		Level:     level,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case s.entries <- entry:
	default:
		s.Logger.Warn("audit queue full, dropping entry", zap.String("action", action))
	}
}

func (s *AuditServiceImpl) processEntries() {
	for entry := range s.entries {
		e := entry
		if err := s.Repo.Create(context.Background(), &e); err != nil {
			// The audit channel is non-critical: log and move on
			s.Logger.Warn("failed to persist audit entry", zap.String("action", e.Action), zap.Error(err))
		}
	}
}

func (s *AuditServiceImpl) List(ctx context.Context, page, limit int64) ([]AuditLog, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit
	return s.Repo.List(ctx, limit, offset)
}
