package cron_feature

import (
	"context"
	"fmt"

	"go-groupware/internal/common/clock"
	"go-groupware/internal/config"
	"go-groupware/internal/features/approval"
	"go-groupware/internal/features/audit"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SweepService periodically surfaces overdue pending approvals and retries
// terminal outcomes that never reached their target. Due dates are stored on
// the records but never enforced by the engine; the sweep only writes audit
// entries so admins can chase them.
type SweepService interface {
	Start() error
	Stop()
	SweepOnce(ctx context.Context) (int, error)
}

type SweepServiceImpl struct {
	ApprovalRepo approval.ApprovalRepository
	Approvals    approval.ApprovalService
	AuditService audit.AuditService
	Logger       *zap.Logger
	Clock        clock.Clock

	spec      string
	scheduler *cron.Cron
}

func NewSweepService(
	approvalRepo approval.ApprovalRepository,
	approvals approval.ApprovalService,
	auditService audit.AuditService,
	logger *zap.Logger,
	clk clock.Clock,
	cfg *config.Config,
) SweepService {
	return &SweepServiceImpl{
		ApprovalRepo: approvalRepo,
		Approvals:    approvals,
		AuditService: auditService,
		Logger:       logger,
		Clock:        clk,
		spec:         cfg.SweepSpec,
		scheduler:    cron.New(),
	}
}

func (s *SweepServiceImpl) Start() error {
	_, err := s.scheduler.AddFunc(s.spec, func() {
		if _, err := s.SweepOnce(context.Background()); err != nil {
			s.Logger.Warn("overdue approval sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.scheduler.Start()
	s.Logger.Info("overdue approval sweep scheduled", zap.String("spec", s.spec))
	return nil
}

func (s *SweepServiceImpl) Stop() {
	s.scheduler.Stop()
}

func (s *SweepServiceImpl) SweepOnce(ctx context.Context) (int, error) {
	if delivered, err := s.Approvals.ReconcilePropagation(ctx); err != nil {
		s.Logger.Warn("propagation reconciliation failed", zap.Error(err))
	} else if delivered > 0 {
		s.Logger.Info("re-delivered terminal approval outcomes", zap.Int("count", delivered))
		s.AuditService.Record("APPROVAL_REPROPAGATED", "system",
			fmt.Sprintf("%d terminal outcomes delivered on retry", delivered), audit.LevelWarn)
	}

	overdue, err := s.ApprovalRepo.OverduePending(ctx, s.Clock.Now())
	if err != nil {
		return 0, err
	}

	for _, rec := range overdue {
		s.AuditService.Record("APPROVAL_OVERDUE", "system",
			fmt.Sprintf("%s/%s step %d pending past due (%s)",
				rec.TargetType, rec.TargetID, rec.Step, rec.DueAt.Format("2006-01-02")),
			audit.LevelWarn)
	}

	if len(overdue) > 0 {
		s.Logger.Info("overdue pending approvals found", zap.Int("count", len(overdue)))
	}
	return len(overdue), nil
}
