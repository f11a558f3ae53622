package cron_feature

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-groupware/internal/features/approval"
	"go-groupware/internal/features/audit"

	"go.uber.org/zap"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type stubApprovalRepo struct {
	approval.ApprovalRepository
	overdue []approval.Record
}

func (s *stubApprovalRepo) OverduePending(_ context.Context, now time.Time) ([]approval.Record, error) {
	return s.overdue, nil
}

type stubApprovalService struct {
	approval.ApprovalService
	delivered  int
	reconciled int
}

func (s *stubApprovalService) ReconcilePropagation(_ context.Context) (int, error) {
	s.reconciled++
	return s.delivered, nil
}

type captureAudit struct {
	mu      sync.Mutex
	actions []string
}

func (c *captureAudit) Record(action, actorID, detail, level string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
}

func (c *captureAudit) List(_ context.Context, page, limit int64) ([]audit.AuditLog, error) {
	return nil, nil
}

func TestSweepOnce(t *testing.T) {
	due := testNow.Add(-24 * time.Hour)
	repo := &stubApprovalRepo{overdue: []approval.Record{
		{ID: 1, TargetType: "VACATION", TargetID: "42", Step: 2, Status: approval.StatusPending, DueAt: &due},
		{ID: 2, TargetType: "VACATION", TargetID: "43", Step: 1, Status: approval.StatusPending, DueAt: &due},
	}}
	auditCapture := &captureAudit{}
	approvals := &stubApprovalService{}

	svc := &SweepServiceImpl{
		ApprovalRepo: repo,
		Approvals:    approvals,
		AuditService: auditCapture,
		Logger:       zap.NewNop(),
		Clock:        fixedClock{},
	}

	count, err := svc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce() error: %v", err)
	}
	if count != 2 {
		t.Errorf("SweepOnce() = %d, want 2", count)
	}
	if len(auditCapture.actions) != 2 {
		t.Fatalf("got %d audit entries, want 2", len(auditCapture.actions))
	}
	for _, action := range auditCapture.actions {
		if action != "APPROVAL_OVERDUE" {
			t.Errorf("audit action = %s, want APPROVAL_OVERDUE", action)
		}
	}
	if approvals.reconciled != 1 {
		t.Errorf("reconciliation ran %d times, want 1", approvals.reconciled)
	}
}

func TestSweepOnceNothingOverdue(t *testing.T) {
	svc := &SweepServiceImpl{
		ApprovalRepo: &stubApprovalRepo{},
		Approvals:    &stubApprovalService{},
		AuditService: &captureAudit{},
		Logger:       zap.NewNop(),
		Clock:        fixedClock{},
	}

	count, err := svc.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce() error: %v", err)
	}
	if count != 0 {
		t.Errorf("SweepOnce() = %d, want 0", count)
	}
}

func TestSweepOnceAuditsRedelivery(t *testing.T) {
	auditCapture := &captureAudit{}
	svc := &SweepServiceImpl{
		ApprovalRepo: &stubApprovalRepo{},
		Approvals:    &stubApprovalService{delivered: 2},
		AuditService: auditCapture,
		Logger:       zap.NewNop(),
		Clock:        fixedClock{},
	}

	if _, err := svc.SweepOnce(context.Background()); err != nil {
		t.Fatalf("SweepOnce() error: %v", err)
	}
	if len(auditCapture.actions) != 1 || auditCapture.actions[0] != "APPROVAL_REPROPAGATED" {
		t.Errorf("audit actions = %v, want [APPROVAL_REPROPAGATED]", auditCapture.actions)
	}
}
