package approval

import (
	"context"
	"fmt"

	"go-groupware/internal/common/clock"
	"go-groupware/internal/features/audit"
	"go-groupware/internal/features/directory"

	"go.uber.org/zap"
)

type ApprovalService interface {
	// State machine
	Approve(ctx context.Context, targetType, targetID, actorID string) error
	Reject(ctx context.Context, targetType, targetID, actorID, memo string) error

	// ReconcilePropagation retries delivery of terminal outcomes whose
	// target-side propagation failed earlier. Returns how many it delivered.
	ReconcilePropagation(ctx context.Context) (int, error)

	// Read side
	PendingToMe(ctx context.Context, approverID, targetType string) ([]DocumentListItem, error)
	RequestedByMe(ctx context.Context, requesterID, targetType string) ([]DocumentListItem, error)
	Detail(ctx context.Context, targetType, targetID string) (*DocumentDetail, error)
	History(ctx context.Context, targetType, targetID string) ([]HistoryEntry, error)
	LinePreview(ctx context.Context, documentType, departmentCode, teamCode, routeName, requesterRole string) ([]LinePreviewStep, error)
}

type ApprovalServiceImpl struct {
	Repo         ApprovalRepository
	Registry     *TargetRegistry
	Resolver     *TemplateResolver
	Directory    directory.DirectoryService
	AuditService audit.AuditService
	Logger       *zap.Logger
	Clock        clock.Clock
}

func NewApprovalService(
	repo ApprovalRepository,
	registry *TargetRegistry,
	resolver *TemplateResolver,
	dir directory.DirectoryService,
	auditService audit.AuditService,
	logger *zap.Logger,
	clk clock.Clock,
) ApprovalService {
	return &ApprovalServiceImpl{
		Repo:         repo,
		Registry:     registry,
		Resolver:     resolver,
		Directory:    dir,
		AuditService: auditService,
		Logger:       logger,
		Clock:        clk,
	}
}

// loadActionable runs the shared authorization / state / ordering checks of
// approve and reject.
func (s *ApprovalServiceImpl) loadActionable(ctx context.Context, targetType, targetID, actorID string) (*Record, error) {
	rec, err := s.Repo.RecordByTargetAndApprover(ctx, targetType, targetID, actorID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotAuthorized
	}
	if rec.Status != StatusPending {
		return nil, &AlreadyProcessedError{Status: rec.Status}
	}

	minStep, hasPending, err := s.Repo.MinPendingStep(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if hasPending && rec.Step > minStep {
		return nil, ErrOutOfOrder
	}
	return rec, nil
}

// resolve performs the guarded PENDING -> to transition. A lost race surfaces
// as AlreadyProcessed, never as a double-applied side effect. For a rejection
// the repository voids every other pending step in the same transaction.
func (s *ApprovalServiceImpl) resolve(ctx context.Context, rec *Record, to Status, memo string) error {
	now := s.Clock.Now()
	ok, err := s.Repo.ResolveLine(ctx, rec.ID, rec.TargetType, rec.TargetID, to, memo, now)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.Repo.RecordByID(ctx, rec.ID)
		if err != nil || current == nil {
			return &AlreadyProcessedError{Status: rec.Status}
		}
		return &AlreadyProcessedError{Status: current.Status}
	}
	rec.Status = to
	rec.ApprovedAt = &now
	rec.Memo = memo
	return nil
}

// propagate delivers a terminal outcome to the target entity and marks the
// record once delivery succeeded. A failed delivery leaves propagated_at NULL,
// so ReconcilePropagation can retry it; the record-side state already stands.
func (s *ApprovalServiceImpl) propagate(ctx context.Context, rec *Record, to Status) error {
	handler, ok := s.Registry.Lookup(rec.TargetType)
	if !ok {
		// The transition itself stands; the target never learns about it.
		s.Logger.Error("no target handler registered, final status not propagated",
			zap.String("targetType", rec.TargetType),
			zap.String("targetId", rec.TargetID))
		return nil
	}

	if err := handler.ApplyFinalStatus(ctx, rec.TargetID, to, rec.ApproverID, *rec.ApprovedAt); err != nil {
		return err
	}

	if err := s.Repo.MarkPropagated(ctx, rec.ID, s.Clock.Now()); err != nil {
		// Worst case the reconciler re-delivers; ApplyFinalStatus overwrites
		// the same terminal state, so a duplicate delivery is harmless.
		s.Logger.Warn("failed to mark propagation",
			zap.Int64("approvalId", rec.ID), zap.Error(err))
	}
	return nil
}

// appendHistory is fire-and-forget relative to the primary transition: a
// history-write failure is logged and never rolls back the state change.
func (s *ApprovalServiceImpl) appendHistory(ctx context.Context, rec *Record, action HistoryAction, actorID, memo string) {
	entry := &HistoryEntry{
		ApprovalID:  rec.ID,
		TargetType:  rec.TargetType,
		TargetID:    rec.TargetID,
		Step:        rec.Step,
		Action:      action,
		Memo:        memo,
		ActorID:     actorID,
		PrevStatus:  StatusPending,
		NewStatus:   rec.Status,
		PerformedAt: s.Clock.Now(),
	}
	if err := s.Repo.InsertHistory(ctx, entry); err != nil {
		s.Logger.Warn("failed to append approval history",
			zap.String("targetType", rec.TargetType),
			zap.String("targetId", rec.TargetID),
			zap.Int64("approvalId", rec.ID),
			zap.Error(err))
	}
}

func (s *ApprovalServiceImpl) Approve(ctx context.Context, targetType, targetID, actorID string) error {
	rec, err := s.loadActionable(ctx, targetType, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.resolve(ctx, rec, StatusApproved, ""); err != nil {
		return err
	}

	s.appendHistory(ctx, rec, ActionApprove, actorID, "")
	s.AuditService.Record("APPROVAL_APPROVE", actorID,
		fmt.Sprintf("%s/%s step %d", targetType, targetID, rec.Step), audit.LevelInfo)

	if !rec.IsFinal {
		// Non-final approval just unblocks the next step.
		return nil
	}
	return s.propagate(ctx, rec, StatusApproved)
}

func (s *ApprovalServiceImpl) Reject(ctx context.Context, targetType, targetID, actorID, memo string) error {
	rec, err := s.loadActionable(ctx, targetType, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.resolve(ctx, rec, StatusRejected, memo); err != nil {
		return err
	}

	s.appendHistory(ctx, rec, ActionReject, actorID, memo)
	s.AuditService.Record("APPROVAL_REJECT", actorID,
		fmt.Sprintf("%s/%s step %d: %s", targetType, targetID, rec.Step, memo), audit.LevelInfo)

	// Rejection is terminal for the whole document regardless of step. The
	// remaining pending steps were already voided inside the resolve
	// transaction; only target-side delivery is left.
	return s.propagate(ctx, rec, StatusRejected)
}

// ReconcilePropagation re-delivers terminal outcomes that never reached their
// target. Driven by the periodic sweep; safe to run concurrently with live
// traffic because delivery is idempotent and marking is best-effort.
func (s *ApprovalServiceImpl) ReconcilePropagation(ctx context.Context) (int, error) {
	records, err := s.Repo.UnpropagatedFinals(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range records {
		rec := &records[i]
		if _, ok := s.Registry.Lookup(rec.TargetType); !ok {
			continue
		}
		if err := s.propagate(ctx, rec, rec.Status); err != nil {
			s.Logger.Warn("propagation retry failed",
				zap.String("targetType", rec.TargetType),
				zap.String("targetId", rec.TargetID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (s *ApprovalServiceImpl) summaryFor(ctx context.Context, targetType, targetID string) map[string]interface{} {
	handler, ok := s.Registry.Lookup(targetType)
	if !ok {
		return unsupportedSummary(targetType)
	}
	summary, err := handler.Summary(ctx, targetID)
	if err != nil {
		s.Logger.Warn("failed to load target summary",
			zap.String("targetType", targetType),
			zap.String("targetId", targetID),
			zap.Error(err))
		return unsupportedSummary(targetType)
	}
	return summary
}

func (s *ApprovalServiceImpl) toListItems(ctx context.Context, records []Record) []DocumentListItem {
	items := make([]DocumentListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, DocumentListItem{
			Record:  rec,
			Summary: s.summaryFor(ctx, rec.TargetType, rec.TargetID),
		})
	}
	return items
}

func (s *ApprovalServiceImpl) PendingToMe(ctx context.Context, approverID, targetType string) ([]DocumentListItem, error) {
	records, err := s.Repo.ListByApprover(ctx, approverID, targetType)
	if err != nil {
		return nil, err
	}
	return s.toListItems(ctx, records), nil
}

func (s *ApprovalServiceImpl) RequestedByMe(ctx context.Context, requesterID, targetType string) ([]DocumentListItem, error) {
	records, err := s.Repo.ListByRequester(ctx, requesterID, targetType)
	if err != nil {
		return nil, err
	}
	return s.toListItems(ctx, records), nil
}

// detailRoles are the role slots of the standard approval line shown in the
// detail view's live approver map.
var detailRoles = []string{"partLead", "teamLead", "deptHead", "ceo"}

func (s *ApprovalServiceImpl) Detail(ctx context.Context, targetType, targetID string) (*DocumentDetail, error) {
	records, err := s.Repo.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	detail := &DocumentDetail{
		TargetType: targetType,
		TargetID:   targetID,
		Status:     overallStatus(records),
		Records:    records,
		Summary:    s.summaryFor(ctx, targetType, targetID),
	}

	// Current approver = approver of the lowest still-pending step.
	for _, rec := range records {
		if rec.Status == StatusPending {
			approverID := rec.ApproverID
			detail.CurrentApproverID = &approverID
			break
		}
	}

	detail.Approvers = s.resolveApproversNow(ctx, records[0].RequesterID)
	return detail, nil
}

// resolveApproversNow re-derives who backfills each role today, with the same
// fallback resolution the materializer uses. Display only: the persisted
// approver_id on each record stays authoritative, and the payload says so.
func (s *ApprovalServiceImpl) resolveApproversNow(ctx context.Context, requesterID string) map[string]interface{} {
	approvers := map[string]interface{}{
		"resolvedNow": true,
	}

	requester, err := s.Directory.UserByID(ctx, requesterID)
	if err != nil || requester == nil {
		return approvers
	}

	for _, role := range detailRoles {
		user, err := s.Directory.FallbackApprover(ctx, requester.DepartmentCode, requester.TeamCode, role)
		if err != nil || user == nil {
			approvers[role] = nil
			continue
		}
		approvers[role] = map[string]interface{}{
			"id":            user.ID,
			"name":          user.Name,
			"position_code": user.PositionCode,
		}
	}
	return approvers
}

// overallStatus derives the document-level state from its record set.
func overallStatus(records []Record) Status {
	finalApproved := false
	for _, rec := range records {
		switch {
		case rec.Status == StatusRejected:
			return StatusRejected
		case rec.Status == StatusPending:
			return StatusPending
		case rec.Status == StatusApproved && rec.IsFinal:
			finalApproved = true
		}
	}
	if finalApproved {
		return StatusApproved
	}
	// No pending rows, no rejection, no approved final step: everything left
	// was skipped out from under an already-resolved line.
	return StatusSkipped
}

func (s *ApprovalServiceImpl) History(ctx context.Context, targetType, targetID string) ([]HistoryEntry, error) {
	return s.Repo.HistoryByTarget(ctx, targetType, targetID)
}

// LinePreview shows submission forms the route that would materialize right
// now: the filtered template plus the live candidate for each step.
func (s *ApprovalServiceImpl) LinePreview(ctx context.Context, documentType, departmentCode, teamCode, routeName, requesterRole string) ([]LinePreviewStep, error) {
	steps, err := s.Resolver.ResolveRoute(ctx, documentType, departmentCode, teamCode, routeName, requesterRole)
	if err != nil {
		return nil, err
	}

	preview := make([]LinePreviewStep, 0, len(steps))
	for _, step := range steps {
		p := LinePreviewStep{
			Step:      step.Step,
			RoleCode:  step.RoleCode,
			ProxyType: step.ProxyType,
			ProxyRole: step.ProxyRole,
			Required:  step.Required,
		}

		if step.ProxyType != ProxySkip {
			roleCode := step.RoleCode
			if step.ProxyType == ProxyProxy {
				roleCode = step.ProxyRole
			}
			user, err := s.Directory.FirstActiveByRole(ctx, departmentCode, "", roleCode)
			if err != nil {
				return nil, err
			}
			if user != nil {
				p.Candidate = map[string]interface{}{
					"id":            user.ID,
					"name":          user.Name,
					"position_code": user.PositionCode,
				}
			}
		}

		preview = append(preview, p)
	}
	return preview, nil
}
