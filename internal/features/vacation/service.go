package vacation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go-groupware/internal/common/clock"
	"go-groupware/internal/features/approval"
	"go-groupware/internal/features/audit"

	"go.uber.org/zap"
)

const defaultRouteName = "basic"

var errInvalidDates = errors.New("start_date must not be after end_date")

type VacationService interface {
	Apply(ctx context.Context, requester approval.Actor, req ApplyRequest) (*Vacation, []*approval.Record, error)
	Get(ctx context.Context, id int64) (*Vacation, error)
	ListMine(ctx context.Context, userID string) ([]Vacation, error)

	// TargetHandler side, invoked by the approval engine
	Summary(ctx context.Context, targetID string) (map[string]interface{}, error)
	ApplyFinalStatus(ctx context.Context, targetID string, status approval.Status, actorID string, at time.Time) error
}

type VacationServiceImpl struct {
	Repo         VacationRepository
	Materializer *approval.Materializer
	AuditService audit.AuditService
	Logger       *zap.Logger
	Clock        clock.Clock
}

func NewVacationService(
	repo VacationRepository,
	materializer *approval.Materializer,
	registry *approval.TargetRegistry,
	auditService audit.AuditService,
	logger *zap.Logger,
	clk clock.Clock,
) VacationService {
	s := &VacationServiceImpl{
		Repo:         repo,
		Materializer: materializer,
		AuditService: auditService,
		Logger:       logger,
		Clock:        clk,
	}
	registry.Register(TargetType, s)
	return s
}

// Apply creates the vacation document and materializes its approval line.
// A failed materialization removes the document again: a vacation without an
// approval line must never survive submission.
func (s *VacationServiceImpl) Apply(ctx context.Context, requester approval.Actor, req ApplyRequest) (*Vacation, []*approval.Record, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid end_date: %w", err)
	}
	if start.After(end) {
		return nil, nil, errInvalidDates
	}

	routeName := req.RouteName
	if routeName == "" {
		routeName = defaultRouteName
	}

	v := &Vacation{
		UserID:    requester.ID,
		Type:      req.Type,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Status:    StatusPending,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Repo.Insert(ctx, v); err != nil {
		return nil, nil, err
	}

	records, err := s.Materializer.Materialize(ctx, approval.MaterializeInput{
		TargetType: TargetType,
		TargetID:   strconv.FormatInt(v.ID, 10),
		Requester:  requester,
		RouteName:  routeName,
	})
	if err != nil {
		if delErr := s.Repo.Delete(ctx, v.ID); delErr != nil {
			s.Logger.Error("failed to roll back vacation after materialization failure",
				zap.Int64("vacationId", v.ID), zap.Error(delErr))
		}
		return nil, nil, err
	}

	s.AuditService.Record("VACATION_APPLY", requester.ID,
		fmt.Sprintf("vacation %d (%s %s..%s), %d approval steps", v.ID, v.Type, req.StartDate, req.EndDate, len(records)),
		audit.LevelInfo)

	return v, records, nil
}

func (s *VacationServiceImpl) Get(ctx context.Context, id int64) (*Vacation, error) {
	return s.Repo.Get(ctx, id)
}

func (s *VacationServiceImpl) ListMine(ctx context.Context, userID string) ([]Vacation, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *VacationServiceImpl) Summary(ctx context.Context, targetID string) (map[string]interface{}, error) {
	id, err := strconv.ParseInt(targetID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid vacation id %q: %w", targetID, err)
	}

	v, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("vacation %d not found", id)
	}

	return map[string]interface{}{
		"supported":  true,
		"type":       v.Type,
		"start_date": v.StartDate.Format("2006-01-02"),
		"end_date":   v.EndDate.Format("2006-01-02"),
		"status":     v.Status,
	}, nil
}

func (s *VacationServiceImpl) ApplyFinalStatus(ctx context.Context, targetID string, status approval.Status, actorID string, at time.Time) error {
	id, err := strconv.ParseInt(targetID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid vacation id %q: %w", targetID, err)
	}

	var vacationStatus string
	switch status {
	case approval.StatusApproved:
		vacationStatus = StatusApproved
	case approval.StatusRejected:
		vacationStatus = StatusRejected
	default:
		return fmt.Errorf("unexpected terminal status %s for vacation %d", status, id)
	}

	if err := s.Repo.UpdateStatus(ctx, id, vacationStatus, actorID, at); err != nil {
		return err
	}

	history := &VacationHistory{
		VacationID: id,
		Status:     vacationStatus,
		ActorID:    actorID,
		CreatedAt:  at,
	}
	if err := s.Repo.InsertHistory(ctx, history); err != nil {
		// History is display-only; the status change already happened
		s.Logger.Warn("failed to append vacation history",
			zap.Int64("vacationId", id), zap.Error(err))
	}
	return nil
}
