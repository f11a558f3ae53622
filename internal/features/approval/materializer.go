package approval

import (
	"context"

	"go-groupware/internal/common/clock"
	"go-groupware/internal/features/directory"

	"go.uber.org/zap"
)

// Materializer turns a filtered route template into persisted approval records
// for one target document. All-or-nothing: a required step without a
// resolvable approver aborts the whole line before anything is committed.
type Materializer struct {
	Resolver  *TemplateResolver
	Repo      ApprovalRepository
	Directory directory.DirectoryService
	Logger    *zap.Logger
	Clock     clock.Clock
}

func NewMaterializer(
	resolver *TemplateResolver,
	repo ApprovalRepository,
	dir directory.DirectoryService,
	logger *zap.Logger,
	clk clock.Clock,
) *Materializer {
	return &Materializer{
		Resolver:  resolver,
		Repo:      repo,
		Directory: dir,
		Logger:    logger,
		Clock:     clk,
	}
}

// Materialize resolves each applicable template step to a concrete approver
// and persists the resulting line in one transaction.
func (m *Materializer) Materialize(ctx context.Context, in MaterializeInput) ([]*Record, error) {
	steps, err := m.Resolver.ResolveRoute(ctx, in.TargetType, in.Requester.DepartmentCode, in.Requester.TeamCode, in.RouteName, in.Requester.PositionCode)
	if err != nil {
		return nil, err
	}

	now := m.Clock.Now()
	var records []*Record

	for _, step := range steps {
		if step.ProxyType == ProxySkip {
			// Structurally absent from the line; never counted for is_final.
			continue
		}

		var approverID string

		switch {
		case in.Requester.PositionCode == step.RoleCode:
			// The requester already satisfies this step's rank.
			approverID = in.Requester.ID

		case step.ProxyType == ProxyProxy:
			user, err := m.Directory.FirstActiveByRole(ctx, in.Requester.DepartmentCode, "", step.ProxyRole)
			if err != nil {
				return nil, err
			}
			if user != nil {
				approverID = user.ID
			}

		default:
			user, err := m.Directory.FirstActiveByRole(ctx, in.Requester.DepartmentCode, "", step.RoleCode)
			if err != nil {
				return nil, err
			}
			if user != nil {
				approverID = user.ID
			}
		}

		if approverID == "" {
			if step.Required {
				return nil, &MissingApproverError{Step: step.Step, RoleCode: step.RoleCode}
			}
			m.Logger.Info("optional step has no active approver, skipping",
				zap.String("targetType", in.TargetType),
				zap.String("targetId", in.TargetID),
				zap.Int("step", step.Step),
				zap.String("roleCode", step.RoleCode))
			continue
		}

		records = append(records, &Record{
			TargetType:  in.TargetType,
			TargetID:    in.TargetID,
			RequesterID: in.Requester.ID,
			ApproverID:  approverID,
			Step:        step.Step,
			Status:      StatusPending,
			ProxyType:   step.ProxyType,
			ProxyRole:   step.ProxyRole,
			DueAt:       in.DueAt,
			CreatedAt:   now,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoRoute
	}

	records[len(records)-1].IsFinal = true

	if err := m.Repo.InsertLine(ctx, records); err != nil {
		return nil, err
	}

	m.Logger.Info("approval line materialized",
		zap.String("targetType", in.TargetType),
		zap.String("targetId", in.TargetID),
		zap.Int("steps", len(records)))

	return records, nil
}
