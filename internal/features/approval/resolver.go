package approval

import (
	"context"

	"go-groupware/pkg/condition"

	"go.uber.org/zap"
)

// TemplateResolver selects and filters the route template steps that apply to
// one requester. Conditions are compiled once per load, and a condition that
// fails to parse excludes its step (fail closed): a malformed template must
// never widen an approval line.
type TemplateResolver struct {
	Repo   ApprovalRepository
	Logger *zap.Logger
}

func NewTemplateResolver(repo ApprovalRepository, logger *zap.Logger) *TemplateResolver {
	return &TemplateResolver{Repo: repo, Logger: logger}
}

// ResolveRoute returns the ordered, condition-filtered steps for a submission.
// An empty result is ErrNoRoute — fatal to submission, not retryable without
// fixing configuration.
func (r *TemplateResolver) ResolveRoute(ctx context.Context, documentType, departmentCode, teamCode, routeName, requesterRole string) ([]LineTemplate, error) {
	steps, err := r.Repo.TemplateSteps(ctx, documentType, departmentCode, teamCode, routeName)
	if err != nil {
		return nil, err
	}

	var filtered []LineTemplate
	for _, step := range steps {
		expr, err := condition.Parse(step.Condition)
		if err != nil {
			r.Logger.Warn("unparseable step condition, excluding step",
				zap.String("documentType", documentType),
				zap.String("routeName", routeName),
				zap.Int("step", step.Step),
				zap.String("condition", step.Condition),
				zap.Error(err))
			continue
		}
		if !expr.Eval(requesterRole) {
			continue
		}
		filtered = append(filtered, step)
	}

	if len(filtered) == 0 {
		return nil, ErrNoRoute
	}
	return filtered, nil
}
