package approval

import (
	"context"
	"sync"
	"time"
)

// TargetHandler is the per-document-type extension point. The engine stays
// closed over unknown types: lookups that miss fall back to a placeholder
// summary on reads and ErrUnsupportedTarget on writes.
type TargetHandler interface {
	// Summary returns the type-specific projection shown in approval lists
	// and the detail view.
	Summary(ctx context.Context, targetID string) (map[string]interface{}, error)

	// ApplyFinalStatus propagates the terminal approval outcome onto the
	// target entity (status, approver, timestamp) and appends the target's
	// own history row.
	ApplyFinalStatus(ctx context.Context, targetID string, status Status, actorID string, at time.Time) error
}

// TargetRegistry maps target_type codes (VACATION, KPI, ...) to handlers.
// Registration happens at construction time in each target feature.
type TargetRegistry struct {
	mu       sync.RWMutex
	handlers map[string]TargetHandler
}

func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{handlers: make(map[string]TargetHandler)}
}

func (r *TargetRegistry) Register(targetType string, handler TargetHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[targetType] = handler
}

func (r *TargetRegistry) Lookup(targetType string) (TargetHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[targetType]
	return h, ok
}

// unsupportedSummary is what list endpoints show for unregistered types.
func unsupportedSummary(targetType string) map[string]interface{} {
	return map[string]interface{}{
		"supported":   false,
		"target_type": targetType,
	}
}
