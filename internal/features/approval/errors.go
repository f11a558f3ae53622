package approval

import (
	"errors"
	"fmt"
)

// ErrNoRoute means the filtered template set for a submission came out empty.
// Fatal to submission; not retryable without fixing route configuration.
var ErrNoRoute = errors.New("no matching approval route")

// ErrNotAuthorized means the actor holds no approval record for the document.
var ErrNotAuthorized = errors.New("actor is not an approver for this document")

// ErrOutOfOrder means an earlier step is still unresolved. Steps are strictly
// sequential within a route.
var ErrOutOfOrder = errors.New("an earlier approval step is still pending")

// ErrUnsupportedTarget means no handler is registered for the target type on a
// mutating operation. Read paths degrade to a placeholder summary instead.
var ErrUnsupportedTarget = errors.New("unsupported target type")

// AlreadyProcessedError means the record left PENDING before this call.
// The client holds a stale view and should refetch.
type AlreadyProcessedError struct {
	Status Status
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("approval already processed (status %s)", e.Status)
}

// MissingApproverError aborts materialization: a required step has no
// resolvable approver. Nothing is committed.
type MissingApproverError struct {
	Step     int
	RoleCode string
}

func (e *MissingApproverError) Error() string {
	return fmt.Sprintf("no active approver for required step %d (role %s)", e.Step, e.RoleCode)
}
