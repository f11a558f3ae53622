package approval

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-groupware/internal/features/audit"
	"go-groupware/internal/features/directory"
)

// fakeRepo is an in-memory ApprovalRepository for engine tests.
type fakeRepo struct {
	mu        sync.Mutex
	templates []LineTemplate
	records   []*Record
	histories []HistoryEntry
	nextID    int64

	insertLineErr error
	historyErr    error
	// denyResolve forces ResolveLine to report zero affected rows for the
	// given record ids, simulating a lost double-submit race.
	denyResolve map[int64]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{denyResolve: map[int64]bool{}}
}

func (f *fakeRepo) TemplateSteps(_ context.Context, documentType, departmentCode, teamCode, routeName string) ([]LineTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var steps []LineTemplate
	for _, t := range f.templates {
		if t.DocumentType != documentType || t.DepartmentCode != departmentCode || t.RouteName != routeName {
			continue
		}
		if teamCode != "" && t.TeamCode != "" && t.TeamCode != teamCode {
			continue
		}
		steps = append(steps, t)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Step < steps[j].Step })
	return steps, nil
}

func (f *fakeRepo) InsertLine(_ context.Context, records []*Record) error {
	if f.insertLineErr != nil {
		return f.insertLineErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		f.nextID++
		rec.ID = f.nextID
		f.records = append(f.records, rec)
	}
	return nil
}

func (f *fakeRepo) RecordByTargetAndApprover(_ context.Context, targetType, targetID, approverID string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found *Record
	for _, rec := range f.records {
		if rec.TargetType != targetType || rec.TargetID != targetID || rec.ApproverID != approverID {
			continue
		}
		recPending := rec.Status == StatusPending
		switch {
		case found == nil:
			found = rec
		case recPending && found.Status != StatusPending:
			found = rec
		case recPending == (found.Status == StatusPending) && rec.Step < found.Step:
			found = rec
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (f *fakeRepo) RecordByID(_ context.Context, id int64) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListByTarget(_ context.Context, targetType, targetID string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if rec.TargetType == targetType && rec.TargetID == targetID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func (f *fakeRepo) MinPendingStep(_ context.Context, targetType, targetID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	min, found := 0, false
	for _, rec := range f.records {
		if rec.TargetType == targetType && rec.TargetID == targetID && rec.Status == StatusPending {
			if !found || rec.Step < min {
				min, found = rec.Step, true
			}
		}
	}
	return min, found, nil
}

func (f *fakeRepo) ResolveLine(_ context.Context, id int64, targetType, targetID string, to Status, memo string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denyResolve[id] {
		return false, nil
	}

	resolved := false
	for _, rec := range f.records {
		if rec.ID == id && rec.Status == StatusPending {
			rec.Status = to
			rec.Memo = memo
			t := at
			rec.ApprovedAt = &t
			resolved = true
		}
	}
	if !resolved {
		return false, nil
	}

	if to == StatusRejected {
		for _, rec := range f.records {
			if rec.TargetType == targetType && rec.TargetID == targetID && rec.ID != id && rec.Status == StatusPending {
				rec.Status = StatusSkipped
				t := at
				rec.ApprovedAt = &t
			}
		}
	}
	return true, nil
}

func (f *fakeRepo) MarkPropagated(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			t := at
			rec.PropagatedAt = &t
		}
	}
	return nil
}

func (f *fakeRepo) UnpropagatedFinals(_ context.Context) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if rec.PropagatedAt != nil {
			continue
		}
		if rec.Status == StatusRejected || (rec.Status == StatusApproved && rec.IsFinal) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByApprover(_ context.Context, approverID, targetType string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if rec.ApproverID == approverID && (targetType == "" || rec.TargetType == targetType) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByRequester(_ context.Context, requesterID, targetType string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if rec.RequesterID == requesterID && (targetType == "" || rec.TargetType == targetType) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAllByType(_ context.Context, targetType string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if targetType == "" || rec.TargetType == targetType {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) OverduePending(_ context.Context, now time.Time) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Record
	for _, rec := range f.records {
		if rec.Status == StatusPending && rec.DueAt != nil && rec.DueAt.Before(now) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertHistory(_ context.Context, entry *HistoryEntry) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	entry.ID = f.nextID
	f.histories = append(f.histories, *entry)
	return nil
}

func (f *fakeRepo) HistoryByTarget(_ context.Context, targetType, targetID string) ([]HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []HistoryEntry
	for _, e := range f.histories {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].PerformedAt.After(out[j].PerformedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// fakeDirectory serves a static org chart.
type fakeDirectory struct {
	ranks map[string]int
	users []directory.UserRef
}

func (f *fakeDirectory) RankOf(positionCode string) int {
	if rank, ok := f.ranks[positionCode]; ok {
		return rank
	}
	return directory.UnknownRank
}

func (f *fakeDirectory) ActiveUsersByRoleAndOrg(_ context.Context, departmentCode, teamCode, positionCode string) ([]directory.UserRef, error) {
	var out []directory.UserRef
	for _, u := range f.users {
		if u.DepartmentCode != departmentCode || u.PositionCode != positionCode {
			continue
		}
		if teamCode != "" && u.TeamCode != teamCode {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeDirectory) FirstActiveByRole(ctx context.Context, departmentCode, teamCode, positionCode string) (*directory.UserRef, error) {
	users, err := f.ActiveUsersByRoleAndOrg(ctx, departmentCode, teamCode, positionCode)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return &users[0], nil
}

func (f *fakeDirectory) FallbackApprover(ctx context.Context, departmentCode, teamCode, positionCode string) (*directory.UserRef, error) {
	if user, err := f.FirstActiveByRole(ctx, departmentCode, teamCode, positionCode); err != nil || user != nil {
		return user, err
	}

	own := f.RankOf(positionCode)
	type candidate struct {
		code string
		rank int
	}
	var senior []candidate
	for code, rank := range f.ranks {
		if code != positionCode && rank < own {
			senior = append(senior, candidate{code: code, rank: rank})
		}
	}
	sort.Slice(senior, func(i, j int) bool { return senior[i].rank > senior[j].rank })
	for _, c := range senior {
		if user, err := f.FirstActiveByRole(ctx, departmentCode, teamCode, c.code); err != nil || user != nil {
			return user, err
		}
	}
	return nil, nil
}

func (f *fakeDirectory) UserByID(_ context.Context, id string) (*directory.UserRef, error) {
	for _, u := range f.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) PositionLabel(_ context.Context, userID string) (*directory.PositionLabel, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return &directory.PositionLabel{
				UserID:         u.ID,
				Name:           u.Name,
				DepartmentCode: u.DepartmentCode,
				PositionCode:   u.PositionCode,
			}, nil
		}
	}
	return nil, nil
}

// fakeAudit captures Record calls synchronously.
type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAudit) Record(action, actorID, detail, level string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeAudit) List(_ context.Context, page, limit int64) ([]audit.AuditLog, error) {
	return nil, nil
}

// fixedClock pins Now for deterministic timestamps.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type finalCall struct {
	TargetID string
	Status   Status
	ActorID  string
	At       time.Time
}

// fakeHandler records ApplyFinalStatus propagation.
type fakeHandler struct {
	mu       sync.Mutex
	summary  map[string]interface{}
	calls    []finalCall
	applyErr error
}

func (f *fakeHandler) Summary(_ context.Context, targetID string) (map[string]interface{}, error) {
	if f.summary != nil {
		return f.summary, nil
	}
	return map[string]interface{}{"id": targetID}, nil
}

func (f *fakeHandler) ApplyFinalStatus(_ context.Context, targetID string, status Status, actorID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, finalCall{TargetID: targetID, Status: status, ActorID: actorID, At: at})
	return f.applyErr
}
