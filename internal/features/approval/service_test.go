package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

var testNow = time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) (*ApprovalServiceImpl, *fakeHandler) {
	logger := zap.NewNop()
	registry := NewTargetRegistry()
	handler := &fakeHandler{}
	registry.Register("VACATION", handler)

	svc := &ApprovalServiceImpl{
		Repo:         repo,
		Registry:     registry,
		Resolver:     NewTemplateResolver(repo, logger),
		Directory:    engDirectory(),
		AuditService: &fakeAudit{},
		Logger:       logger,
		Clock:        &fixedClock{now: testNow},
	}
	return svc, handler
}

// seedLine persists the standard three-step ENG line for VACATION/42:
// part lead, team lead, dept head (final).
func seedLine(t *testing.T, repo *fakeRepo) []*Record {
	t.Helper()
	records := []*Record{
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-part", Step: 1, Status: StatusPending, CreatedAt: testNow},
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-lead", Step: 2, Status: StatusPending, CreatedAt: testNow},
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-head", Step: 3, Status: StatusPending, IsFinal: true, CreatedAt: testNow},
	}
	if err := repo.InsertLine(context.Background(), records); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	return records
}

func TestApproveSequence(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, handler := newTestService(repo)
	ctx := context.Background()

	for _, approver := range []string{"u-part", "u-lead"} {
		if err := svc.Approve(ctx, "VACATION", "42", approver); err != nil {
			t.Fatalf("Approve(%s) error: %v", approver, err)
		}
		if len(handler.calls) != 0 {
			t.Fatalf("non-final approval by %s propagated to the target", approver)
		}
	}

	if err := svc.Approve(ctx, "VACATION", "42", "u-head"); err != nil {
		t.Fatalf("Approve(final) error: %v", err)
	}

	if len(handler.calls) != 1 {
		t.Fatalf("final approval propagated %d times, want 1", len(handler.calls))
	}
	call := handler.calls[0]
	if call.TargetID != "42" || call.Status != StatusApproved || call.ActorID != "u-head" {
		t.Errorf("propagated %+v, want target 42 APPROVED by u-head", call)
	}
	if !call.At.Equal(testNow) {
		t.Errorf("propagated at %v, want clock time %v", call.At, testNow)
	}

	history, err := svc.History(ctx, "VACATION", "42")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d history entries, want 3", len(history))
	}
	for _, e := range history {
		if e.Action != ActionApprove || e.NewStatus != StatusApproved {
			t.Errorf("history entry %+v, want APPROVE -> APPROVED", e)
		}
	}
}

func TestApproveOutOfOrder(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, _ := newTestService(repo)

	err := svc.Approve(context.Background(), "VACATION", "42", "u-lead")
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("Approve() error = %v, want ErrOutOfOrder", err)
	}

	rec, _ := repo.RecordByTargetAndApprover(context.Background(), "VACATION", "42", "u-lead")
	if rec.Status != StatusPending {
		t.Errorf("out-of-order attempt changed status to %s", rec.Status)
	}
}

func TestApproveNotAuthorized(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, _ := newTestService(repo)

	err := svc.Approve(context.Background(), "VACATION", "42", "u-stranger")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Approve() error = %v, want ErrNotAuthorized", err)
	}
}

func TestApproveAlreadyProcessed(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if err := svc.Approve(ctx, "VACATION", "42", "u-part"); err != nil {
		t.Fatalf("first Approve() error: %v", err)
	}

	err := svc.Approve(ctx, "VACATION", "42", "u-part")
	var already *AlreadyProcessedError
	if !errors.As(err, &already) {
		t.Fatalf("second Approve() error = %v, want AlreadyProcessedError", err)
	}
	if already.Status != StatusApproved {
		t.Errorf("AlreadyProcessedError.Status = %s, want APPROVED", already.Status)
	}
}

func TestApproveLostRace(t *testing.T) {
	repo := newFakeRepo()
	records := seedLine(t, repo)
	svc, handler := newTestService(repo)

	// The guarded update reports zero affected rows, as when a concurrent
	// request resolved the record between the read and the write.
	repo.denyResolve[records[0].ID] = true

	err := svc.Approve(context.Background(), "VACATION", "42", "u-part")
	var already *AlreadyProcessedError
	if !errors.As(err, &already) {
		t.Fatalf("Approve() error = %v, want AlreadyProcessedError", err)
	}
	if len(handler.calls) != 0 {
		t.Error("lost race must not propagate any final status")
	}
}

func TestRejectCascade(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, handler := newTestService(repo)
	ctx := context.Background()

	if err := svc.Approve(ctx, "VACATION", "42", "u-part"); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if err := svc.Reject(ctx, "VACATION", "42", "u-lead", "dates clash with release"); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}

	records, _ := repo.ListByTarget(ctx, "VACATION", "42")
	wantStatus := []Status{StatusApproved, StatusRejected, StatusSkipped}
	for i, rec := range records {
		if rec.Status != wantStatus[i] {
			t.Errorf("step %d status = %s, want %s", rec.Step, rec.Status, wantStatus[i])
		}
	}

	if len(handler.calls) != 1 {
		t.Fatalf("rejection propagated %d times, want 1", len(handler.calls))
	}
	if handler.calls[0].Status != StatusRejected {
		t.Errorf("propagated status = %s, want REJECTED", handler.calls[0].Status)
	}

	history, _ := svc.History(ctx, "VACATION", "42")
	var rejects int
	for _, e := range history {
		if e.Action == ActionReject {
			rejects++
			if e.Memo != "dates clash with release" {
				t.Errorf("reject memo = %q", e.Memo)
			}
		}
	}
	if rejects != 1 {
		t.Errorf("got %d REJECT history entries, want 1", rejects)
	}
}

func TestRejectIsTerminalMidLine(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if err := svc.Reject(ctx, "VACATION", "42", "u-part", "no"); err != nil {
		t.Fatalf("Reject() error: %v", err)
	}

	// Later approvers have nothing actionable left.
	err := svc.Approve(ctx, "VACATION", "42", "u-lead")
	var already *AlreadyProcessedError
	if !errors.As(err, &already) {
		t.Fatalf("Approve() after rejection error = %v, want AlreadyProcessedError", err)
	}
	if already.Status != StatusSkipped {
		t.Errorf("skipped approver sees status %s, want SKIPPED", already.Status)
	}
}

func TestRejectHandlerFailurePreservesTerminality(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, handler := newTestService(repo)
	ctx := context.Background()

	// Target-side delivery fails mid-reject.
	handler.applyErr = errors.New("vacation table unavailable")
	if err := svc.Reject(ctx, "VACATION", "42", "u-part", "no"); err == nil {
		t.Fatal("Reject() succeeded despite failed delivery")
	}

	// The record-side cascade committed atomically: nothing is left pending.
	records, _ := repo.ListByTarget(ctx, "VACATION", "42")
	wantStatus := []Status{StatusRejected, StatusSkipped, StatusSkipped}
	for i, rec := range records {
		if rec.Status != wantStatus[i] {
			t.Errorf("step %d status = %s, want %s", rec.Step, rec.Status, wantStatus[i])
		}
	}

	// The final approver cannot push the rejected document to APPROVED.
	err := svc.Approve(ctx, "VACATION", "42", "u-head")
	var already *AlreadyProcessedError
	if !errors.As(err, &already) {
		t.Fatalf("Approve() after failed reject error = %v, want AlreadyProcessedError", err)
	}
	for _, call := range handler.calls {
		if call.Status == StatusApproved {
			t.Fatalf("handler received APPROVED for a rejected document: %+v", call)
		}
	}

	// Once the target recovers, the sweep re-delivers the rejection.
	handler.applyErr = nil
	delivered, err := svc.ReconcilePropagation(ctx)
	if err != nil {
		t.Fatalf("ReconcilePropagation() error: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("ReconcilePropagation() = %d, want 1", delivered)
	}
	last := handler.calls[len(handler.calls)-1]
	if last.Status != StatusRejected || last.TargetID != "42" {
		t.Errorf("re-delivered %+v, want REJECTED for target 42", last)
	}

	// Nothing left owing: a second pass delivers zero.
	if delivered, _ := svc.ReconcilePropagation(ctx); delivered != 0 {
		t.Errorf("second ReconcilePropagation() = %d, want 0", delivered)
	}
}

func TestApproveFinalPropagationRetry(t *testing.T) {
	repo := newFakeRepo()
	records := []*Record{
		{TargetType: "VACATION", TargetID: "77", RequesterID: "u-dev", ApproverID: "u-head", Step: 1, Status: StatusPending, IsFinal: true, CreatedAt: testNow},
	}
	if err := repo.InsertLine(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	svc, handler := newTestService(repo)
	ctx := context.Background()

	handler.applyErr = errors.New("vacation table unavailable")
	if err := svc.Approve(ctx, "VACATION", "77", "u-head"); err == nil {
		t.Fatal("Approve() succeeded despite failed delivery")
	}

	// The approval itself stands; only delivery is owed.
	rec, _ := repo.RecordByID(ctx, records[0].ID)
	if rec.Status != StatusApproved {
		t.Fatalf("record status = %s, want APPROVED", rec.Status)
	}
	if rec.PropagatedAt != nil {
		t.Fatal("failed delivery must not be marked propagated")
	}

	handler.applyErr = nil
	delivered, err := svc.ReconcilePropagation(ctx)
	if err != nil {
		t.Fatalf("ReconcilePropagation() error: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("ReconcilePropagation() = %d, want 1", delivered)
	}
	last := handler.calls[len(handler.calls)-1]
	if last.Status != StatusApproved || last.TargetID != "77" {
		t.Errorf("re-delivered %+v, want APPROVED for target 77", last)
	}
}

func TestApproveSameApproverTwoSteps(t *testing.T) {
	// The dept head proxies step 1 and also holds the final step. The
	// resolved proxy row must not shadow their still-pending own step.
	repo := newFakeRepo()
	records := []*Record{
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-head", Step: 1, Status: StatusPending, ProxyType: ProxyProxy, ProxyRole: "deptHead", CreatedAt: testNow},
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-lead", Step: 2, Status: StatusPending, CreatedAt: testNow},
		{TargetType: "VACATION", TargetID: "42", RequesterID: "u-dev", ApproverID: "u-head", Step: 3, Status: StatusPending, IsFinal: true, CreatedAt: testNow},
	}
	if err := repo.InsertLine(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	svc, handler := newTestService(repo)
	ctx := context.Background()

	for _, approver := range []string{"u-head", "u-lead", "u-head"} {
		if err := svc.Approve(ctx, "VACATION", "42", approver); err != nil {
			t.Fatalf("Approve(%s) error: %v", approver, err)
		}
	}

	final, _ := repo.RecordByID(ctx, records[2].ID)
	if final.Status != StatusApproved {
		t.Fatalf("final step status = %s, want APPROVED", final.Status)
	}
	if len(handler.calls) != 1 || handler.calls[0].Status != StatusApproved {
		t.Fatalf("propagation calls = %+v, want one APPROVED", handler.calls)
	}
}

func TestApproveFinalWithoutHandler(t *testing.T) {
	repo := newFakeRepo()
	records := []*Record{
		{TargetType: "KPI", TargetID: "7", RequesterID: "u-dev", ApproverID: "u-head", Step: 1, Status: StatusPending, IsFinal: true, CreatedAt: testNow},
	}
	if err := repo.InsertLine(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	svc, _ := newTestService(repo)

	// No handler registered for KPI: the transition stands, nothing propagates.
	if err := svc.Approve(context.Background(), "KPI", "7", "u-head"); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	rec, _ := repo.RecordByID(context.Background(), records[0].ID)
	if rec.Status != StatusApproved {
		t.Errorf("record status = %s, want APPROVED", rec.Status)
	}
}

func TestHistorySurvivesWriteFailure(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	repo.historyErr = errors.New("history table unavailable")
	svc, _ := newTestService(repo)

	// The primary transition must stand even when the history append fails.
	if err := svc.Approve(context.Background(), "VACATION", "42", "u-part"); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	rec, _ := repo.RecordByTargetAndApprover(context.Background(), "VACATION", "42", "u-part")
	if rec.Status != StatusApproved {
		t.Errorf("record status = %s, want APPROVED", rec.Status)
	}
}

func TestDetail(t *testing.T) {
	repo := newFakeRepo()
	seedLine(t, repo)
	svc, _ := newTestService(repo)
	ctx := context.Background()

	if err := svc.Approve(ctx, "VACATION", "42", "u-part"); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	detail, err := svc.Detail(ctx, "VACATION", "42")
	if err != nil {
		t.Fatalf("Detail() error: %v", err)
	}
	if detail == nil {
		t.Fatal("Detail() returned nil for an existing line")
	}

	if detail.Status != StatusPending {
		t.Errorf("overall status = %s, want PENDING", detail.Status)
	}
	if detail.CurrentApproverID == nil || *detail.CurrentApproverID != "u-lead" {
		t.Errorf("CurrentApproverID = %v, want u-lead", detail.CurrentApproverID)
	}
	if len(detail.Records) != 3 {
		t.Errorf("got %d records, want 3", len(detail.Records))
	}
	if resolved, ok := detail.Approvers["resolvedNow"].(bool); !ok || !resolved {
		t.Error("approvers map must be labeled resolvedNow")
	}
}

func TestDetailUnknownTarget(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	detail, err := svc.Detail(context.Background(), "VACATION", "999")
	if err != nil {
		t.Fatalf("Detail() error: %v", err)
	}
	if detail != nil {
		t.Fatalf("Detail() = %+v, want nil for a target with no records", detail)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    Status
	}{
		{
			name:    "all pending",
			records: []Record{{Status: StatusPending}, {Status: StatusPending, IsFinal: true}},
			want:    StatusPending,
		},
		{
			name:    "rejection wins",
			records: []Record{{Status: StatusApproved}, {Status: StatusRejected}, {Status: StatusSkipped, IsFinal: true}},
			want:    StatusRejected,
		},
		{
			name:    "approved only once the final step is",
			records: []Record{{Status: StatusApproved}, {Status: StatusPending, IsFinal: true}},
			want:    StatusPending,
		},
		{
			name:    "final step approved",
			records: []Record{{Status: StatusApproved}, {Status: StatusApproved, IsFinal: true}},
			want:    StatusApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.records); got != tt.want {
				t.Errorf("overallStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLinePreview(t *testing.T) {
	repo := newFakeRepo()
	repo.templates = engTemplates()
	svc, _ := newTestService(repo)

	preview, err := svc.LinePreview(context.Background(), "VACATION", "ENG", "platform", "basic", "staff")
	if err != nil {
		t.Fatalf("LinePreview() error: %v", err)
	}
	if len(preview) != 3 {
		t.Fatalf("got %d preview steps, want 3", len(preview))
	}

	// The SKIP step shows in the preview but carries no candidate.
	if preview[0].ProxyType != ProxySkip || preview[0].Candidate != nil {
		t.Errorf("skip step preview = %+v, want no candidate", preview[0])
	}
	if preview[1].Candidate == nil || preview[1].Candidate["id"] != "u-lead" {
		t.Errorf("team lead candidate = %v, want u-lead", preview[1].Candidate)
	}
}
