package timer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

type fakeEntryRepo struct {
	entries []*domain.WorkTimeEntry
	failing bool
}

func (f *fakeEntryRepo) Create(ctx context.Context, entry *domain.WorkTimeEntry) error {
	if f.failing {
		return errors.New("store unavailable")
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeEntryRepo) ListByProject(ctx context.Context, accountID domain.AccountID, projectID domain.ProjectID) ([]*domain.WorkTimeEntry, error) {
	return f.entries, nil
}

type fakeSnapshotRepo struct {
	snaps map[domain.TimerID]*domain.TimerSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snaps: make(map[domain.TimerID]*domain.TimerSnapshot)}
}

func (f *fakeSnapshotRepo) Save(ctx context.Context, snap *domain.TimerSnapshot) error {
	copied := *snap
	f.snaps[snap.ID] = &copied
	return nil
}

func (f *fakeSnapshotRepo) Delete(ctx context.Context, id domain.TimerID) error {
	delete(f.snaps, id)
	return nil
}

func (f *fakeSnapshotRepo) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*domain.TimerSnapshot, error) {
	return f.ListAll(ctx)
}

func (f *fakeSnapshotRepo) ListAll(ctx context.Context) ([]*domain.TimerSnapshot, error) {
	out := make([]*domain.TimerSnapshot, 0, len(f.snaps))
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out, nil
}

func testAccount() *domain.Account {
	return &domain.Account{ID: domain.NewAccountID(uuid.New()), Name: "tester"}
}

func testProject(name string) *domain.Project {
	return &domain.Project{
		ID:         domain.NewProjectID(uuid.New()),
		Name:       name,
		HourlyRate: decimal.NewFromInt(60),
		Currency:   "EUR",
	}
}

func newTestManager(entries *fakeEntryRepo, snaps *fakeSnapshotRepo) *Manager {
	return NewManager(ManagerConfig{
		Capacity:        10,
		AutoStopOthers:  true,
		DefaultRounding: domain.RoundingSettings{Interval: 1, Direction: domain.RoundNearest},
	}, entries, snaps, nil, zerolog.Nop())
}

func TestManagerCapacity(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakeEntryRepo{}, newFakeSnapshotRepo())
	account := testAccount()
	for i := 0; i < 10; i++ {
		if _, err := m.Add(ctx, account, testProject(fmt.Sprintf("p%d", i))); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if _, err := m.Add(ctx, account, testProject("overflow")); !errors.Is(err, domerrors.ErrTimerLimit) {
		t.Fatalf("11th Add = %v, want ErrTimerLimit", err)
	}
	if got := len(m.All()); got != 10 {
		t.Errorf("registry size after rejected Add = %d, want 10", got)
	}
}

func TestManagerDuplicateProject(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakeEntryRepo{}, newFakeSnapshotRepo())
	account := testAccount()
	project := testProject("acme")
	if _, err := m.Add(ctx, account, project); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := m.Add(ctx, account, project); !errors.Is(err, domerrors.ErrDuplicateTimer) {
		t.Fatalf("duplicate Add = %v, want ErrDuplicateTimer", err)
	}
	if got := len(m.All()); got != 1 {
		t.Errorf("registry size = %d, want 1", got)
	}
}

func TestManagerAutoStopOthers(t *testing.T) {
	ctx := context.Background()
	entries := &fakeEntryRepo{}
	m := newTestManager(entries, newFakeSnapshotRepo())
	account := testAccount()

	first, err := m.Add(ctx, account, testProject("one"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := m.Add(ctx, account, testProject("two"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := m.Start(ctx, first.ID()); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	if err := m.Start(ctx, second.ID()); err != nil {
		t.Fatalf("Start second: %v", err)
	}

	if got := m.RunningCount(); got != 1 {
		t.Errorf("RunningCount = %d, want 1", got)
	}
	active := m.ActiveTimer()
	if active == nil || active.ID() != second.ID() {
		t.Errorf("ActiveTimer is not the newly started timer")
	}
	// The first timer was submitted, not dropped.
	if len(entries.entries) != 1 {
		t.Fatalf("entries written = %d, want 1", len(entries.entries))
	}
	if _, err := m.Get(first.ID()); !errors.Is(err, domerrors.ErrTimerNotFound) {
		t.Errorf("first timer should be gone after auto-stop, got %v", err)
	}
}

func TestManagerAutoStopFailureAbortsStart(t *testing.T) {
	ctx := context.Background()
	entries := &fakeEntryRepo{}
	m := newTestManager(entries, newFakeSnapshotRepo())
	account := testAccount()

	first, _ := m.Add(ctx, account, testProject("one"))
	second, _ := m.Add(ctx, account, testProject("two"))
	if err := m.Start(ctx, first.ID()); err != nil {
		t.Fatalf("Start first: %v", err)
	}

	entries.failing = true
	if err := m.Start(ctx, second.ID()); err == nil {
		t.Fatal("Start should fail when auto-stop submission fails")
	}
	if got := m.RunningCount(); got != 1 {
		t.Errorf("RunningCount = %d, want 1 (only the first timer)", got)
	}
	if second.State() != domain.TimerStopped {
		t.Errorf("second timer state = %s, want stopped", second.State())
	}
}

func TestManagerSubmitWritesEntryAndRemoves(t *testing.T) {
	ctx := context.Background()
	entries := &fakeEntryRepo{}
	snaps := newFakeSnapshotRepo()
	m := newTestManager(entries, snaps)
	account := testAccount()
	project := testProject("acme")

	clock, err := m.Add(ctx, account, project)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	fn := &fakeNow{t: testBase}
	clock.now = fn.now
	if err := m.Start(ctx, clock.ID()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fn.advance(45 * time.Minute)

	entry, err := m.Submit(ctx, clock.ID(), "sprint work")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if entry.ActiveSeconds != 2700 {
		t.Errorf("ActiveSeconds = %d, want 2700", entry.ActiveSeconds)
	}
	if entry.Memo != "sprint work" {
		t.Errorf("Memo = %q", entry.Memo)
	}
	if entry.ProjectID != project.ID {
		t.Errorf("ProjectID mismatch")
	}
	if len(m.All()) != 0 {
		t.Errorf("registry should be empty after submit")
	}
	if len(snaps.snaps) != 0 {
		t.Errorf("snapshot should be deleted after submit")
	}
}

func TestManagerSubmitFailureKeepsTimer(t *testing.T) {
	ctx := context.Background()
	entries := &fakeEntryRepo{failing: true}
	m := newTestManager(entries, newFakeSnapshotRepo())
	account := testAccount()

	clock, _ := m.Add(ctx, account, testProject("acme"))
	if err := m.Start(ctx, clock.ID()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Submit(ctx, clock.ID(), ""); err == nil {
		t.Fatal("Submit should surface the persistence failure")
	}
	// The timer stays registered and running for a retry.
	if got := m.RunningCount(); got != 1 {
		t.Errorf("RunningCount = %d, want 1", got)
	}
	entries.failing = false
	if _, err := m.Submit(ctx, clock.ID(), ""); err != nil {
		t.Fatalf("retried Submit: %v", err)
	}
}

func TestManagerRestore(t *testing.T) {
	ctx := context.Background()
	snaps := newFakeSnapshotRepo()
	entries := &fakeEntryRepo{}

	m1 := newTestManager(entries, snaps)
	account := testAccount()
	clock, _ := m1.Add(ctx, account, testProject("acme"))
	fn := &fakeNow{t: testBase}
	clock.now = fn.now
	if err := m1.Start(ctx, clock.ID()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	m2 := newTestManager(entries, snaps)
	if err := m2.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := m2.Get(clock.ID())
	if err != nil {
		t.Fatalf("Get after restore: %v", err)
	}
	later := &fakeNow{t: testBase.Add(120 * time.Second)}
	restored.now = later.now
	if got := restored.ActiveSeconds(); got != 120 {
		t.Errorf("restored ActiveSeconds = %d, want 120", got)
	}
	if m2.GetByProject(clock.ProjectID()) == nil {
		t.Errorf("project index not rebuilt on restore")
	}
}

func TestManagerSweepForceEnded(t *testing.T) {
	ctx := context.Background()
	entries := &fakeEntryRepo{}
	m := newTestManager(entries, newFakeSnapshotRepo())
	account := testAccount()

	clock, _ := m.Add(ctx, account, testProject("acme"))
	if err := m.Start(ctx, clock.ID()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.SetForceEnd(clock.ID(), true); err != nil {
		t.Fatalf("SetForceEnd: %v", err)
	}
	m.SweepForceEnded(ctx)
	if len(entries.entries) != 1 {
		t.Errorf("entries written = %d, want 1", len(entries.entries))
	}
	if len(m.All()) != 0 {
		t.Errorf("registry should be empty after sweep")
	}
}
