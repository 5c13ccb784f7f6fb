package finance

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

type fakeTagRepo struct {
	edges      map[domain.TagEntityKind][]domain.TagAssociation
	applyCalls int
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{edges: make(map[domain.TagEntityKind][]domain.TagAssociation)}
}

func (f *fakeTagRepo) ListAssociations(ctx context.Context, kind domain.TagEntityKind, entityIDs []uuid.UUID) ([]domain.TagAssociation, error) {
	inScope := make(map[uuid.UUID]bool)
	for _, id := range entityIDs {
		inScope[id] = true
	}
	var out []domain.TagAssociation
	for _, e := range f.edges[kind] {
		if inScope[e.EntityID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeTagRepo) ApplyDiff(ctx context.Context, kind domain.TagEntityKind, deletes, inserts []domain.TagAssociation) error {
	f.applyCalls++
	kept := f.edges[kind][:0]
	for _, e := range f.edges[kind] {
		drop := false
		for _, d := range deletes {
			if d.EntityID == e.EntityID && d.TagID == e.TagID {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, e)
		}
	}
	f.edges[kind] = append(kept, inserts...)
	return nil
}

func TestPlanTagSyncDiff(t *testing.T) {
	account := domain.NewAccountID(uuid.New())
	entity := uuid.New()
	keep, drop, add := uuid.New(), uuid.New(), uuid.New()
	existing := []domain.TagAssociation{
		{EntityID: entity, TagID: keep, AccountID: account},
		{EntityID: entity, TagID: drop, AccountID: account},
	}

	plan := PlanTagSync(existing, []uuid.UUID{entity}, []uuid.UUID{keep, add}, account)
	if len(plan.Deletes) != 1 || plan.Deletes[0].TagID != drop {
		t.Errorf("Deletes = %+v, want only the stale edge", plan.Deletes)
	}
	if len(plan.Inserts) != 1 || plan.Inserts[0].TagID != add {
		t.Errorf("Inserts = %+v, want only the new edge", plan.Inserts)
	}
}

func TestPlanTagSyncMultipleEntities(t *testing.T) {
	account := domain.NewAccountID(uuid.New())
	e1, e2 := uuid.New(), uuid.New()
	tag := uuid.New()
	existing := []domain.TagAssociation{{EntityID: e1, TagID: tag, AccountID: account}}

	plan := PlanTagSync(existing, []uuid.UUID{e1, e2}, []uuid.UUID{tag}, account)
	if len(plan.Deletes) != 0 {
		t.Errorf("Deletes = %+v, want none", plan.Deletes)
	}
	if len(plan.Inserts) != 1 || plan.Inserts[0].EntityID != e2 {
		t.Errorf("Inserts = %+v, want the missing edge on e2", plan.Inserts)
	}
}

func TestTagSyncerIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTagRepo()
	syncer := NewTagSyncer(repo)
	account := domain.NewAccountID(uuid.New())
	entity := uuid.New()
	t1, t2 := uuid.New(), uuid.New()

	if err := syncer.Sync(ctx, domain.TagEntitySingleCashFlow, []uuid.UUID{entity}, []uuid.UUID{t1, t2}, account); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if repo.applyCalls != 1 {
		t.Fatalf("applyCalls = %d, want 1", repo.applyCalls)
	}
	if err := syncer.Sync(ctx, domain.TagEntitySingleCashFlow, []uuid.UUID{entity}, []uuid.UUID{t1, t2}, account); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	// Second identical call plans no work and never touches the store.
	if repo.applyCalls != 1 {
		t.Errorf("applyCalls after identical sync = %d, want 1", repo.applyCalls)
	}
	if got := len(repo.edges[domain.TagEntitySingleCashFlow]); got != 2 {
		t.Errorf("edges = %d, want 2", got)
	}
}

func TestTagSyncerReplacesStaleEdges(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTagRepo()
	syncer := NewTagSyncer(repo)
	account := domain.NewAccountID(uuid.New())
	entity := uuid.New()
	old, fresh := uuid.New(), uuid.New()

	if err := syncer.Sync(ctx, domain.TagEntityRecurringCashFlow, []uuid.UUID{entity}, []uuid.UUID{old}, account); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := syncer.Sync(ctx, domain.TagEntityRecurringCashFlow, []uuid.UUID{entity}, []uuid.UUID{fresh}, account); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	edges := repo.edges[domain.TagEntityRecurringCashFlow]
	if len(edges) != 1 || edges[0].TagID != fresh {
		t.Errorf("edges = %+v, want only the fresh tag", edges)
	}
}
