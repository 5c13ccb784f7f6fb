package finance

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// SyncPlan is the delta between existing tag edges and a desired tag set.
// Edges are only deleted and inserted, never updated in place, which keeps
// re-running a plan trivially idempotent.
type SyncPlan struct {
	Deletes []domain.TagAssociation
	Inserts []domain.TagAssociation
}

// Empty reports whether the plan has no work.
func (p SyncPlan) Empty() bool { return len(p.Deletes) == 0 && len(p.Inserts) == 0 }

// PlanTagSync diffs the existing edges of the given entities against the
// desired tag-id set. Pure: same inputs, same plan.
func PlanTagSync(existing []domain.TagAssociation, entityIDs, desiredTagIDs []uuid.UUID, accountID domain.AccountID) SyncPlan {
	desired := make(map[uuid.UUID]bool, len(desiredTagIDs))
	for _, id := range desiredTagIDs {
		desired[id] = true
	}
	inScope := make(map[uuid.UUID]bool, len(entityIDs))
	for _, id := range entityIDs {
		inScope[id] = true
	}

	have := make(map[uuid.UUID]map[uuid.UUID]bool, len(entityIDs))
	var plan SyncPlan
	for _, edge := range existing {
		if !inScope[edge.EntityID] {
			continue
		}
		if !desired[edge.TagID] {
			plan.Deletes = append(plan.Deletes, edge)
			continue
		}
		if have[edge.EntityID] == nil {
			have[edge.EntityID] = make(map[uuid.UUID]bool)
		}
		have[edge.EntityID][edge.TagID] = true
	}
	for _, entityID := range entityIDs {
		for _, tagID := range desiredTagIDs {
			if have[entityID][tagID] {
				continue
			}
			plan.Inserts = append(plan.Inserts, domain.TagAssociation{
				EntityID:  entityID,
				TagID:     tagID,
				AccountID: accountID,
			})
		}
	}
	return plan
}

// TagSyncer reconciles tag edges for cashflow entities against a desired tag
// set. Syncs for the same entity kind serialize on an internal mutex so an
// in-flight sync is never raced by a second one.
type TagSyncer struct {
	tags  ports.TagRepository
	locks map[domain.TagEntityKind]*sync.Mutex
}

// NewTagSyncer creates a syncer over the tag repository.
func NewTagSyncer(tags ports.TagRepository) *TagSyncer {
	return &TagSyncer{
		tags: tags,
		locks: map[domain.TagEntityKind]*sync.Mutex{
			domain.TagEntitySingleCashFlow:    {},
			domain.TagEntityRecurringCashFlow: {},
		},
	}
}

// Sync fetches the existing edges for the entity set in one round trip,
// plans the delta and applies it in a single transaction. Calling it twice
// with the same desired set performs no mutations on the second call.
func (s *TagSyncer) Sync(ctx context.Context, kind domain.TagEntityKind, entityIDs, desiredTagIDs []uuid.UUID, accountID domain.AccountID) error {
	if len(entityIDs) == 0 {
		return nil
	}
	if mu, ok := s.locks[kind]; ok {
		mu.Lock()
		defer mu.Unlock()
	}
	existing, err := s.tags.ListAssociations(ctx, kind, entityIDs)
	if err != nil {
		return err
	}
	plan := PlanTagSync(existing, entityIDs, desiredTagIDs, accountID)
	if plan.Empty() {
		return nil
	}
	return s.tags.ApplyDiff(ctx, kind, plan.Deletes, plan.Inserts)
}
