package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

type fakeRuleRepo struct {
	rules []*domain.RecurringCashFlow
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *domain.RecurringCashFlow) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.RecurringCashFlow, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) List(ctx context.Context, accountID domain.AccountID) ([]*domain.RecurringCashFlow, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) ListActive(ctx context.Context, asOf time.Time) ([]*domain.RecurringCashFlow, error) {
	var out []*domain.RecurringCashFlow
	for _, r := range f.rules {
		if !r.StartDate.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Delete(ctx context.Context, accountID domain.AccountID, id uuid.UUID, mode domain.DeleteMode) error {
	kept := f.rules[:0]
	for _, r := range f.rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rules = kept
	return nil
}

type fakeFlowRepo struct {
	flows []*domain.SingleCashFlow
}

func (f *fakeFlowRepo) Create(ctx context.Context, flow *domain.SingleCashFlow) error {
	f.flows = append(f.flows, flow)
	return nil
}

func (f *fakeFlowRepo) CreateBatch(ctx context.Context, flows []*domain.SingleCashFlow) error {
	f.flows = append(f.flows, flows...)
	return nil
}

func (f *fakeFlowRepo) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.SingleCashFlow, error) {
	for _, fl := range f.flows {
		if fl.ID == id {
			return fl, nil
		}
	}
	return nil, nil
}

func (f *fakeFlowRepo) ListByRecurring(ctx context.Context, ruleIDs []uuid.UUID) ([]*domain.SingleCashFlow, error) {
	want := make(map[uuid.UUID]bool)
	for _, id := range ruleIDs {
		want[id] = true
	}
	var out []*domain.SingleCashFlow
	for _, fl := range f.flows {
		if fl.RecurringCashFlowID != nil && want[*fl.RecurringCashFlowID] {
			out = append(out, fl)
		}
	}
	return out, nil
}

func (f *fakeFlowRepo) List(ctx context.Context, accountID domain.AccountID) ([]*domain.SingleCashFlow, error) {
	return f.flows, nil
}

func TestRunExpandRecurring(t *testing.T) {
	ctx := context.Background()
	rules := &fakeRuleRepo{}
	flows := &fakeFlowRepo{}
	now := date(2026, time.March, 20)

	rule := monthlyRule(date(2026, time.January, 5))
	if err := rules.Create(ctx, rule); err != nil {
		t.Fatal(err)
	}

	created, err := RunExpandRecurring(ctx, rules, flows, now)
	if err != nil {
		t.Fatalf("RunExpandRecurring: %v", err)
	}
	if created != 3 {
		t.Errorf("created = %d, want 3", created)
	}

	// Second run finds everything materialized.
	created, err = RunExpandRecurring(ctx, rules, flows, now)
	if err != nil {
		t.Fatalf("second RunExpandRecurring: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}

	// A month later, exactly one new tick appears.
	created, err = RunExpandRecurring(ctx, rules, flows, date(2026, time.April, 20))
	if err != nil {
		t.Fatalf("third RunExpandRecurring: %v", err)
	}
	if created != 1 {
		t.Errorf("third run created = %d, want 1", created)
	}
}

func TestRunExpandRecurringDeletedRule(t *testing.T) {
	ctx := context.Background()
	rules := &fakeRuleRepo{}
	flows := &fakeFlowRepo{}
	now := date(2026, time.March, 20)

	rule := monthlyRule(date(2026, time.January, 5))
	_ = rules.Create(ctx, rule)
	if _, err := RunExpandRecurring(ctx, rules, flows, now); err != nil {
		t.Fatal(err)
	}
	_ = rules.Delete(ctx, rule.AccountID, rule.ID, domain.DeleteKeepUnlinked)

	created, err := RunExpandRecurring(ctx, rules, flows, date(2026, time.June, 1))
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Errorf("created = %d for a deleted rule, want 0", created)
	}
}
