package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

func monthlyRule(start time.Time) *domain.RecurringCashFlow {
	return &domain.RecurringCashFlow{
		ID:        uuid.New(),
		AccountID: domain.NewAccountID(uuid.New()),
		Amount:    decimal.RequireFromString("19.99"),
		Currency:  "EUR",
		Interval:  domain.IntervalMonth,
		StartDate: start,
		Title:     "hosting",
		TagIDs:    []uuid.UUID{uuid.New()},
	}
}

func TestExpandGeneratesMissingTicks(t *testing.T) {
	rule := monthlyRule(date(2026, time.January, 15))
	now := date(2026, time.April, 1)

	got := Expand([]*domain.RecurringCashFlow{rule}, nil, now)
	// Jan 15, Feb 15, Mar 15.
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	for i, want := range []time.Time{
		date(2026, time.January, 15),
		date(2026, time.February, 15),
		date(2026, time.March, 15),
	} {
		if !got[i].Date.Equal(want) {
			t.Errorf("candidate %d date = %v, want %v", i, got[i].Date, want)
		}
	}
	first := got[0]
	if !first.Amount.Equal(rule.Amount) || first.Currency != rule.Currency || first.Title != rule.Title {
		t.Errorf("candidate fields not copied from rule: %+v", first)
	}
	if first.RecurringCashFlowID == nil || *first.RecurringCashFlowID != rule.ID {
		t.Errorf("candidate not linked to rule")
	}
	if len(first.TagIDs) != 1 || first.TagIDs[0] != rule.TagIDs[0] {
		t.Errorf("rule tags not copied")
	}
	if !first.IsActive {
		t.Errorf("candidate should be active")
	}
}

func TestExpandIsFixedPoint(t *testing.T) {
	rule := monthlyRule(date(2025, time.June, 1))
	now := date(2026, time.March, 10)

	first := Expand([]*domain.RecurringCashFlow{rule}, nil, now)
	if len(first) == 0 {
		t.Fatal("first expansion produced nothing")
	}
	second := Expand([]*domain.RecurringCashFlow{rule}, first, now)
	if len(second) != 0 {
		t.Errorf("second expansion = %d candidates, want 0", len(second))
	}
}

func TestExpandSkipsFrozenInstances(t *testing.T) {
	rule := monthlyRule(date(2026, time.January, 10))
	now := date(2026, time.February, 20)
	changed := date(2026, time.February, 2)
	ruleID := rule.ID
	frozen := &domain.SingleCashFlow{
		ID:                  uuid.New(),
		AccountID:           rule.AccountID,
		Amount:              decimal.RequireFromString("99.00"), // drifted from the rule
		Date:                date(2026, time.January, 10),
		RecurringCashFlowID: &ruleID,
		ChangedDate:         &changed,
	}

	got := Expand([]*domain.RecurringCashFlow{rule}, []*domain.SingleCashFlow{frozen}, now)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1 (only Feb 10)", len(got))
	}
	if !got[0].Date.Equal(date(2026, time.February, 10)) {
		t.Errorf("candidate date = %v, want Feb 10", got[0].Date)
	}
}

func TestExpandRespectsEndDate(t *testing.T) {
	rule := monthlyRule(date(2026, time.January, 1))
	end := date(2026, time.February, 15)
	rule.EndDate = &end
	now := date(2026, time.June, 1)

	got := Expand([]*domain.RecurringCashFlow{rule}, nil, now)
	// Jan 1 and Feb 1; Mar 1 is past end_date.
	if len(got) != 2 {
		t.Fatalf("candidates = %d, want 2", len(got))
	}
}

func TestExpandFutureStartProducesNothing(t *testing.T) {
	rule := monthlyRule(date(2026, time.December, 1))
	got := Expand([]*domain.RecurringCashFlow{rule}, nil, date(2026, time.June, 1))
	if len(got) != 0 {
		t.Errorf("candidates = %d, want 0 for a future rule", len(got))
	}
}

func TestExpandIgnoresUnlinkedInstances(t *testing.T) {
	rule := monthlyRule(date(2026, time.March, 1))
	manual := &domain.SingleCashFlow{
		ID:        uuid.New(),
		AccountID: rule.AccountID,
		Date:      date(2026, time.March, 1),
		// no RecurringCashFlowID: a manual entry on the same day
	}
	got := Expand([]*domain.RecurringCashFlow{rule}, []*domain.SingleCashFlow{manual}, date(2026, time.March, 5))
	if len(got) != 1 {
		t.Errorf("candidates = %d, want 1 (manual entry must not satisfy the tick)", len(got))
	}
}
