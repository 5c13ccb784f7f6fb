package finance

import (
	"time"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const tickDateLayout = "2006-01-02"

// Expand computes the single-cashflow instances that must exist as of now
// for the given recurrence rules, diffed against the already-materialized
// instances. It is pure and safe to call repeatedly: a tick that already has
// an instance (frozen or not) produces no candidate, so feeding the output
// back in yields an empty result.
//
// All candidates are returned as one batch so the caller can insert them in
// a single transaction.
func Expand(rules []*domain.RecurringCashFlow, existing []*domain.SingleCashFlow, now time.Time) []*domain.SingleCashFlow {
	materialized := make(map[uuid.UUID]map[string]bool)
	for _, flow := range existing {
		if flow.RecurringCashFlowID == nil {
			continue
		}
		ruleID := *flow.RecurringCashFlowID
		if materialized[ruleID] == nil {
			materialized[ruleID] = make(map[string]bool)
		}
		materialized[ruleID][flow.Date.Format(tickDateLayout)] = true
	}

	var candidates []*domain.SingleCashFlow
	for _, rule := range rules {
		end := now
		if rule.EndDate != nil && rule.EndDate.Before(now) {
			end = *rule.EndDate
		}
		seen := materialized[rule.ID]
		prev := time.Time{}
		for n := 0; ; n++ {
			tick := TickAt(rule.StartDate, rule.Interval, n)
			if tick.After(end) {
				break
			}
			if n > 0 && !tick.After(prev) {
				// Unknown interval values must not loop forever.
				break
			}
			prev = tick
			if seen[tick.Format(tickDateLayout)] {
				continue
			}
			candidates = append(candidates, instanceFor(rule, tick, now))
		}
	}
	return candidates
}

func instanceFor(rule *domain.RecurringCashFlow, tick, now time.Time) *domain.SingleCashFlow {
	ruleID := rule.ID
	return &domain.SingleCashFlow{
		ID:                  uuid.New(),
		AccountID:           rule.AccountID,
		Amount:              rule.Amount,
		Currency:            rule.Currency,
		Date:                tick,
		Title:               rule.Title,
		RecurringCashFlowID: &ruleID,
		ContactID:           rule.ContactID,
		IsActive:            true,
		TagIDs:              append([]uuid.UUID(nil), rule.TagIDs...),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
