package finance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
)

// RunExpandRecurring materializes missing single cashflows for all active
// recurrence rules as of now. Rules are re-fetched on every run so instances
// are never recreated for a rule deleted since the last pass. The whole
// candidate batch commits in one transaction, so a retry after a partial
// failure is safe. Returns the number of instances created.
//
// Call periodically (app start plus an interval ticker, or the queue worker).
func RunExpandRecurring(ctx context.Context, rules ports.RecurringCashFlowRepository, flows ports.SingleCashFlowRepository, now time.Time) (int, error) {
	active, err := rules.ListActive(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(active) == 0 {
		return 0, nil
	}
	ruleIDs := make([]uuid.UUID, 0, len(active))
	for _, rule := range active {
		ruleIDs = append(ruleIDs, rule.ID)
	}
	existing, err := flows.ListByRecurring(ctx, ruleIDs)
	if err != nil {
		return 0, err
	}
	candidates := Expand(active, existing, now)
	if len(candidates) == 0 {
		return 0, nil
	}
	if err := flows.CreateBatch(ctx, candidates); err != nil {
		return 0, err
	}
	return len(candidates), nil
}
