package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/finance"
	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// InlineEnqueuer is the fallback when Redis/Asynq is not configured: tasks
// run synchronously in the caller's request.
type InlineEnqueuer struct {
	rules      ports.RecurringCashFlowRepository
	flows      ports.SingleCashFlowRepository
	syncer     *finance.TagSyncer
	onExpanded func(int)
	log        zerolog.Logger
}

func NewInlineEnqueuer(rules ports.RecurringCashFlowRepository, flows ports.SingleCashFlowRepository, syncer *finance.TagSyncer, onExpanded func(int), log zerolog.Logger) *InlineEnqueuer {
	return &InlineEnqueuer{rules: rules, flows: flows, syncer: syncer, onExpanded: onExpanded, log: log}
}

func (q *InlineEnqueuer) EnqueueExpandRecurring(ctx context.Context) error {
	created, err := finance.RunExpandRecurring(ctx, q.rules, q.flows, time.Now())
	if err != nil {
		return err
	}
	if q.onExpanded != nil {
		q.onExpanded(created)
	}
	if created > 0 {
		q.log.Info().Int("created", created).Msg("recurring cashflows materialized inline")
	}
	return nil
}

func (q *InlineEnqueuer) EnqueueSyncTags(ctx context.Context, kind domain.TagEntityKind, entityIDs, tagIDs []uuid.UUID, accountID domain.AccountID) error {
	return q.syncer.Sync(ctx, kind, entityIDs, tagIDs, accountID)
}

var _ ports.TaskEnqueuer = (*InlineEnqueuer)(nil)
