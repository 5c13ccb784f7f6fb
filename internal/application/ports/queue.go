package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// TaskEnqueuer enqueues async background tasks (recurring-cashflow expansion,
// tag synchronization).
type TaskEnqueuer interface {
	EnqueueExpandRecurring(ctx context.Context) error
	EnqueueSyncTags(ctx context.Context, kind domain.TagEntityKind, entityIDs, tagIDs []uuid.UUID, accountID domain.AccountID) error
}
