package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// AccountRepository defines persistence for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Account, error)
}

// ProjectRepository defines persistence for billable work projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, accountID domain.AccountID, id domain.ProjectID) (*domain.Project, error)
	List(ctx context.Context, accountID domain.AccountID) ([]*domain.Project, error)
}

// WorkTimeRepository defines persistence for finalized work-time entries.
type WorkTimeRepository interface {
	Create(ctx context.Context, entry *domain.WorkTimeEntry) error
	ListByProject(ctx context.Context, accountID domain.AccountID, projectID domain.ProjectID) ([]*domain.WorkTimeEntry, error)
}

// TimerSnapshotRepository stores timer state so running timers survive a
// process restart. Save upserts by timer id.
type TimerSnapshotRepository interface {
	Save(ctx context.Context, snap *domain.TimerSnapshot) error
	Delete(ctx context.Context, id domain.TimerID) error
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*domain.TimerSnapshot, error)
	ListAll(ctx context.Context) ([]*domain.TimerSnapshot, error)
}

// RecurringCashFlowRepository defines persistence for recurrence rules.
type RecurringCashFlowRepository interface {
	Create(ctx context.Context, rule *domain.RecurringCashFlow) error
	GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.RecurringCashFlow, error)
	List(ctx context.Context, accountID domain.AccountID) ([]*domain.RecurringCashFlow, error)
	// ListActive returns every rule whose recurrence window has begun as of
	// asOf, including rules already past their end date; the expander clamps
	// at end_date itself and must still see such rules to backfill ticks.
	ListActive(ctx context.Context, asOf time.Time) ([]*domain.RecurringCashFlow, error)
	// Delete removes a rule. DeleteKeepUnlinked detaches its instances,
	// DeleteAll cascades to them. Both run in one transaction.
	Delete(ctx context.Context, accountID domain.AccountID, id uuid.UUID, mode domain.DeleteMode) error
}

// SingleCashFlowRepository defines persistence for materialized cashflows.
type SingleCashFlowRepository interface {
	Create(ctx context.Context, flow *domain.SingleCashFlow) error
	// CreateBatch inserts all flows in a single transaction.
	CreateBatch(ctx context.Context, flows []*domain.SingleCashFlow) error
	GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.SingleCashFlow, error)
	ListByRecurring(ctx context.Context, ruleIDs []uuid.UUID) ([]*domain.SingleCashFlow, error)
	List(ctx context.Context, accountID domain.AccountID) ([]*domain.SingleCashFlow, error)
}

// TagRepository defines persistence for tag rows and tag-association edges.
// Edges are diffed as whole sets: ApplyDiff deletes and inserts in one
// transaction and never updates an edge in place.
type TagRepository interface {
	ListAssociations(ctx context.Context, kind domain.TagEntityKind, entityIDs []uuid.UUID) ([]domain.TagAssociation, error)
	ApplyDiff(ctx context.Context, kind domain.TagEntityKind, deletes, inserts []domain.TagAssociation) error
}
