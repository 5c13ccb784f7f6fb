package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const (
	insertSingleSQL = `INSERT INTO single_cash_flows
		(id, account_id, amount, currency, date, title, recurring_cash_flow_id, finance_project_id, payout_id, contact_id, is_active, changed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	selectSingleSQL = `SELECT id, account_id, amount::text, currency, date, title, recurring_cash_flow_id, finance_project_id, payout_id, contact_id, is_active, changed_date, created_at, updated_at
		FROM single_cash_flows`
	insertSingleTagSQL = `INSERT INTO single_cash_flow_tags (single_cash_flow_id, tag_id, account_id) VALUES ($1, $2, $3)`
	listSingleTagsSQL  = `SELECT single_cash_flow_id, tag_id FROM single_cash_flow_tags WHERE single_cash_flow_id = ANY($1)`
)

type SingleCashFlowRepository struct {
	pool *pgxpool.Pool
}

func NewSingleCashFlowRepository(pool *pgxpool.Pool) *SingleCashFlowRepository {
	return &SingleCashFlowRepository{pool: pool}
}

func (r *SingleCashFlowRepository) Create(ctx context.Context, flow *domain.SingleCashFlow) error {
	return r.CreateBatch(ctx, []*domain.SingleCashFlow{flow})
}

func (r *SingleCashFlowRepository) CreateBatch(ctx context.Context, flows []*domain.SingleCashFlow) error {
	if len(flows) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, flow := range flows {
		_, err := tx.Exec(ctx, insertSingleSQL,
			flow.ID, flow.AccountID.UUID, flow.Amount.String(), flow.Currency,
			flow.Date, flow.Title,
			flow.RecurringCashFlowID, flow.FinanceProjectID, flow.PayoutID, flow.ContactID,
			flow.IsActive, flow.ChangedDate,
			flow.CreatedAt, flow.UpdatedAt)
		if err != nil {
			return err
		}
		for _, tagID := range flow.TagIDs {
			if _, err := tx.Exec(ctx, insertSingleTagSQL, flow.ID, tagID, flow.AccountID.UUID); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func (r *SingleCashFlowRepository) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.SingleCashFlow, error) {
	flow, err := scanSingle(r.pool.QueryRow(ctx, selectSingleSQL+` WHERE account_id = $1 AND id = $2`, accountID.UUID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.attachTags(ctx, []*domain.SingleCashFlow{flow}); err != nil {
		return nil, err
	}
	return flow, nil
}

func (r *SingleCashFlowRepository) ListByRecurring(ctx context.Context, ruleIDs []uuid.UUID) ([]*domain.SingleCashFlow, error) {
	if len(ruleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectSingleSQL+` WHERE recurring_cash_flow_id = ANY($1) ORDER BY date`, ruleIDs)
	if err != nil {
		return nil, err
	}
	flows, err := collectSingles(rows)
	if err != nil {
		return nil, err
	}
	return flows, r.attachTags(ctx, flows)
}

func (r *SingleCashFlowRepository) List(ctx context.Context, accountID domain.AccountID) ([]*domain.SingleCashFlow, error) {
	rows, err := r.pool.Query(ctx, selectSingleSQL+` WHERE account_id = $1 ORDER BY date`, accountID.UUID)
	if err != nil {
		return nil, err
	}
	flows, err := collectSingles(rows)
	if err != nil {
		return nil, err
	}
	return flows, r.attachTags(ctx, flows)
}

func (r *SingleCashFlowRepository) attachTags(ctx context.Context, flows []*domain.SingleCashFlow) error {
	if len(flows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(flows))
	byID := make(map[uuid.UUID]*domain.SingleCashFlow, len(flows))
	for _, flow := range flows {
		ids = append(ids, flow.ID)
		byID[flow.ID] = flow
	}
	rows, err := r.pool.Query(ctx, listSingleTagsSQL, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var flowID, tagID uuid.UUID
		if err := rows.Scan(&flowID, &tagID); err != nil {
			return err
		}
		if flow, ok := byID[flowID]; ok {
			flow.TagIDs = append(flow.TagIDs, tagID)
		}
	}
	return rows.Err()
}

func collectSingles(rows pgx.Rows) ([]*domain.SingleCashFlow, error) {
	defer rows.Close()
	var out []*domain.SingleCashFlow
	for rows.Next() {
		flow, err := scanSingle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, flow)
	}
	return out, rows.Err()
}

func scanSingle(row pgx.Row) (*domain.SingleCashFlow, error) {
	var flow domain.SingleCashFlow
	var amount string
	err := row.Scan(&flow.ID, &flow.AccountID.UUID, &amount, &flow.Currency,
		&flow.Date, &flow.Title,
		&flow.RecurringCashFlowID, &flow.FinanceProjectID, &flow.PayoutID, &flow.ContactID,
		&flow.IsActive, &flow.ChangedDate,
		&flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if flow.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &flow, nil
}

// Ensure SingleCashFlowRepository implements ports.SingleCashFlowRepository.
var _ ports.SingleCashFlowRepository = (*SingleCashFlowRepository)(nil)
