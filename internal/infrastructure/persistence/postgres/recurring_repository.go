package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
	domerrors "github.com/GwydionBr/life-manager-sub000/internal/domain/errors"
)

const (
	insertRecurringSQL = `INSERT INTO recurring_cash_flows
		(id, account_id, amount, currency, recurrence_interval, start_date, end_date, title, description, contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	selectRecurringSQL = `SELECT id, account_id, amount::text, currency, recurrence_interval, start_date, end_date, title, description, contact_id, created_at, updated_at
		FROM recurring_cash_flows`
	insertRecurringTagSQL   = `INSERT INTO recurring_cash_flow_tags (recurring_cash_flow_id, tag_id, account_id) VALUES ($1, $2, $3)`
	listRecurringTagsSQL    = `SELECT recurring_cash_flow_id, tag_id FROM recurring_cash_flow_tags WHERE recurring_cash_flow_id = ANY($1)`
	deleteRecurringSQL      = `DELETE FROM recurring_cash_flows WHERE account_id = $1 AND id = $2`
	deleteRecurringTagsSQL  = `DELETE FROM recurring_cash_flow_tags WHERE recurring_cash_flow_id = $1`
	detachInstancesSQL      = `UPDATE single_cash_flows SET recurring_cash_flow_id = NULL WHERE recurring_cash_flow_id = $1`
	deleteInstanceTagsSQL   = `DELETE FROM single_cash_flow_tags WHERE single_cash_flow_id IN (SELECT id FROM single_cash_flows WHERE recurring_cash_flow_id = $1)`
	cascadeInstancesSQL     = `DELETE FROM single_cash_flows WHERE recurring_cash_flow_id = $1`
)

type RecurringCashFlowRepository struct {
	pool *pgxpool.Pool
}

func NewRecurringCashFlowRepository(pool *pgxpool.Pool) *RecurringCashFlowRepository {
	return &RecurringCashFlowRepository{pool: pool}
}

func (r *RecurringCashFlowRepository) Create(ctx context.Context, rule *domain.RecurringCashFlow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx, insertRecurringSQL,
		rule.ID, rule.AccountID.UUID, rule.Amount.String(), rule.Currency,
		string(rule.Interval), rule.StartDate, rule.EndDate,
		rule.Title, rule.Description, rule.ContactID,
		rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return err
	}
	for _, tagID := range rule.TagIDs {
		if _, err := tx.Exec(ctx, insertRecurringTagSQL, rule.ID, tagID, rule.AccountID.UUID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *RecurringCashFlowRepository) GetByID(ctx context.Context, accountID domain.AccountID, id uuid.UUID) (*domain.RecurringCashFlow, error) {
	rule, err := scanRecurring(r.pool.QueryRow(ctx, selectRecurringSQL+` WHERE account_id = $1 AND id = $2`, accountID.UUID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.attachTags(ctx, []*domain.RecurringCashFlow{rule}); err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *RecurringCashFlowRepository) List(ctx context.Context, accountID domain.AccountID) ([]*domain.RecurringCashFlow, error) {
	rows, err := r.pool.Query(ctx, selectRecurringSQL+` WHERE account_id = $1 ORDER BY start_date`, accountID.UUID)
	if err != nil {
		return nil, err
	}
	rules, err := collectRecurring(rows)
	if err != nil {
		return nil, err
	}
	return rules, r.attachTags(ctx, rules)
}

func (r *RecurringCashFlowRepository) ListActive(ctx context.Context, asOf time.Time) ([]*domain.RecurringCashFlow, error) {
	rows, err := r.pool.Query(ctx, selectRecurringSQL+` WHERE start_date <= $1 ORDER BY start_date`, asOf)
	if err != nil {
		return nil, err
	}
	rules, err := collectRecurring(rows)
	if err != nil {
		return nil, err
	}
	return rules, r.attachTags(ctx, rules)
}

func (r *RecurringCashFlowRepository) Delete(ctx context.Context, accountID domain.AccountID, id uuid.UUID, mode domain.DeleteMode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if mode == domain.DeleteAll {
		if _, err := tx.Exec(ctx, deleteInstanceTagsSQL, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, cascadeInstancesSQL, id); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, detachInstancesSQL, id); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, deleteRecurringTagsSQL, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, deleteRecurringSQL, accountID.UUID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerrors.ErrRecurringNotFound
	}
	return tx.Commit(ctx)
}

func (r *RecurringCashFlowRepository) attachTags(ctx context.Context, rules []*domain.RecurringCashFlow) error {
	if len(rules) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rules))
	byID := make(map[uuid.UUID]*domain.RecurringCashFlow, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.ID)
		byID[rule.ID] = rule
	}
	rows, err := r.pool.Query(ctx, listRecurringTagsSQL, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ruleID, tagID uuid.UUID
		if err := rows.Scan(&ruleID, &tagID); err != nil {
			return err
		}
		if rule, ok := byID[ruleID]; ok {
			rule.TagIDs = append(rule.TagIDs, tagID)
		}
	}
	return rows.Err()
}

func collectRecurring(rows pgx.Rows) ([]*domain.RecurringCashFlow, error) {
	defer rows.Close()
	var out []*domain.RecurringCashFlow
	for rows.Next() {
		rule, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRecurring(row pgx.Row) (*domain.RecurringCashFlow, error) {
	var rule domain.RecurringCashFlow
	var amount, interval string
	err := row.Scan(&rule.ID, &rule.AccountID.UUID, &amount, &rule.Currency,
		&interval, &rule.StartDate, &rule.EndDate,
		&rule.Title, &rule.Description, &rule.ContactID,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	rule.Interval = domain.RecurrenceInterval(interval)
	return &rule, nil
}

// Ensure RecurringCashFlowRepository implements ports.RecurringCashFlowRepository.
var _ ports.RecurringCashFlowRepository = (*RecurringCashFlowRepository)(nil)
