package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const (
	insertWorkTimeSQL = `INSERT INTO work_time_entries
		(id, account_id, project_id, active_seconds, paused_seconds, start_time, end_time, true_end_time, memo, salary, currency, hourly_payment, fragment_interval, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	listWorkTimeByProjectSQL = `SELECT id, account_id, project_id, active_seconds, paused_seconds, start_time, end_time, true_end_time, memo, salary::text, currency, hourly_payment::text, fragment_interval, created_at
		FROM work_time_entries WHERE account_id = $1 AND project_id = $2 ORDER BY start_time`
)

type WorkTimeRepository struct {
	pool *pgxpool.Pool
}

func NewWorkTimeRepository(pool *pgxpool.Pool) *WorkTimeRepository {
	return &WorkTimeRepository{pool: pool}
}

func (r *WorkTimeRepository) Create(ctx context.Context, entry *domain.WorkTimeEntry) error {
	_, err := r.pool.Exec(ctx, insertWorkTimeSQL,
		entry.ID, entry.AccountID.UUID, entry.ProjectID.UUID,
		entry.ActiveSeconds, entry.PausedSeconds,
		entry.StartTime, entry.EndTime, entry.TrueEndTime,
		entry.Memo, entry.Salary.String(), entry.Currency, entry.HourlyPayment.String(),
		entry.FragmentInterval, entry.CreatedAt)
	return err
}

func (r *WorkTimeRepository) ListByProject(ctx context.Context, accountID domain.AccountID, projectID domain.ProjectID) ([]*domain.WorkTimeEntry, error) {
	rows, err := r.pool.Query(ctx, listWorkTimeByProjectSQL, accountID.UUID, projectID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.WorkTimeEntry
	for rows.Next() {
		e, err := scanWorkTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanWorkTime(row pgx.Row) (*domain.WorkTimeEntry, error) {
	var e domain.WorkTimeEntry
	var salary, hourly string
	err := row.Scan(&e.ID, &e.AccountID.UUID, &e.ProjectID.UUID,
		&e.ActiveSeconds, &e.PausedSeconds,
		&e.StartTime, &e.EndTime, &e.TrueEndTime,
		&e.Memo, &salary, &e.Currency, &hourly,
		&e.FragmentInterval, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if e.Salary, err = decimal.NewFromString(salary); err != nil {
		return nil, err
	}
	if e.HourlyPayment, err = decimal.NewFromString(hourly); err != nil {
		return nil, err
	}
	return &e, nil
}

// Ensure WorkTimeRepository implements ports.WorkTimeRepository.
var _ ports.WorkTimeRepository = (*WorkTimeRepository)(nil)
