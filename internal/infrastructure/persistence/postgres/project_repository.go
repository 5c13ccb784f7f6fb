package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const (
	insertProjectSQL = `INSERT INTO projects
		(id, account_id, name, hourly_rate, currency, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	selectProjectSQL = `SELECT id, account_id, name, hourly_rate::text, currency, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at
		FROM projects WHERE account_id = $1 AND id = $2`
	listProjectsSQL = `SELECT id, account_id, name, hourly_rate::text, currency, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at
		FROM projects WHERE account_id = $1 ORDER BY created_at`
)

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	var interval, fragment *int
	var direction *string
	var inFragments *bool
	if s := project.Rounding; s != nil {
		interval = &s.Interval
		d := string(s.Direction)
		direction = &d
		inFragments = &s.InFragments
		fragment = &s.FragmentInterval
	}
	_, err := r.pool.Exec(ctx, insertProjectSQL,
		project.ID.UUID, project.AccountID.UUID, project.Name,
		project.HourlyRate.String(), project.Currency,
		interval, direction, inFragments, fragment,
		project.CreatedAt, project.UpdatedAt)
	return err
}

func (r *ProjectRepository) GetByID(ctx context.Context, accountID domain.AccountID, id domain.ProjectID) (*domain.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, selectProjectSQL, accountID.UUID, id.UUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context, accountID domain.AccountID) ([]*domain.Project, error) {
	rows, err := r.pool.Query(ctx, listProjectsSQL, accountID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	var rate string
	var interval, fragment *int
	var direction *string
	var inFragments *bool
	err := row.Scan(&p.ID.UUID, &p.AccountID.UUID, &p.Name, &rate, &p.Currency,
		&interval, &direction, &inFragments, &fragment,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.HourlyRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, err
	}
	p.Rounding = roundingFromColumns(interval, direction, inFragments, fragment)
	return &p, nil
}

// Ensure ProjectRepository implements ports.ProjectRepository.
var _ ports.ProjectRepository = (*ProjectRepository)(nil)
