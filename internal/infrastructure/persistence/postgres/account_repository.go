package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const (
	insertAccountSQL = `INSERT INTO accounts
		(id, name, api_key_hash, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	selectAccountByIDSQL = `SELECT id, name, api_key_hash, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at
		FROM accounts WHERE id = $1`
	selectAccountByKeySQL = `SELECT id, name, api_key_hash, rounding_interval, rounding_direction, round_in_fragments, fragment_interval, created_at, updated_at
		FROM accounts WHERE api_key_hash = $1`
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	var interval, fragment *int
	var direction *string
	var inFragments *bool
	if s := account.Rounding; s != nil {
		interval = &s.Interval
		d := string(s.Direction)
		direction = &d
		inFragments = &s.InFragments
		fragment = &s.FragmentInterval
	}
	_, err := r.pool.Exec(ctx, insertAccountSQL,
		account.ID.UUID, account.Name, account.APIKeyHash,
		interval, direction, inFragments, fragment,
		account.CreatedAt, account.UpdatedAt)
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectAccountByIDSQL, id.UUID))
}

func (r *AccountRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Account, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectAccountByKeySQL, apiKeyHash))
}

func (r *AccountRepository) scanOne(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var interval, fragment *int
	var direction *string
	var inFragments *bool
	err := row.Scan(&a.ID.UUID, &a.Name, &a.APIKeyHash,
		&interval, &direction, &inFragments, &fragment,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Rounding = roundingFromColumns(interval, direction, inFragments, fragment)
	return &a, nil
}

// roundingFromColumns rebuilds optional rounding settings; a NULL interval
// means the row carries no override.
func roundingFromColumns(interval *int, direction *string, inFragments *bool, fragment *int) *domain.RoundingSettings {
	if interval == nil {
		return nil
	}
	s := &domain.RoundingSettings{Interval: *interval}
	if direction != nil {
		s.Direction = domain.RoundingDirection(*direction)
	}
	if inFragments != nil {
		s.InFragments = *inFragments
	}
	if fragment != nil {
		s.FragmentInterval = *fragment
	}
	return s
}

// Ensure AccountRepository implements ports.AccountRepository.
var _ ports.AccountRepository = (*AccountRepository)(nil)
