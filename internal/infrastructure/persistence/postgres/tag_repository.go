package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

type TagRepository struct {
	pool *pgxpool.Pool
}

func NewTagRepository(pool *pgxpool.Pool) *TagRepository {
	return &TagRepository{pool: pool}
}

// edgeTable maps an entity kind to its join table and entity id column. The
// kind is a closed enum, never user input, so interpolating the names is safe.
func edgeTable(kind domain.TagEntityKind) (table, column string, err error) {
	switch kind {
	case domain.TagEntitySingleCashFlow:
		return "single_cash_flow_tags", "single_cash_flow_id", nil
	case domain.TagEntityRecurringCashFlow:
		return "recurring_cash_flow_tags", "recurring_cash_flow_id", nil
	default:
		return "", "", fmt.Errorf("unknown tag entity kind %q", kind)
	}
}

func (r *TagRepository) ListAssociations(ctx context.Context, kind domain.TagEntityKind, entityIDs []uuid.UUID) ([]domain.TagAssociation, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	table, column, err := edgeTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s, tag_id, account_id FROM %s WHERE %s = ANY($1)`, column, table, column)
	rows, err := r.pool.Query(ctx, query, entityIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TagAssociation
	for rows.Next() {
		var a domain.TagAssociation
		if err := rows.Scan(&a.EntityID, &a.TagID, &a.AccountID.UUID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *TagRepository) ApplyDiff(ctx context.Context, kind domain.TagEntityKind, deletes, inserts []domain.TagAssociation) error {
	if len(deletes) == 0 && len(inserts) == 0 {
		return nil
	}
	table, column, err := edgeTable(kind)
	if err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	deleteSQL := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND tag_id = $2`, table, column)
	for _, edge := range deletes {
		if _, err := tx.Exec(ctx, deleteSQL, edge.EntityID, edge.TagID); err != nil {
			return err
		}
	}
	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s, tag_id, account_id) VALUES ($1, $2, $3)`, table, column)
	for _, edge := range inserts {
		if _, err := tx.Exec(ctx, insertSQL, edge.EntityID, edge.TagID, edge.AccountID.UUID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Ensure TagRepository implements ports.TagRepository.
var _ ports.TagRepository = (*TagRepository)(nil)
