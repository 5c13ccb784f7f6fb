package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// timer_snapshots carries a unique index on (account_id, project_id), so two
// processes can never both hold a timer for the same project.
const (
	upsertTimerSnapshotSQL = `INSERT INTO timer_snapshots
		(id, account_id, project_id, state, start_time, temp_start_time, end_time,
		 stored_active_seconds, stored_paused_seconds, delta_start_seconds, delta_end_seconds,
		 rounding_interval, rounding_direction, round_in_fragments, fragment_interval, memo, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			start_time = EXCLUDED.start_time,
			temp_start_time = EXCLUDED.temp_start_time,
			end_time = EXCLUDED.end_time,
			stored_active_seconds = EXCLUDED.stored_active_seconds,
			stored_paused_seconds = EXCLUDED.stored_paused_seconds,
			delta_start_seconds = EXCLUDED.delta_start_seconds,
			delta_end_seconds = EXCLUDED.delta_end_seconds,
			rounding_interval = EXCLUDED.rounding_interval,
			rounding_direction = EXCLUDED.rounding_direction,
			round_in_fragments = EXCLUDED.round_in_fragments,
			fragment_interval = EXCLUDED.fragment_interval,
			memo = EXCLUDED.memo,
			updated_at = EXCLUDED.updated_at`
	deleteTimerSnapshotSQL = `DELETE FROM timer_snapshots WHERE id = $1`
	selectTimerSnapshotSQL = `SELECT id, account_id, project_id, state, start_time, temp_start_time, end_time,
		stored_active_seconds, stored_paused_seconds, delta_start_seconds, delta_end_seconds,
		rounding_interval, rounding_direction, round_in_fragments, fragment_interval, memo, updated_at
		FROM timer_snapshots`
)

type TimerSnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewTimerSnapshotRepository(pool *pgxpool.Pool) *TimerSnapshotRepository {
	return &TimerSnapshotRepository{pool: pool}
}

func (r *TimerSnapshotRepository) Save(ctx context.Context, snap *domain.TimerSnapshot) error {
	_, err := r.pool.Exec(ctx, upsertTimerSnapshotSQL,
		snap.ID.UUID, snap.AccountID.UUID, snap.ProjectID.UUID, string(snap.State),
		snap.StartTime, snap.TempStartTime, snap.EndTime,
		snap.StoredActiveSeconds, snap.StoredPausedSeconds,
		snap.DeltaStartSeconds, snap.DeltaEndSeconds,
		snap.Rounding.Interval, string(snap.Rounding.Direction),
		snap.Rounding.InFragments, snap.Rounding.FragmentInterval,
		snap.Memo, snap.UpdatedAt)
	return err
}

func (r *TimerSnapshotRepository) Delete(ctx context.Context, id domain.TimerID) error {
	_, err := r.pool.Exec(ctx, deleteTimerSnapshotSQL, id.UUID)
	return err
}

func (r *TimerSnapshotRepository) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*domain.TimerSnapshot, error) {
	rows, err := r.pool.Query(ctx, selectTimerSnapshotSQL+` WHERE account_id = $1`, accountID.UUID)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

func (r *TimerSnapshotRepository) ListAll(ctx context.Context) ([]*domain.TimerSnapshot, error) {
	rows, err := r.pool.Query(ctx, selectTimerSnapshotSQL)
	if err != nil {
		return nil, err
	}
	return collectSnapshots(rows)
}

func collectSnapshots(rows pgx.Rows) ([]*domain.TimerSnapshot, error) {
	defer rows.Close()
	var out []*domain.TimerSnapshot
	for rows.Next() {
		var s domain.TimerSnapshot
		var state, direction string
		err := rows.Scan(&s.ID.UUID, &s.AccountID.UUID, &s.ProjectID.UUID, &state,
			&s.StartTime, &s.TempStartTime, &s.EndTime,
			&s.StoredActiveSeconds, &s.StoredPausedSeconds,
			&s.DeltaStartSeconds, &s.DeltaEndSeconds,
			&s.Rounding.Interval, &direction,
			&s.Rounding.InFragments, &s.Rounding.FragmentInterval,
			&s.Memo, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		s.State = domain.TimerState(state)
		s.Rounding.Direction = domain.RoundingDirection(direction)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Ensure TimerSnapshotRepository implements ports.TimerSnapshotRepository.
var _ ports.TimerSnapshotRepository = (*TimerSnapshotRepository)(nil)
