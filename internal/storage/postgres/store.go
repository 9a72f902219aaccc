package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"positionfarm/internal/model"
)

// Store provides Postgres persistence for farm snapshots and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPositions inserts or updates staked position records.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.PositionRecord) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO staked_positions (
				token_id, owner, liquidity, usd_value, reward_debt,
				staked_at, lock_until, boost, tick_lower, tick_upper, approx_value,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (token_id)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				liquidity = EXCLUDED.liquidity,
				usd_value = EXCLUDED.usd_value,
				reward_debt = EXCLUDED.reward_debt,
				staked_at = EXCLUDED.staked_at,
				lock_until = EXCLUDED.lock_until,
				boost = EXCLUDED.boost,
				tick_lower = EXCLUDED.tick_lower,
				tick_upper = EXCLUDED.tick_upper,
				approx_value = EXCLUDED.approx_value,
				updated_at = now()
		`,
			p.TokenID,
			p.Owner,
			p.Liquidity,
			p.USDValue,
			p.RewardDebt,
			p.StakedAt,
			p.LockUntil,
			p.Boost,
			p.TickLower,
			p.TickUpper,
			p.ApproxValue,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range positions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PrunePositions removes rows for positions that are no longer staked, so
// an unstaked position cannot resurface on restore.
func (s *Store) PrunePositions(ctx context.Context, keep []string) error {
	if len(keep) == 0 {
		_, err := s.pool.Exec(ctx, `DELETE FROM staked_positions`)
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM staked_positions WHERE NOT (token_id = ANY($1))`, keep)
	return err
}

// SaveFarmState upserts the singleton ledger snapshot.
func (s *Store) SaveFarmState(ctx context.Context, state model.FarmStateRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO farm_state (
			id, acc_per_share, total_staked_value, reward_rate, reward_budget,
			total_distributed, last_accrual_time, farming_start, farming_end,
			position_count, emergency, paused, snapshot_taken, updated_at
		) VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
		ON CONFLICT (id) DO UPDATE SET
			acc_per_share = EXCLUDED.acc_per_share,
			total_staked_value = EXCLUDED.total_staked_value,
			reward_rate = EXCLUDED.reward_rate,
			reward_budget = EXCLUDED.reward_budget,
			total_distributed = EXCLUDED.total_distributed,
			last_accrual_time = EXCLUDED.last_accrual_time,
			farming_start = EXCLUDED.farming_start,
			farming_end = EXCLUDED.farming_end,
			position_count = EXCLUDED.position_count,
			emergency = EXCLUDED.emergency,
			paused = EXCLUDED.paused,
			snapshot_taken = EXCLUDED.snapshot_taken,
			updated_at = now()
	`,
		state.AccPerShare,
		state.TotalStakedValue,
		state.RewardRate,
		state.RewardBudget,
		state.TotalDistributed,
		state.LastAccrualTime,
		state.FarmingStart,
		state.FarmingEnd,
		state.PositionCount,
		state.Emergency,
		state.Paused,
		state.SnapshotTakenUnix,
	)
	return err
}

// LoadFarmState returns the persisted ledger snapshot, if any.
func (s *Store) LoadFarmState(ctx context.Context) (model.FarmStateRecord, bool, error) {
	var state model.FarmStateRecord
	row := s.pool.QueryRow(ctx, `
		SELECT acc_per_share, total_staked_value, reward_rate, reward_budget,
		       total_distributed, last_accrual_time, farming_start, farming_end,
		       position_count, emergency, paused, snapshot_taken
		FROM farm_state WHERE id=1
	`)
	err := row.Scan(
		&state.AccPerShare,
		&state.TotalStakedValue,
		&state.RewardRate,
		&state.RewardBudget,
		&state.TotalDistributed,
		&state.LastAccrualTime,
		&state.FarmingStart,
		&state.FarmingEnd,
		&state.PositionCount,
		&state.Emergency,
		&state.Paused,
		&state.SnapshotTakenUnix,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.FarmStateRecord{}, false, nil
		}
		return model.FarmStateRecord{}, false, err
	}
	return state, true, nil
}

// LoadPositions returns every persisted position record.
func (s *Store) LoadPositions(ctx context.Context) ([]model.PositionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_id, owner, liquidity, usd_value, reward_debt,
		       staked_at, lock_until, boost, tick_lower, tick_upper, approx_value
		FROM staked_positions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.PositionRecord
	for rows.Next() {
		var p model.PositionRecord
		if err := rows.Scan(
			&p.TokenID,
			&p.Owner,
			&p.Liquidity,
			&p.USDValue,
			&p.RewardDebt,
			&p.StakedAt,
			&p.LockUntil,
			&p.Boost,
			&p.TickLower,
			&p.TickUpper,
			&p.ApproxValue,
		); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// PutEvents appends farm events to the journal table.
func (s *Store) PutEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO farm_events (event_type, at, user_addr, token_id, amount, detail)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, e.Type, e.At, e.User, e.TokenID, e.Amount, e.Detail)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
