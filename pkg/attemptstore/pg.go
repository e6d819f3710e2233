package attemptstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the attempt store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateAttempt(ctx context.Context, attempt *bridge.Attempt) error {
	dao := toAttemptDao(attempt)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

func (s *pgStore) UpdateAttemptStage(ctx context.Context, id string, stage bridge.Stage, progress int) error {
	_, err := s.db.NewUpdate().
		Model((*AttemptDao)(nil)).
		Set("stage = ?", string(stage)).
		Set("progress = ?", progress).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update attempt stage: %w", err)
	}
	return nil
}

func (s *pgStore) SetAttemptLockHash(ctx context.Context, id string, lockHash string) error {
	_, err := s.db.NewUpdate().
		Model((*AttemptDao)(nil)).
		Set("lock_tx_hash = ?", lockHash).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set attempt lock hash: %w", err)
	}
	return nil
}

func (s *pgStore) CompleteAttempt(ctx context.Context, id string, lockHash, destHash string) error {
	_, err := s.db.NewUpdate().
		Model((*AttemptDao)(nil)).
		Set("status = ?", string(bridge.AttemptStatusCompleted)).
		Set("stage = ?", string(bridge.StageCompleted)).
		Set("progress = ?", 100).
		Set("lock_tx_hash = ?", lockHash).
		Set("dest_tx_hash = ?", destHash).
		Set("updated_at = NOW()").
		Set("completed_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete attempt: %w", err)
	}
	return nil
}

func (s *pgStore) FailAttempt(ctx context.Context, id string, stage bridge.Stage, kind bridge.Kind, message, lockHash string) error {
	q := s.db.NewUpdate().
		Model((*AttemptDao)(nil)).
		Set("status = ?", string(bridge.AttemptStatusFailed)).
		Set("stage = ?", string(stage)).
		Set("error_kind = ?", string(kind)).
		Set("error_message = ?", message).
		Set("updated_at = NOW()").
		Set("completed_at = NOW()").
		Where("id = ?", id)
	if lockHash != "" {
		q = q.Set("lock_tx_hash = ?", lockHash)
	}

	_, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to fail attempt: %w", err)
	}
	return nil
}

func (s *pgStore) GetAttempt(ctx context.Context, id string) (*bridge.Attempt, error) {
	dao := new(AttemptDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return toAttempt(dao), nil
}

func (s *pgStore) ListAttempts(ctx context.Context, opts ...QueryOption) ([]*bridge.Attempt, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var daos []AttemptDao
	query := s.db.NewSelect().
		Model(&daos).
		Order("created_at DESC")

	if options.UserAddress != nil {
		query = query.Where("user_address = ?", *options.UserAddress)
	}
	if options.Status != nil {
		query = query.Where("status = ?", string(*options.Status))
	}
	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	attempts := make([]*bridge.Attempt, len(daos))
	for i := range daos {
		attempts[i] = toAttempt(&daos[i])
	}
	return attempts, nil
}
