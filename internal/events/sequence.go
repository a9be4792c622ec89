package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// SequenceRepository hands out per-partition event sequence numbers,
// starting at 1.
type SequenceRepository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

var errPartitionKeyRequired = errors.New("partition key is required")

type MemorySequenceRepository struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemorySequenceRepository() *MemorySequenceRepository {
	return &MemorySequenceRepository{last: make(map[string]int64)}
}

func (r *MemorySequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, errPartitionKeyRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last[partitionKey]++
	return r.last[partitionKey], nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresSequenceRepository struct {
	db queryRower
}

func NewPostgresSequenceRepository(db queryRower) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{db: db}
}

const nextSequenceSQL = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequences.last_sequence + 1,
    updated_at = NOW()
RETURNING last_sequence
`

func (r *PostgresSequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, errPartitionKeyRequired
	}

	var next int64
	if err := r.db.QueryRow(ctx, nextSequenceSQL, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}
