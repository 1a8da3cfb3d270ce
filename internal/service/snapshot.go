package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/types"
)

const snapshotKey = "datemeal:last_generation"

// Snapshot is the last successful candidate generation, kept as a fallback
// source for when a later model call fails.
type Snapshot struct {
	Candidates []types.CandidateStub `json:"candidates"`
	SavedAt    time.Time             `json:"savedAt"`
}

// SnapshotStore is a single-slot, last-write-wins store. Staleness is
// acceptable; readers treat any failure as "no snapshot".
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, bool)
	Save(ctx context.Context, snap Snapshot) error
}

// MemorySnapshotStore keeps the snapshot in process memory
type MemorySnapshotStore struct {
	slot atomic.Pointer[Snapshot]
}

// NewMemorySnapshotStore creates an empty in-memory store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (m *MemorySnapshotStore) Load(_ context.Context) (Snapshot, bool) {
	snap := m.slot.Load()
	if snap == nil || len(snap.Candidates) == 0 {
		return Snapshot{}, false
	}
	return *snap, true
}

func (m *MemorySnapshotStore) Save(_ context.Context, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	snap.Candidates = append([]types.CandidateStub(nil), snap.Candidates...)
	m.slot.Store(&snap)
	return nil
}

// RedisSnapshotStore keeps the snapshot in Redis so that every API replica
// shares it.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSnapshotStore creates a Redis-backed store
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("snapshot"),
	}
}

func (r *RedisSnapshotStore) Load(ctx context.Context) (Snapshot, bool) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("failed to load snapshot", zap.Error(err))
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Warn("corrupt snapshot", zap.Error(err))
		return Snapshot{}, false
	}
	if len(snap.Candidates) == 0 {
		return Snapshot{}, false
	}
	return snap, true
}

func (r *RedisSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
