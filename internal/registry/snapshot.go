package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

const snapshotKey = "gateway:model_registry"

// Snapshotter persists the model catalog to Redis so registrations survive a
// restart. The snapshot is advisory: boot-time configuration is layered on
// top of whatever is loaded.
type Snapshotter struct {
	rdb *redis.Client
}

func NewSnapshotter(rdb *redis.Client) *Snapshotter {
	return &Snapshotter{rdb: rdb}
}

// Load restores previously persisted models into the registry. A missing
// key is not an error; the registry just starts empty.
func (s *Snapshotter) Load(ctx context.Context, r *Registry) error {
	payload, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load registry snapshot: %w", err)
	}

	var models map[string][]domain.ModelInfo
	if err := json.Unmarshal(payload, &models); err != nil {
		return fmt.Errorf("decode registry snapshot: %w", err)
	}

	for _, versions := range models {
		for _, m := range versions {
			if err := r.Register(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes the current catalog back to Redis.
func (s *Snapshotter) Save(ctx context.Context, r *Registry) error {
	payload, err := json.Marshal(r.Export())
	if err != nil {
		return fmt.Errorf("encode registry snapshot: %w", err)
	}

	if err := s.rdb.Set(ctx, snapshotKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("save registry snapshot: %w", err)
	}
	return nil
}
