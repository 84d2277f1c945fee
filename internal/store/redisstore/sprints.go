package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (s *Store) readSprints(ctx context.Context, c hashReader) ([]*task.Sprint, error) {
	m, err := c.HGetAll(ctx, s.sprintsKey()).Result()
	if err != nil {
		return nil, err
	}
	sprints := make([]*task.Sprint, 0, len(m))
	for _, v := range m {
		var sp task.Sprint
		if err := json.Unmarshal([]byte(v), &sp); err != nil {
			s.log.WithError(err).Warn("skipping undecodable sprint")
			continue
		}
		sprints = append(sprints, &sp)
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].Start.Before(sprints[j].Start)
	})
	return sprints, nil
}

// ListSprints returns every sprint ordered by start date.
func (s *Store) ListSprints(ctx context.Context) ([]*task.Sprint, error) {
	sprints, err := s.readSprints(ctx, s.client)
	return sprints, wrap("list sprints", err)
}

func matchSprint(sprints []*task.Sprint, id string) (*task.Sprint, error) {
	prefix := strings.ToLower(strings.TrimSpace(id))
	var found *task.Sprint
	for _, sp := range sprints {
		if sp.ID == prefix {
			return sp, nil
		}
		if prefix != "" && strings.HasPrefix(sp.ID, prefix) {
			if found != nil {
				return nil, clierr.Newf(clierr.AmbiguousID, "id prefix %q matches several sprints", id).
					WithDetails(map[string]any{"id": id})
			}
			found = sp
		}
	}
	if found == nil {
		return nil, store.SprintNotFound(id)
	}
	return found, nil
}

// GetSprint returns the sprint whose id starts with id.
func (s *Store) GetSprint(ctx context.Context, id string) (*task.Sprint, error) {
	sprints, err := s.ListSprints(ctx)
	if err != nil {
		return nil, err
	}
	return matchSprint(sprints, id)
}

// SaveSprint inserts or replaces a sprint. Saving an active sprint
// deactivates the others.
func (s *Store) SaveSprint(ctx context.Context, sp *task.Sprint) error {
	if strings.TrimSpace(sp.Goal) == "" {
		return clierr.New(clierr.InvalidInput, "sprint goal must not be empty")
	}
	if !sp.End.After(sp.Start) {
		return clierr.New(clierr.InvalidInput, "sprint end must be after its start")
	}
	if sp.ID == "" {
		sp.ID = task.NewID()
	}
	return s.updateSprints(ctx, func(sprints []*task.Sprint) ([]*task.Sprint, error) {
		replaced := false
		for i, existing := range sprints {
			if existing.ID == sp.ID {
				sprints[i] = sp
				replaced = true
			} else if sp.Active {
				existing.Active = false
			}
		}
		if !replaced {
			sprints = append(sprints, sp)
		}
		return sprints, nil
	})
}

// ActivateSprint marks one sprint active and clears every other flag.
func (s *Store) ActivateSprint(ctx context.Context, id string) error {
	return s.updateSprints(ctx, func(sprints []*task.Sprint) ([]*task.Sprint, error) {
		target, err := matchSprint(sprints, id)
		if err != nil {
			return nil, err
		}
		for _, sp := range sprints {
			sp.Active = sp.ID == target.ID
		}
		return sprints, nil
	})
}

// updateSprints rewrites the sprint hash atomically.
func (s *Store) updateSprints(ctx context.Context, fn func([]*task.Sprint) ([]*task.Sprint, error)) error {
	txf := func(tx *redis.Tx) error {
		sprints, err := s.readSprints(ctx, tx)
		if err != nil {
			return err
		}
		sprints, err = fn(sprints)
		if err != nil {
			return err
		}
		fields := make([]any, 0, 2*len(sprints)) //nolint:mnd // field/value pairs
		for _, sp := range sprints {
			data, err := json.Marshal(sp)
			if err != nil {
				return fmt.Errorf("encoding sprint: %w", err)
			}
			fields = append(fields, sp.ID, data)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(fields) > 0 {
				pipe.HSet(ctx, s.sprintsKey(), fields...)
			}
			return nil
		})
		return err
	}
	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, s.sprintsKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return wrap("update sprints", err)
	}
	return store.Unavailable("update sprints", redis.TxFailedErr)
}

// ActiveSprint returns the active sprint.
func (s *Store) ActiveSprint(ctx context.Context) (*task.Sprint, error) {
	sprints, err := s.ListSprints(ctx)
	if err != nil {
		return nil, err
	}
	for _, sp := range sprints {
		if sp.Active {
			return sp, nil
		}
	}
	return nil, store.NoActiveSprint()
}

// AddStandup validates and records a standup.
func (s *Store) AddStandup(ctx context.Context, su *task.Standup) error {
	if err := task.ValidateStandup(su); err != nil {
		return err
	}
	if su.ID == "" {
		su.ID = task.NewID()
	}
	if su.Created.IsZero() {
		su.Created = s.now()
	}
	data, err := json.Marshal(su)
	if err != nil {
		return fmt.Errorf("encoding standup: %w", err)
	}
	return wrap("add standup", s.client.HSet(ctx, s.standupsKey(), su.ID, data).Err())
}

// ListStandups returns standups newest first.
func (s *Store) ListStandups(ctx context.Context) ([]*task.Standup, error) {
	m, err := s.client.HGetAll(ctx, s.standupsKey()).Result()
	if err != nil {
		return nil, wrap("list standups", err)
	}
	out := make([]*task.Standup, 0, len(m))
	for _, v := range m {
		var su task.Standup
		if err := json.Unmarshal([]byte(v), &su); err != nil {
			s.log.WithError(err).Warn("skipping undecodable standup")
			continue
		}
		out = append(out, &su)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}
