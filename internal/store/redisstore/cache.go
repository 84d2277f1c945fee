package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// Cache wraps a store.Store with a redis read-through cache for
// FetchTasksBySprint. Redis failures fall back to the backing store.
type Cache struct {
	base   store.Store
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	log    logrus.FieldLogger
}

var _ store.Store = (*Cache)(nil)

// NewCache creates a caching wrapper around base. A zero ttl disables
// caching.
func NewCache(base store.Store, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if base == nil {
		panic("redisstore.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Cache{base: base, redis: client, ttl: ttl, prefix: defaultPrefix, log: log}
}

// FetchTasksBySprint serves from redis when possible.
func (c *Cache) FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error) {
	if tasks, ok := c.load(ctx, sprintID); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchTasksBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	c.save(ctx, sprintID, tasks)
	return tasks, nil
}

// UpdateTaskStatus writes through and evicts every cached listing.
func (c *Cache) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	if err := c.base.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return err
	}
	c.Evict(ctx)
	return nil
}

func (c *Cache) key(sprintID string) string {
	if sprintID == store.Unassigned {
		sprintID = unassignedKey
	}
	return c.prefix + ":cache:sprint:" + sprintID
}

func (c *Cache) indexKey() string {
	return c.prefix + ":cache:keys"
}

func (c *Cache) load(ctx context.Context, sprintID string) ([]*task.Task, bool) {
	if c.redis == nil || c.ttl == 0 {
		return nil, false
	}
	key := c.key(sprintID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Debug("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []*task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) save(ctx context.Context, sprintID string, tasks []*task.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	key := c.key(sprintID)
	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.SAdd(ctx, c.indexKey(), key)
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
}

// Evict drops every cached listing.
func (c *Cache) Evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys, err := c.redis.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return
	}
	keys = append(keys, c.indexKey())
	_, _ = c.redis.Del(ctx, keys...).Result()
}

// CachedRepository routes a Repository's board reads through a Cache and
// evicts it on every write that changes a task, including its comments and
// subtasks.
type CachedRepository struct {
	store.Repository
	cache *Cache
}

// WrapRepository returns repo with FetchTasksBySprint cached in client.
func WrapRepository(repo store.Repository, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: NewCache(repo, client, ttl, log)}
}

// FetchTasksBySprint serves from the cache.
func (r *CachedRepository) FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error) {
	return r.cache.FetchTasksBySprint(ctx, sprintID)
}

// UpdateTaskStatus writes through the cache.
func (r *CachedRepository) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	return r.cache.UpdateTaskStatus(ctx, taskID, status)
}

// CreateTask writes and evicts.
func (r *CachedRepository) CreateTask(ctx context.Context, t *task.Task) error {
	return r.evictAfter(ctx, r.Repository.CreateTask(ctx, t))
}

// SaveTask writes and evicts.
func (r *CachedRepository) SaveTask(ctx context.Context, t *task.Task) error {
	return r.evictAfter(ctx, r.Repository.SaveTask(ctx, t))
}

// DeleteTask deletes and evicts.
func (r *CachedRepository) DeleteTask(ctx context.Context, id string) error {
	return r.evictAfter(ctx, r.Repository.DeleteTask(ctx, id))
}

// AddComment writes and evicts.
func (r *CachedRepository) AddComment(ctx context.Context, taskID string, c *task.Comment) error {
	return r.evictAfter(ctx, r.Repository.AddComment(ctx, taskID, c))
}

// UpdateComment writes and evicts.
func (r *CachedRepository) UpdateComment(ctx context.Context, taskID string, c *task.Comment) error {
	return r.evictAfter(ctx, r.Repository.UpdateComment(ctx, taskID, c))
}

// DeleteComment deletes and evicts.
func (r *CachedRepository) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return r.evictAfter(ctx, r.Repository.DeleteComment(ctx, taskID, commentID))
}

// AddSubtask writes and evicts.
func (r *CachedRepository) AddSubtask(ctx context.Context, taskID string, s *task.Subtask) error {
	return r.evictAfter(ctx, r.Repository.AddSubtask(ctx, taskID, s))
}

// SetSubtaskDone writes and evicts.
func (r *CachedRepository) SetSubtaskDone(ctx context.Context, taskID, subtaskID string, done bool) error {
	return r.evictAfter(ctx, r.Repository.SetSubtaskDone(ctx, taskID, subtaskID, done))
}

// DeleteSubtask deletes and evicts.
func (r *CachedRepository) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return r.evictAfter(ctx, r.Repository.DeleteSubtask(ctx, taskID, subtaskID))
}

func (r *CachedRepository) evictAfter(ctx context.Context, err error) error {
	if err == nil {
		r.cache.Evict(ctx)
	}
	return err
}
