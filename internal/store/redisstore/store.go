// Package redisstore keeps a board in redis and provides a redis
// read-through cache for any other store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const (
	defaultPrefix = "trackle"
	maxTxRetries  = 5
	unassignedKey = "-"
)

// Store is a redis-backed store.Repository. Tasks live as JSON in one hash
// with a set of task ids per sprint.
type Store struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
	now    func() time.Time
}

var _ store.Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "trackle").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store using client.
func New(client *redis.Client, opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Store{client: client, prefix: defaultPrefix, log: discard, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial parses a redis URL and returns a connected client.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "invalid redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, store.Unavailable("redis ping", err)
	}
	return client, nil
}

func (s *Store) tasksKey() string    { return s.prefix + ":tasks" }
func (s *Store) sprintsKey() string  { return s.prefix + ":sprints" }
func (s *Store) standupsKey() string { return s.prefix + ":standups" }

func (s *Store) sprintSetKey(sprintID string) string {
	if sprintID == store.Unassigned {
		sprintID = unassignedKey
	}
	return s.prefix + ":sprint:" + sprintID
}

// wrap maps transport failures onto store.ErrUnavailable.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return err
	}
	return store.Unavailable(op, err)
}

func decodeTask(data string) (*task.Task, error) {
	var t task.Task
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("decoding task: %w", err)
	}
	for i := range t.Subtasks {
		t.Subtasks[i].TaskID = t.ID
	}
	for i := range t.Comments {
		t.Comments[i].TaskID = t.ID
	}
	return &t, nil
}

func sortByCreated(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].Created.Before(tasks[j].Created)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func (s *Store) decodeAll(values []any) []*task.Task {
	tasks := make([]*task.Task, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		t, err := decodeTask(str)
		if err != nil {
			s.log.WithError(err).Warn("skipping undecodable task")
			continue
		}
		tasks = append(tasks, t)
	}
	sortByCreated(tasks)
	return tasks
}

// ListTasks returns every task ordered by creation time.
func (s *Store) ListTasks(ctx context.Context) ([]*task.Task, error) {
	m, err := s.client.HGetAll(ctx, s.tasksKey()).Result()
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	values := make([]any, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return s.decodeAll(values), nil
}

// FetchTasksBySprint returns tasks in sprintID, ordered by creation time.
func (s *Store) FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error) {
	if sprintID == store.AllSprints {
		return s.ListTasks(ctx)
	}
	ids, err := s.client.SMembers(ctx, s.sprintSetKey(sprintID)).Result()
	if err != nil {
		return nil, wrap("fetch sprint tasks", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	values, err := s.client.HMGet(ctx, s.tasksKey(), ids...).Result()
	if err != nil {
		return nil, wrap("fetch sprint tasks", err)
	}
	return s.decodeAll(values), nil
}

// resolveID expands an id prefix into a full task id.
func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	prefix := strings.ToLower(strings.TrimSpace(id))
	if prefix == "" {
		return "", store.TaskNotFound(id)
	}
	exists, err := s.client.HExists(ctx, s.tasksKey(), prefix).Result()
	if err != nil {
		return "", wrap("resolve id", err)
	}
	if exists {
		return prefix, nil
	}
	keys, err := s.client.HKeys(ctx, s.tasksKey()).Result()
	if err != nil {
		return "", wrap("resolve id", err)
	}
	var matches []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return "", store.TaskNotFound(id)
	case 1:
		return matches[0], nil
	default:
		return "", task.AmbiguousIDError(id, len(matches))
	}
}

// GetTask returns the task whose id starts with id.
func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, s.tasksKey(), full).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.TaskNotFound(id)
	}
	if err != nil {
		return nil, wrap("get task", err)
	}
	return decodeTask(data)
}

// put writes t and moves it between sprint sets inside a transaction.
func (s *Store) put(ctx context.Context, pipe redis.Pipeliner, t *task.Task, oldSprint *string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	pipe.HSet(ctx, s.tasksKey(), t.ID, data)
	if oldSprint != nil && *oldSprint != t.SprintID {
		pipe.SRem(ctx, s.sprintSetKey(*oldSprint), t.ID)
	}
	pipe.SAdd(ctx, s.sprintSetKey(t.SprintID), t.ID)
	return nil
}

// CreateTask assigns an id if missing and stores a new task.
func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	if err := task.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := task.ValidateStatus(string(t.Status)); err != nil {
		return err
	}
	now := s.now()
	if t.ID == "" {
		t.ID = task.NewID()
	}
	if t.Created.IsZero() {
		t.Created = now
	}
	t.Updated = now
	if t.Status != task.StatusBacklog {
		task.UpdateTimestamps(t, task.StatusBacklog, t.Status, now)
	}
	t.Tags = task.NormalizeTags(t.Tags)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.put(ctx, pipe, t, nil)
	})
	return wrap("create task", err)
}

// SaveTask overwrites an existing task.
func (s *Store) SaveTask(ctx context.Context, t *task.Task) error {
	if err := task.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := task.ValidateStatus(string(t.Status)); err != nil {
		return err
	}
	t.Tags = task.NormalizeTags(t.Tags)
	return s.mutateTask(ctx, t.ID, true, func(cur *task.Task) error {
		*cur = *t.Clone()
		return nil
	})
}

// UpdateTaskStatus moves the task with the exact id to status.
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	if !status.IsValid() {
		return task.InvalidStatusError(string(status))
	}
	return s.mutateTask(ctx, taskID, true, func(t *task.Task) error {
		t.SetStatus(status, s.now())
		return nil
	})
}

// mutateTask applies fn to a task under WATCH, retrying when another
// client wrote the hash concurrently. exact disables prefix matching.
func (s *Store) mutateTask(ctx context.Context, id string, exact bool, fn func(*task.Task) error) error {
	full := id
	if !exact {
		var err error
		if full, err = s.resolveID(ctx, id); err != nil {
			return err
		}
	}

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, s.tasksKey(), full).Result()
		if errors.Is(err, redis.Nil) {
			return store.TaskNotFound(id)
		}
		if err != nil {
			return err
		}
		t, err := decodeTask(data)
		if err != nil {
			return err
		}
		oldSprint := t.SprintID
		if err := fn(t); err != nil {
			return err
		}
		t.ID = full
		t.Updated = s.now()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.put(ctx, pipe, t, &oldSprint)
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, s.tasksKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return wrap("update task", err)
	}
	return store.Unavailable("update task", redis.TxFailedErr)
}

// DeleteTask removes a task and its sprint membership.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.tasksKey(), t.ID)
		pipe.SRem(ctx, s.sprintSetKey(t.SprintID), t.ID)
		return nil
	})
	return wrap("delete task", err)
}

// AddComment appends c to the task's comments.
func (s *Store) AddComment(ctx context.Context, taskID string, c *task.Comment) error {
	if c.ID == "" {
		c.ID = task.NewID()
	}
	now := s.now()
	c.Created, c.Updated = now, now
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		c.TaskID = t.ID
		t.Comments = append(t.Comments, *c)
		return nil
	})
}

// UpdateComment replaces the content of the comment with c.ID.
func (s *Store) UpdateComment(ctx context.Context, taskID string, c *task.Comment) error {
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		i := t.FindComment(c.ID)
		if i < 0 {
			return store.NotFound(clierr.CommentNotFound, "comment", c.ID)
		}
		t.Comments[i].Content = c.Content
		t.Comments[i].Updated = s.now()
		*c = t.Comments[i]
		return nil
	})
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		i := t.FindComment(commentID)
		if i < 0 {
			return store.NotFound(clierr.CommentNotFound, "comment", commentID)
		}
		t.Comments = append(t.Comments[:i], t.Comments[i+1:]...)
		return nil
	})
}

// AddSubtask appends sub to the task's subtasks.
func (s *Store) AddSubtask(ctx context.Context, taskID string, sub *task.Subtask) error {
	if err := task.ValidateTitle(sub.Title); err != nil {
		return err
	}
	if sub.ID == "" {
		sub.ID = task.NewID()
	}
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		sub.TaskID = t.ID
		t.Subtasks = append(t.Subtasks, *sub)
		return nil
	})
}

// SetSubtaskDone checks or unchecks a subtask.
func (s *Store) SetSubtaskDone(ctx context.Context, taskID, subtaskID string, done bool) error {
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		i := t.FindSubtask(subtaskID)
		if i < 0 {
			return store.NotFound(clierr.SubtaskNotFound, "subtask", subtaskID)
		}
		t.Subtasks[i].Done = done
		return nil
	})
}

// DeleteSubtask removes a subtask.
func (s *Store) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return s.mutateTask(ctx, taskID, false, func(t *task.Task) error {
		i := t.FindSubtask(subtaskID)
		if i < 0 {
			return store.NotFound(clierr.SubtaskNotFound, "subtask", subtaskID)
		}
		t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
		return nil
	})
}
