package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/board"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/config"
	"github.com/twiced-technology-gmbh/trackle/internal/logging"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/store/filestore"
	"github.com/twiced-technology-gmbh/trackle/internal/store/redisstore"
	"github.com/twiced-technology-gmbh/trackle/internal/store/remote"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// session is everything a command needs to talk to a board.
type session struct {
	cfg  *config.Config
	log  *logrus.Logger
	repo store.Repository

	closers []func() error
}

// openSession loads the config, opens the board log file and connects the
// configured store backend. logOut, when non-nil, replaces the log file.
func openSession(logOut io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
		File:   cfg.LogPath(),
	})
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, closers: []func() error{closeLog}}

	repo, err := s.connect()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.repo = repo
	return s, nil
}

// connect builds the repository for store.backend and wraps it in the
// redis cache when store.cache_ttl is set and a redis URL is configured.
func (s *session) connect() (store.Repository, error) {
	cfg := s.cfg
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout())
	defer cancel()

	var repo store.Repository
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := s.dialRedis(ctx)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client,
			redisstore.WithLogger(s.log),
		), nil
	case config.BackendRemote:
		c, err := remote.New(cfg.Store.RemoteURL, remote.WithTimeout(cfg.StoreTimeout()))
		if err != nil {
			return nil, err
		}
		repo = c
	default:
		repo = filestore.New(cfg.Dir(), cfg.TasksPath(), filestore.WithLogger(s.log))
	}

	ttl := cfg.CacheTTL()
	if ttl <= 0 || cfg.Store.RedisURL == "" {
		return repo, nil
	}
	client, err := s.dialRedis(ctx)
	if err != nil {
		// The cache is optional; run uncached rather than fail.
		s.log.WithError(err).Warn("redis cache unavailable, continuing without it")
		return repo, nil
	}
	return redisstore.WrapRepository(repo, client, ttl, s.log), nil
}

func (s *session) dialRedis(ctx context.Context) (*redis.Client, error) {
	client, err := redisstore.Dial(ctx, s.cfg.Store.RedisURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client.Close)
	return client, nil
}

// Close releases the store connections and the log file.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}

// ctx returns a context bounded by store.timeout.
func (s *session) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.StoreTimeout())
}

// activity appends to the board's audit trail. Errors are discarded
// because the trail should never fail a command.
func (s *session) activity(action, id, detail string) {
	board.LogMutation(s.cfg.Dir(), action, id, detail)
	s.log.WithFields(logrus.Fields{"action": action, "task": id}).Info(detail)
}

// resolveSprint maps a user sprint argument to a sprint id. "active" selects
// the active sprint, "none" or "-" the unassigned backlog, "all" or "*"
// every task.
func (s *session) resolveSprint(ctx context.Context, arg string) (string, *task.Sprint, error) {
	switch arg {
	case "none", "-":
		return store.Unassigned, nil, nil
	case "all", store.AllSprints:
		return store.AllSprints, nil, nil
	case "active":
		sp, err := s.repo.ActiveSprint(ctx)
		if err != nil {
			return "", nil, err
		}
		return sp.ID, sp, nil
	}
	sp, err := s.repo.GetSprint(ctx, arg)
	if err != nil {
		return "", nil, err
	}
	return sp.ID, sp, nil
}

// boardSprint picks the sprint a board view shows: the --sprint flag, then
// config active_sprint, then the store's active sprint, then every task.
func (s *session) boardSprint(ctx context.Context, flag string) (string, *task.Sprint, error) {
	if flag != "" {
		return s.resolveSprint(ctx, flag)
	}
	if s.cfg.ActiveSprint != "" {
		id, sp, err := s.resolveSprint(ctx, s.cfg.ActiveSprint)
		if err == nil {
			return id, sp, nil
		}
		s.log.WithError(err).WithField("sprint", s.cfg.ActiveSprint).Warn("configured active_sprint not found")
	}
	sp, err := s.repo.ActiveSprint(ctx)
	switch {
	case err == nil:
		return sp.ID, sp, nil
	case errors.Is(err, store.ErrNotFound), clierr.HasCode(err, clierr.NoActiveSprint):
		return store.AllSprints, nil, nil
	default:
		return "", nil, err
	}
}

// resolveTask fetches a task by id prefix.
func (s *session) resolveTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// now is the clock used by commands.
var now = time.Now

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
