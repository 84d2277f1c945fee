package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const (
	sprintsFileName  = "sprints.yml"
	standupsFileName = "standups.yml"
	dataFileMode     = 0o600
)

type sprintsFile struct {
	Sprints []*task.Sprint `yaml:"sprints"`
}

type standupsFile struct {
	Standups []*task.Standup `yaml:"standups"`
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // board path from trusted source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, dataFileMode)
}

func (s *Store) sprintsPath() string  { return filepath.Join(s.dir, sprintsFileName) }
func (s *Store) standupsPath() string { return filepath.Join(s.dir, standupsFileName) }

func (s *Store) readSprints() ([]*task.Sprint, error) {
	var f sprintsFile
	if err := readYAML(s.sprintsPath(), &f); err != nil {
		return nil, err
	}
	return f.Sprints, nil
}

// ListSprints returns every sprint ordered by start date.
func (s *Store) ListSprints(_ context.Context) ([]*task.Sprint, error) {
	sprints, err := s.readSprints()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].Start.Before(sprints[j].Start)
	})
	return sprints, nil
}

// GetSprint returns the sprint whose id starts with id.
func (s *Store) GetSprint(_ context.Context, id string) (*task.Sprint, error) {
	sprints, err := s.readSprints()
	if err != nil {
		return nil, err
	}
	i, err := findSprint(sprints, id)
	if err != nil {
		return nil, err
	}
	return sprints[i], nil
}

func findSprint(sprints []*task.Sprint, id string) (int, error) {
	prefix := strings.ToLower(strings.TrimSpace(id))
	found := -1
	for i, sp := range sprints {
		if sp.ID == prefix {
			return i, nil
		}
		if prefix != "" && strings.HasPrefix(sp.ID, prefix) {
			if found >= 0 {
				return -1, clierr.Newf(clierr.AmbiguousID, "id prefix %q matches several sprints", id).
					WithDetails(map[string]any{"id": id})
			}
			found = i
		}
	}
	if found < 0 {
		return -1, store.SprintNotFound(id)
	}
	return found, nil
}

// SaveSprint inserts or replaces a sprint. Saving an active sprint
// deactivates the others.
func (s *Store) SaveSprint(_ context.Context, sp *task.Sprint) error {
	if strings.TrimSpace(sp.Goal) == "" {
		return clierr.New(clierr.InvalidInput, "sprint goal must not be empty")
	}
	if !sp.End.After(sp.Start) {
		return clierr.New(clierr.InvalidInput, "sprint end must be after its start")
	}
	if sp.ID == "" {
		sp.ID = task.NewID()
	}
	return s.withLock(func() error {
		sprints, err := s.readSprints()
		if err != nil {
			return err
		}
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
		return writeYAML(s.sprintsPath(), sprintsFile{Sprints: sprints})
	})
}

// ActivateSprint marks one sprint active and clears every other flag.
func (s *Store) ActivateSprint(_ context.Context, id string) error {
	return s.withLock(func() error {
		sprints, err := s.readSprints()
		if err != nil {
			return err
		}
		idx, err := findSprint(sprints, id)
		if err != nil {
			return err
		}
		for i, sp := range sprints {
			sp.Active = i == idx
		}
		return writeYAML(s.sprintsPath(), sprintsFile{Sprints: sprints})
	})
}

// ActiveSprint returns the active sprint.
func (s *Store) ActiveSprint(_ context.Context) (*task.Sprint, error) {
	sprints, err := s.readSprints()
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
func (s *Store) AddStandup(_ context.Context, su *task.Standup) error {
	if err := task.ValidateStandup(su); err != nil {
		return err
	}
	if su.ID == "" {
		su.ID = task.NewID()
	}
	if su.Created.IsZero() {
		su.Created = s.now()
	}
	return s.withLock(func() error {
		var f standupsFile
		if err := readYAML(s.standupsPath(), &f); err != nil {
			return err
		}
		f.Standups = append(f.Standups, su)
		return writeYAML(s.standupsPath(), f)
	})
}

// ListStandups returns standups newest first.
func (s *Store) ListStandups(_ context.Context) ([]*task.Standup, error) {
	var f standupsFile
	if err := readYAML(s.standupsPath(), &f); err != nil {
		return nil, err
	}
	sort.SliceStable(f.Standups, func(i, j int) bool {
		return f.Standups[i].Created.After(f.Standups[j].Created)
	})
	return f.Standups, nil
}
