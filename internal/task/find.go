package task

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
)

// idPrefixRe matches the uuid prefix of a task filename.
var idPrefixRe = regexp.MustCompile(`^([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})(?:-|\.md$)`)

// FindByID scans the tasks directory for the file whose id starts with the
// given prefix. The prefix must identify exactly one task.
func FindByID(tasksDir, id string) (string, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		return "", fmt.Errorf("reading tasks directory: %w", err)
	}

	prefix := strings.ToLower(strings.TrimSpace(id))
	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		fileID, err := ExtractIDFromFilename(name)
		if err != nil {
			continue
		}
		if fileID == prefix {
			return filepath.Join(tasksDir, name), nil
		}
		if prefix != "" && strings.HasPrefix(fileID, prefix) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return "", NotFoundError(id)
	case 1:
		return filepath.Join(tasksDir, matches[0]), nil
	default:
		return "", AmbiguousIDError(id, len(matches))
	}
}

// AmbiguousIDError reports an id prefix that matches more than one entity.
func AmbiguousIDError(id string, n int) *clierr.Error {
	return clierr.Newf(clierr.AmbiguousID, "id prefix %q matches %d tasks", id, n).
		WithDetails(map[string]any{"id": id, "matches": n})
}

// ReadAll reads all task files from the given directory.
func ReadAll(tasksDir string) ([]*Task, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var tasks []*Task
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		t, err := Read(filepath.Join(tasksDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

// ReadWarning describes a file that could not be parsed during lenient reading.
type ReadWarning struct {
	File string // base filename
	Err  error
}

// ReadAllLenient reads all task files, skipping malformed files instead of
// aborting. Files whose status or priority falls outside the closed sets are
// reported as warnings too.
func ReadAllLenient(tasksDir string) ([]*Task, []ReadWarning, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var tasks []*Task
	var warnings []ReadWarning
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}

		t, readErr := Read(filepath.Join(tasksDir, entry.Name()))
		if readErr == nil {
			readErr = ValidateStatus(string(t.Status))
		}
		if readErr != nil {
			warnings = append(warnings, ReadWarning{File: entry.Name(), Err: readErr})
			continue
		}
		tasks = append(tasks, t)
	}

	return tasks, warnings, nil
}

// ExtractIDFromFilename extracts the uuid from a task filename.
func ExtractIDFromFilename(filename string) (string, error) {
	matches := idPrefixRe.FindStringSubmatch(strings.ToLower(filename))
	if len(matches) < 2 { //nolint:mnd // regex capture group
		return "", fmt.Errorf("cannot extract ID from filename %q", filename)
	}
	return matches[1], nil
}
