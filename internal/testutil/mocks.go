// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

// ErrMockNotFound is returned by MockStore for unknown task ids.
var ErrMockNotFound = errors.New("mock: task not found")

// MockClock is a controllable clock.
type MockClock struct {
	mu      sync.Mutex
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.NowTime = m.NowTime.Add(d)
	m.mu.Unlock()
}

// UpdateCall records one UpdateTaskStatus invocation.
type UpdateCall struct {
	TaskID string
	Status task.Status
}

// MockStore is a test double for the task store ports. Tasks keep
// insertion order.
type MockStore struct {
	FetchErr  error
	UpdateErr error

	// UpdateErrFor fails UpdateTaskStatus only for the listed task ids.
	UpdateErrFor map[string]error

	// Gate, when non-nil, is received from before UpdateTaskStatus returns,
	// so tests can hold a call in flight.
	Gate chan struct{}

	mu          sync.Mutex
	tasks       []*task.Task
	fetchCalls  []string
	updateCalls []UpdateCall
}

// NewMockStore creates a MockStore holding copies of tasks.
func NewMockStore(tasks ...*task.Task) *MockStore {
	m := &MockStore{}
	for _, t := range tasks {
		m.tasks = append(m.tasks, t.Clone())
	}
	return m
}

// FetchTasksBySprint returns copies of the tasks in sprintID. An empty id
// selects tasks without a sprint; "*" selects every task.
func (m *MockStore) FetchTasksBySprint(_ context.Context, sprintID string) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, sprintID)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var out []*task.Task
	for _, t := range m.tasks {
		if sprintID == "*" || t.SprintID == sprintID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// UpdateTaskStatus records the call and, unless an error is configured,
// changes the stored status.
func (m *MockStore) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	m.mu.Lock()
	m.updateCalls = append(m.updateCalls, UpdateCall{TaskID: taskID, Status: status})
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if err, ok := m.UpdateErrFor[taskID]; ok {
		return err
	}
	for _, t := range m.tasks {
		if t.ID == taskID {
			t.Status = status
			return nil
		}
	}
	return ErrMockNotFound
}

// UpdateCalls returns the recorded UpdateTaskStatus calls in order.
func (m *MockStore) UpdateCalls() []UpdateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateCall(nil), m.updateCalls...)
}

// FetchCalls returns the sprint ids passed to FetchTasksBySprint.
func (m *MockStore) FetchCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetchCalls...)
}

// StatusOf returns the stored status of id.
func (m *MockStore) StatusOf(id string) task.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

// NewTask builds a task with a fixed id for tests.
func NewTask(id, title string, status task.Status) *task.Task {
	now := time.Date(2026, time.March, 30, 9, 0, 0, 0, time.UTC)
	return &task.Task{
		ID:       id,
		Title:    title,
		Status:   status,
		Priority: task.PriorityMedium,
		Created:  now,
		Updated:  now,
	}
}
