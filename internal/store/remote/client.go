// Package remote implements store.Repository against a `trackle serve`
// HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/trackle/internal/api"
	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// Client talks to the trackle HTTP API.
type Client struct {
	base string
	http *http.Client
}

var _ store.Repository = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid remote url %q", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends a request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op := method + " " + path
	resp, err := c.http.Do(req)
	if err != nil {
		return store.Unavailable(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return store.Unavailable(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// decodeError rebuilds the server's coded error so callers can match on
// the same codes and sentinels as with a local store.
func decodeError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body api.ErrorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	if body.Code == "" {
		body.Code = clierr.StoreError
	}
	if body.Details == nil {
		body.Details = map[string]any{}
	}
	body.Details["http_status"] = resp.StatusCode

	e := &clierr.Error{Code: body.Code, Message: body.Error, Details: body.Details}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		e.Err = store.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		e.Err = store.ErrUnavailable
		e.Message = fmt.Sprintf("%s: %s", op, body.Error)
	}
	return e
}

func seg(s string) string { return url.PathEscape(s) }

func sprintSeg(id string) string {
	switch id {
	case store.Unassigned:
		return api.UnassignedPath
	case store.AllSprints:
		return store.AllSprints
	}
	return seg(id)
}

// FetchTasksBySprint lists the tasks of one sprint.
func (c *Client) FetchTasksBySprint(ctx context.Context, sprintID string) ([]*task.Task, error) {
	var resp api.TasksResponse
	if err := c.do(ctx, http.MethodGet, "/api/sprints/"+sprintSeg(sprintID)+"/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// UpdateTaskStatus patches a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status task.Status) error {
	return c.do(ctx, http.MethodPatch, "/api/tasks/"+seg(taskID)+"/status",
		api.StatusRequest{Status: string(status)}, nil)
}

// ListTasks lists every task.
func (c *Client) ListTasks(ctx context.Context) ([]*task.Task, error) {
	var resp api.TasksResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask fetches one task by id or unique prefix.
func (c *Client) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+seg(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates t and copies the server's result back into it.
func (c *Client) CreateTask(ctx context.Context, t *task.Task) error {
	return c.do(ctx, http.MethodPost, "/api/tasks", t, t)
}

// SaveTask overwrites t on the server.
func (c *Client) SaveTask(ctx context.Context, t *task.Task) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+seg(t.ID), t, t)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+seg(id), nil, nil)
}

// ListSprints lists sprints ordered by start.
func (c *Client) ListSprints(ctx context.Context) ([]*task.Sprint, error) {
	var resp api.SprintsResponse
	if err := c.do(ctx, http.MethodGet, "/api/sprints", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sprints, nil
}

// GetSprint fetches one sprint.
func (c *Client) GetSprint(ctx context.Context, id string) (*task.Sprint, error) {
	var sp task.Sprint
	if err := c.do(ctx, http.MethodGet, "/api/sprints/"+seg(id), nil, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// SaveSprint creates or replaces a sprint.
func (c *Client) SaveSprint(ctx context.Context, sp *task.Sprint) error {
	return c.do(ctx, http.MethodPost, "/api/sprints", sp, sp)
}

// ActivateSprint makes id the active sprint.
func (c *Client) ActivateSprint(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/sprints/"+seg(id)+"/activate", nil, nil)
}

// ActiveSprint fetches the active sprint.
func (c *Client) ActiveSprint(ctx context.Context) (*task.Sprint, error) {
	var sp task.Sprint
	if err := c.do(ctx, http.MethodGet, "/api/sprints/active", nil, &sp); err != nil {
		return nil, err
	}
	return &sp, nil
}

// AddComment adds a comment to a task.
func (c *Client) AddComment(ctx context.Context, taskID string, cm *task.Comment) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+seg(taskID)+"/comments", cm, cm)
}

// UpdateComment edits a comment.
func (c *Client) UpdateComment(ctx context.Context, taskID string, cm *task.Comment) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+seg(taskID)+"/comments/"+seg(cm.ID), cm, cm)
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, taskID, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+seg(taskID)+"/comments/"+seg(commentID), nil, nil)
}

// AddSubtask adds a subtask to a task.
func (c *Client) AddSubtask(ctx context.Context, taskID string, sub *task.Subtask) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+seg(taskID)+"/subtasks", sub, sub)
}

// SetSubtaskDone checks or unchecks a subtask.
func (c *Client) SetSubtaskDone(ctx context.Context, taskID, subtaskID string, done bool) error {
	return c.do(ctx, http.MethodPatch, "/api/tasks/"+seg(taskID)+"/subtasks/"+seg(subtaskID),
		api.DoneRequest{Done: done}, nil)
}

// DeleteSubtask removes a subtask.
func (c *Client) DeleteSubtask(ctx context.Context, taskID, subtaskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+seg(taskID)+"/subtasks/"+seg(subtaskID), nil, nil)
}

// AddStandup records a standup.
func (c *Client) AddStandup(ctx context.Context, su *task.Standup) error {
	return c.do(ctx, http.MethodPost, "/api/standups", su, su)
}

// ListStandups lists standups newest first.
func (c *Client) ListStandups(ctx context.Context) ([]*task.Standup, error) {
	var resp api.StandupsResponse
	if err := c.do(ctx, http.MethodGet, "/api/standups", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Standups, nil
}
