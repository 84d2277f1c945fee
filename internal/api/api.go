// Package api exposes a Repository over HTTP with echo.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
)

// UnassignedPath is the sprint path segment that selects tasks without a
// sprint.
const UnassignedPath = "-"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// New returns an echo instance with middleware and routes registered.
func New(repo store.Repository, log logrus.FieldLogger) *echo.Echo {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))

	Register(e, repo)
	return e
}

// Register wires up all API routes on e.
func Register(e *echo.Echo, repo store.Repository) {
	h := &handlers{repo: repo}

	e.GET("/healthz", h.healthz)

	api := e.Group("/api")
	api.GET("/tasks", h.listTasks)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:id", h.getTask)
	api.PUT("/tasks/:id", h.saveTask)
	api.DELETE("/tasks/:id", h.deleteTask)
	api.PATCH("/tasks/:id/status", h.updateStatus)

	api.POST("/tasks/:id/comments", h.addComment)
	api.PUT("/tasks/:id/comments/:cid", h.updateComment)
	api.DELETE("/tasks/:id/comments/:cid", h.deleteComment)

	api.POST("/tasks/:id/subtasks", h.addSubtask)
	api.PATCH("/tasks/:id/subtasks/:sid", h.setSubtaskDone)
	api.DELETE("/tasks/:id/subtasks/:sid", h.deleteSubtask)

	api.GET("/sprints", h.listSprints)
	api.POST("/sprints", h.saveSprint)
	api.GET("/sprints/active", h.activeSprint)
	api.GET("/sprints/:id", h.getSprint)
	api.POST("/sprints/:id/activate", h.activateSprint)
	api.GET("/sprints/:id/tasks", h.sprintTasks)

	api.GET("/standups", h.listStandups)
	api.POST("/standups", h.addStandup)
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			if res.Status >= http.StatusInternalServerError {
				entry.WithError(err).Error("request failed")
			} else {
				entry.Debug("request")
			}
			return nil
		}
	}
}

// StatusFor maps an error onto an HTTP status code.
func StatusFor(err error) int {
	var ce *clierr.Error
	if errors.As(err, &ce) {
		switch ce.Code {
		case clierr.TaskNotFound, clierr.SprintNotFound, clierr.CommentNotFound,
			clierr.SubtaskNotFound, clierr.NoActiveSprint:
			return http.StatusNotFound
		case clierr.InvalidInput, clierr.InvalidStatus, clierr.InvalidPriority,
			clierr.InvalidTransition, clierr.InvalidDate, clierr.InvalidStandup:
			return http.StatusBadRequest
		case clierr.AmbiguousID, clierr.StatusConflict:
			return http.StatusConflict
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, ErrorBody{Error: msg, Code: codeForStatus(he.Code)})
			return
		}

		status := StatusFor(err)
		body := ErrorBody{Error: err.Error(), Code: clierr.InternalError}
		var ce *clierr.Error
		if errors.As(err, &ce) {
			body.Code = ce.Code
			body.Details = ce.Details
		} else if status == http.StatusServiceUnavailable {
			body.Code = clierr.StoreError
		}
		if status == http.StatusInternalServerError {
			log.WithError(err).Error("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusBadRequest:
		return clierr.InvalidInput
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	}
	return clierr.InternalError
}
