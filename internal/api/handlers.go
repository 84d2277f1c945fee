package api

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/twiced-technology-gmbh/trackle/internal/clierr"
	"github.com/twiced-technology-gmbh/trackle/internal/store"
	"github.com/twiced-technology-gmbh/trackle/internal/task"
)

type handlers struct {
	repo store.Repository
}

// StatusRequest is the body of PATCH /api/tasks/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// DoneRequest is the body of PATCH /api/tasks/:id/subtasks/:sid.
type DoneRequest struct {
	Done bool `json:"done"`
}

// TasksResponse wraps a task list.
type TasksResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

// SprintsResponse wraps a sprint list.
type SprintsResponse struct {
	Sprints []*task.Sprint `json:"sprints"`
}

// StandupsResponse wraps a standup list.
type StandupsResponse struct {
	Standups []*task.Standup `json:"standups"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return clierr.New(clierr.InvalidInput, "invalid body")
	}
	return nil
}

func (h *handlers) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) listTasks(c echo.Context) error {
	tasks, err := h.repo.ListTasks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: nonNil(tasks)})
}

func (h *handlers) getTask(c echo.Context) error {
	t, err := h.repo.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *handlers) createTask(c echo.Context) error {
	var t task.Task
	if err := bind(c, &t); err != nil {
		return err
	}
	if err := h.repo.CreateTask(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &t)
}

func (h *handlers) saveTask(c echo.Context) error {
	var t task.Task
	if err := bind(c, &t); err != nil {
		return err
	}
	t.ID = c.Param("id")
	if err := h.repo.SaveTask(c.Request().Context(), &t); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &t)
}

func (h *handlers) deleteTask(c echo.Context) error {
	if err := h.repo.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) updateStatus(c echo.Context) error {
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	status, ok := task.ParseStatus(req.Status)
	if !ok {
		return task.InvalidStatusError(req.Status)
	}
	if err := h.repo.UpdateTaskStatus(c.Request().Context(), c.Param("id"), status); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) addComment(c echo.Context) error {
	var cm task.Comment
	if err := bind(c, &cm); err != nil {
		return err
	}
	if err := h.repo.AddComment(c.Request().Context(), c.Param("id"), &cm); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &cm)
}

func (h *handlers) updateComment(c echo.Context) error {
	var cm task.Comment
	if err := bind(c, &cm); err != nil {
		return err
	}
	cm.ID = c.Param("cid")
	if err := h.repo.UpdateComment(c.Request().Context(), c.Param("id"), &cm); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &cm)
}

func (h *handlers) deleteComment(c echo.Context) error {
	if err := h.repo.DeleteComment(c.Request().Context(), c.Param("id"), c.Param("cid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) addSubtask(c echo.Context) error {
	var sub task.Subtask
	if err := bind(c, &sub); err != nil {
		return err
	}
	if err := h.repo.AddSubtask(c.Request().Context(), c.Param("id"), &sub); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &sub)
}

func (h *handlers) setSubtaskDone(c echo.Context) error {
	var req DoneRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.repo.SetSubtaskDone(c.Request().Context(), c.Param("id"), c.Param("sid"), req.Done); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) deleteSubtask(c echo.Context) error {
	if err := h.repo.DeleteSubtask(c.Request().Context(), c.Param("id"), c.Param("sid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listSprints(c echo.Context) error {
	sprints, err := h.repo.ListSprints(c.Request().Context())
	if err != nil {
		return err
	}
	if sprints == nil {
		sprints = []*task.Sprint{}
	}
	return c.JSON(http.StatusOK, SprintsResponse{Sprints: sprints})
}

func (h *handlers) saveSprint(c echo.Context) error {
	var sp task.Sprint
	if err := bind(c, &sp); err != nil {
		return err
	}
	if err := h.repo.SaveSprint(c.Request().Context(), &sp); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &sp)
}

func (h *handlers) activeSprint(c echo.Context) error {
	sp, err := h.repo.ActiveSprint(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *handlers) getSprint(c echo.Context) error {
	sp, err := h.repo.GetSprint(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *handlers) activateSprint(c echo.Context) error {
	if err := h.repo.ActivateSprint(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) sprintTasks(c echo.Context) error {
	id, err := url.PathUnescape(c.Param("id"))
	if err != nil {
		return clierr.New(clierr.InvalidInput, "invalid sprint id")
	}
	if id == UnassignedPath {
		id = store.Unassigned
	}
	tasks, err := h.repo.FetchTasksBySprint(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TasksResponse{Tasks: nonNil(tasks)})
}

func (h *handlers) listStandups(c echo.Context) error {
	standups, err := h.repo.ListStandups(c.Request().Context())
	if err != nil {
		return err
	}
	if standups == nil {
		standups = []*task.Standup{}
	}
	return c.JSON(http.StatusOK, StandupsResponse{Standups: standups})
}

func (h *handlers) addStandup(c echo.Context) error {
	var su task.Standup
	if err := bind(c, &su); err != nil {
		return err
	}
	if err := h.repo.AddStandup(c.Request().Context(), &su); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, &su)
}

func nonNil(tasks []*task.Task) []*task.Task {
	if tasks == nil {
		return []*task.Task{}
	}
	return tasks
}
