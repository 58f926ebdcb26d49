package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/models"
	"tasktracker/internal/workflow"
)

type taskRequest struct {
	Title        *string      `json:"title"`
	Description  *string      `json:"description"`
	Status       *string      `json:"status"`
	Priority     *string      `json:"priority"`
	Blocker      *string      `json:"blocker"`
	AssignedDate optionalDate `json:"assigned_date"`
	StartDate    optionalDate `json:"start_date"`
	EndDate      optionalDate `json:"end_date"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// optionalDate tells an absent date field apart from an explicit null or
// empty string, which clears the date.
type optionalDate struct {
	set   bool
	value models.NullTime
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.set = true
	return o.value.UnmarshalJSON(data)
}

func (o optionalDate) ptr() *models.NullTime {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// handleListTasks fetches tasks for a project, newest first.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.store.ListTasksByProject(c.Request.Context(), projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleBoard returns a project's tasks split into status columns.
func (s *Server) handleBoard(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	tasks, err := s.store.ListTasksByProject(ctx, projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"project": project,
		"columns": workflow.Board(tasks),
		"summary": workflow.Summarize(tasks),
	})
}

// handleCreateTask inserts a new task into a project column.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	fields := models.TaskFields{
		Title:       getString(req.Title),
		Description: getString(req.Description),
		Blocker:     getString(req.Blocker),
	}
	if req.Status != nil && *req.Status != "" {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			s.fail(c, err)
			return
		}
		fields.Status = status
	}
	if req.Priority != nil && *req.Priority != "" {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			s.fail(c, err)
			return
		}
		fields.Priority = priority
	}

	task, err := s.store.CreateTask(c.Request.Context(), projectID, fields)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask loads a task for the edit form.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask saves the edit form. The end date can only be changed
// while the task is Prod Deployed; otherwise the submitted value is ignored.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	update := models.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Blocker:      req.Blocker,
		AssignedDate: req.AssignedDate.ptr(),
		StartDate:    req.StartDate.ptr(),
		EndDate:      req.EndDate.ptr(),
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			s.fail(c, err)
			return
		}
		update.Status = &status
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			s.fail(c, err)
			return
		}
		update.Priority = &priority
	}

	resulting := current.Status
	if update.Status != nil {
		resulting = *update.Status
	}
	if update.EndDate != nil && !workflow.EndDateEditable(resulting) {
		s.logger.Debug("ignoring end date edit", slog.Int64("task_id", id), slog.String("status", string(resulting)))
		update.EndDate = nil
	}

	task, err := s.store.UpdateTask(ctx, id, update)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleMoveTask changes only the status, as when a card is dragged to
// another column.
func (s *Server) handleMoveTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}

	task, err := s.store.UpdateTaskStatus(c.Request.Context(), id, status)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
