package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tasklist/app/middleware"
	"tasklist/app/models"
	"tasklist/app/presenter"
	"tasklist/app/services"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// User-facing messages.
const (
	msgEmptyDescription = "Please enter a task description"
	msgTooLong          = "Task description must be 200 characters or less"
	msgConfirmDelete    = "Are you sure you want to delete this task?"
)

// ConfirmHeader confirms a delete request when set to true.
const ConfirmHeader = "X-Confirm-Delete"

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service        *services.TaskService
	ConfirmDeletes bool // DELETE requires an explicit confirmation
	Log            logrus.FieldLogger
	Now            func() time.Time
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, confirmDeletes bool, log logrus.FieldLogger) *TaskController {
	return &TaskController{
		Service:        service,
		ConfirmDeletes: confirmDeletes,
		Log:            log.WithField("component", "http_handler"),
		Now:            time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type confirmResponse struct {
	Error   string `json:"error"`
	Confirm string `json:"confirm"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (c *TaskController) logEntry(r *http.Request, handler string) logrus.FieldLogger {
	return c.Log.WithFields(logrus.Fields{
		"handler":    handler,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

// GetTasks handles GET /tasks.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	view, progress := c.Service.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, presenter.NewBoard(view, progress, c.Now()))
}

// GetProgress handles GET /tasks/progress.
func (c *TaskController) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.Service.Progress(r.Context()))
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := c.logEntry(r, "CreateTask")

	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("invalid request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request payload"})
		return
	}

	task, err := c.Service.CreateTask(r.Context(), req.Description)
	switch {
	case errors.Is(err, models.ErrEmptyDescription):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgEmptyDescription})
		return
	case errors.Is(err, models.ErrDescriptionTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTooLong})
		return
	case err != nil:
		log.WithError(err).Error("failed to create task")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, ok := c.Service.GetTask(r.Context(), taskID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ToggleTask handles POST /tasks/{taskID}/toggle. An unknown id is not an
// error: the client most likely holds a stale list.
func (c *TaskController) ToggleTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, ok := c.Service.ToggleTask(r.Context(), taskID)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]

	if c.ConfirmDeletes && !confirmed(r) {
		c.logEntry(r, "DeleteTask").WithField("task_id", taskID).Debug("delete awaiting confirmation")
		writeJSON(w, http.StatusPreconditionRequired, confirmResponse{
			Error:   msgConfirmDelete,
			Confirm: "repeat the request with ?confirm=true or " + ConfirmHeader + ": true",
		})
		return
	}

	c.Service.DeleteTask(r.Context(), taskID)
	w.WriteHeader(http.StatusNoContent)
}

func confirmed(r *http.Request) bool {
	for _, v := range []string{r.URL.Query().Get("confirm"), r.Header.Get(ConfirmHeader)} {
		if ok, err := strconv.ParseBool(v); err == nil && ok {
			return true
		}
	}
	return false
}
