package tasks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hay-kot/criterio"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
)

// ParseFilter reads ?status=a,b and ?search= from the query string.
func ParseFilter(r *http.Request) (storage.TaskFilter, error) {
	var f storage.TaskFilter
	f.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return f, nil
	}
	for _, part := range strings.Split(raw, ",") {
		s, ok := storage.ParseStatus(part)
		if !ok {
			return f, criterio.NewFieldErrors("status", errors.New("unknown status "+strconv.Quote(strings.TrimSpace(part))))
		}
		f.Statuses = append(f.Statuses, s)
	}
	return f, nil
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func GetTasksHandler(store storage.TaskStore) http.HandlerFunc {
	logger := logging.Component("tasks")
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := ParseFilter(r)
		if err != nil {
			respond.Invalid(w, "Invalid task filter", err)
			return
		}

		list, err := store.ListTasks(r.Context(), f)
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to fetch tasks", err)
			return
		}
		respond.OK(w, list)
	}
}

func CreateTaskHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body CreateTaskRequest
		if err := respond.Decode(r, &body); err != nil {
			respond.Invalid(w, "Invalid task data", err)
			return
		}
		if err := body.Validate(); err != nil {
			respond.Invalid(w, "Invalid task data", err)
			return
		}

		task, err := h.Store.CreateTask(r.Context(), body.NewTask())
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), h.Log), "Failed to create task", err)
			return
		}

		// task text stays out of analytics
		analytics.LogRequest(r, h.Store, "task_created", map[string]any{
			"task_id":  task.ID,
			"section":  task.Section,
			"status":   string(task.Status),
			"name_len": len(task.Name),
		})

		respond.OK(w, task)
	}
}

func SetTaskStatusHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}

		var body SetStatusRequest
		if err := respond.Decode(r, &body); err != nil || strings.TrimSpace(body.Status) == "" {
			respond.Error(w, http.StatusBadRequest, "Status is required")
			return
		}
		status, ok := storage.ParseStatus(body.Status)
		if !ok {
			respond.Invalid(w, "Invalid status", criterio.NewFieldErrors("status", errors.New("must be one of pending, processing, completed, failed")))
			return
		}

		task, err := h.Store.UpdateTaskStatus(r.Context(), id, status)
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), h.Log), "Failed to update task status", err)
			return
		}

		analytics.LogRequest(r, h.Store, "task_status_changed", map[string]any{
			"task_id": id,
			"status":  string(status),
		})

		respond.OK(w, task)
	}
}

func RetryTaskHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}

		task, err := h.Retry(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), h.Log), "Failed to retry task", err)
			return
		}

		analytics.LogRequest(r, h.Store, "task_retried", map[string]any{"task_id": id})
		respond.OK(w, task)
	}
}

func DeleteTaskHandler(h *TaskHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}

		deleted, err := h.Store.DeleteTask(r.Context(), id)
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), h.Log), "Failed to delete task", err)
			return
		}
		if !deleted {
			respond.Error(w, http.StatusNotFound, "Task not found")
			return
		}

		analytics.LogRequest(r, h.Store, "task_deleted", map[string]any{"task_id": id})
		respond.OK(w, map[string]any{"success": true})
	}
}
