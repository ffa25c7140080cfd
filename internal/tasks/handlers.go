package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/storage"
)

// Store is the part of the backend the task handlers touch.
type Store interface {
	storage.TaskStore
	storage.CaptureStore
	storage.EventRecorder
}

// TaskHandler owns task generation from captures and the delayed retry
// simulation.
type TaskHandler struct {
	Store      Store
	RetryDelay time.Duration
	Log        zerolog.Logger

	// afterFunc is time.AfterFunc outside of tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func New(store Store, retryDelay time.Duration) *TaskHandler {
	return &TaskHandler{
		Store:      store,
		RetryDelay: retryDelay,
		Log:        logging.Component("tasks"),
		afterFunc:  time.AfterFunc,
	}
}

// GenerateAndStore derives a task from the capture, stores it and marks the
// capture processed.
func (h *TaskHandler) GenerateAndStore(ctx context.Context, c storage.ClickCapture, section string) (storage.Task, error) {
	nt, err := FromCapture(c, section)
	if err != nil {
		return storage.Task{}, err
	}

	task, err := h.Store.CreateTask(ctx, nt)
	if err != nil {
		return storage.Task{}, fmt.Errorf("create task for capture %d: %w", c.ID, err)
	}

	if _, err := h.Store.MarkCaptureProcessed(ctx, c.ID); err != nil {
		return task, fmt.Errorf("mark capture %d processed: %w", c.ID, err)
	}

	analytics.Log(ctx, h.Store, analytics.Envelope{RequestID: logging.RequestID(ctx), Platform: "extension"}, "task_generated", map[string]any{
		"task_id":    task.ID,
		"capture_id": c.ID,
		"section":    section,
	})

	return task, nil
}

// Retry puts the task back into processing and completes it once RetryDelay
// has elapsed. The completion runs detached from the request.
func (h *TaskHandler) Retry(ctx context.Context, id int) (storage.Task, error) {
	task, err := h.Store.UpdateTaskStatus(ctx, id, storage.StatusProcessing)
	if err != nil {
		return storage.Task{}, err
	}

	after := h.afterFunc
	if after == nil {
		after = time.AfterFunc
	}
	after(h.RetryDelay, func() {
		if _, err := h.Store.UpdateTaskStatus(context.Background(), id, storage.StatusCompleted); err != nil {
			h.Log.Warn().Err(err).Int("task_id", id).Msg("retry completion failed")
		}
	})

	return task, nil
}
