package captures

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
	"sf-clicktask-backend/internal/tasks"
)

type Store interface {
	storage.CaptureStore
	storage.TaskStore
	storage.SettingsStore
	storage.EventRecorder
}

// Handler serves the capture endpoints. Generator turns captures into tasks
// when auto task generation is on.
type Handler struct {
	Store     Store
	Generator *tasks.TaskHandler
	Log       zerolog.Logger
}

func NewHandler(store Store, gen *tasks.TaskHandler) *Handler {
	return &Handler{Store: store, Generator: gen, Log: logging.Component("captures")}
}

// Create serves POST /api/captures.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), h.Log)

	var body CreateCaptureRequest
	if err := respond.Decode(r, &body); err != nil {
		respond.Invalid(w, "Invalid capture data", err)
		return
	}
	if err := body.Validate(); err != nil {
		respond.Invalid(w, "Invalid capture data", err)
		return
	}

	capture, err := h.Store.CreateCapture(r.Context(), body.NewCapture())
	if err != nil {
		respond.Internal(w, logger, "Failed to create capture", err)
		return
	}

	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		respond.Internal(w, logger, "Failed to create capture", err)
		return
	}

	generated := false
	if settings.AutoTaskGeneration {
		if _, err := h.Generator.GenerateAndStore(r.Context(), capture, ExtractSection(capture.PageURL)); err != nil {
			respond.Internal(w, logger, "Failed to create capture", err)
			return
		}
		capture.Processed = true
		generated = true
	}

	analytics.LogRequest(r, h.Store, "capture_received", map[string]any{
		"capture_id":     capture.ID,
		"has_text":       capture.Text() != "",
		"task_generated": generated,
	})

	respond.OK(w, capture)
}

// List serves GET /api/captures, optionally filtered by ?processed=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var f storage.CaptureFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("processed")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Invalid(w, "Invalid capture filter", criterio.NewFieldErrors("processed", errors.New("must be true or false")))
			return
		}
		f.Processed = &v
	}

	list, err := h.Store.ListCaptures(r.Context(), f)
	if err != nil {
		respond.Internal(w, logging.FromContext(r.Context(), h.Log), "Failed to fetch captures", err)
		return
	}
	respond.OK(w, list)
}

// SimulateClick serves POST /api/simulate-click. It records a synthetic
// capture for the given section and always derives a completed task from it,
// regardless of the auto generation setting.
func (h *Handler) SimulateClick(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), h.Log)

	var body SimulateClickRequest
	if err := respond.Decode(r, &body); err != nil {
		respond.Invalid(w, "Invalid click data", err)
		return
	}
	if err := body.Validate(); err != nil {
		respond.Invalid(w, "Invalid click data", err)
		return
	}

	selector := strings.TrimSpace(body.ElementSelector)
	if selector == "" {
		selector = fmt.Sprintf("button:contains(%q)", body.ElementText)
	}
	text := body.ElementText

	capture, err := h.Store.CreateCapture(r.Context(), storage.NewCapture{
		ElementSelector: selector,
		ElementText:     &text,
		PageURL:         "https://successfactors.com/" + body.Section,
	})
	if err != nil {
		respond.Internal(w, logger, "Failed to simulate click", err)
		return
	}

	nt, err := tasks.FromCapture(capture, body.Section)
	if err != nil {
		respond.Internal(w, logger, "Failed to simulate click", err)
		return
	}
	nt.Name = "Click in " + text
	nt.Element = text

	if _, err := h.Store.CreateTask(r.Context(), nt); err != nil {
		respond.Internal(w, logger, "Failed to simulate click", err)
		return
	}
	if _, err := h.Store.MarkCaptureProcessed(r.Context(), capture.ID); err != nil {
		respond.Internal(w, logger, "Failed to simulate click", err)
		return
	}
	capture.Processed = true

	analytics.LogRequest(r, h.Store, "click_simulated", map[string]any{
		"capture_id": capture.ID,
		"section":    body.Section,
	})

	respond.OK(w, map[string]any{"success": true, "capture": capture})
}
