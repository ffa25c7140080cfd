package tasks

import (
	"errors"
	"strings"

	"github.com/hay-kot/criterio"

	"sf-clicktask-backend/internal/storage"
)

type CreateTaskRequest struct {
	Name      string  `json:"name"`
	Element   string  `json:"element"`
	Section   string  `json:"section"`
	Status    string  `json:"status"`
	ClickData *string `json:"clickData"`
}

// Validate trims the request in place and reports every bad field at once.
func (req *CreateTaskRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Element = strings.TrimSpace(req.Element)
	req.Section = strings.TrimSpace(req.Section)

	var errs criterio.FieldErrorsBuilder
	if req.Name == "" {
		errs = errs.Append("name", errors.New("is required"))
	}
	if req.Element == "" {
		errs = errs.Append("element", errors.New("is required"))
	}
	if req.Section == "" {
		errs = errs.Append("section", errors.New("is required"))
	}
	if req.Status != "" {
		if _, ok := storage.ParseStatus(req.Status); !ok {
			errs = errs.Append("status", errors.New("must be one of pending, processing, completed, failed"))
		}
	}
	return errs.ToError()
}

func (req CreateTaskRequest) NewTask() storage.NewTask {
	status := storage.StatusPending
	if s, ok := storage.ParseStatus(req.Status); ok {
		status = s
	}
	return storage.NewTask{
		Name:      req.Name,
		Element:   req.Element,
		Section:   req.Section,
		Status:    status,
		ClickData: req.ClickData,
	}
}

type SetStatusRequest struct {
	Status string `json:"status"`
}
