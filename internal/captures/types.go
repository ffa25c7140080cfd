package captures

import (
	"errors"
	"net/url"
	"strings"

	"github.com/hay-kot/criterio"

	"sf-clicktask-backend/internal/storage"
)

type CreateCaptureRequest struct {
	ElementSelector string  `json:"elementSelector"`
	ElementText     *string `json:"elementText"`
	PageURL         string  `json:"pageUrl"`
}

func (req *CreateCaptureRequest) Validate() error {
	req.ElementSelector = strings.TrimSpace(req.ElementSelector)
	req.PageURL = strings.TrimSpace(req.PageURL)

	var errs criterio.FieldErrorsBuilder
	if req.ElementSelector == "" {
		errs = errs.Append("elementSelector", errors.New("is required"))
	}
	if req.PageURL == "" {
		errs = errs.Append("pageUrl", errors.New("is required"))
	} else if _, err := url.Parse(req.PageURL); err != nil {
		errs = errs.Append("pageUrl", errors.New("is not a valid URL"))
	}
	return errs.ToError()
}

func (req CreateCaptureRequest) NewCapture() storage.NewCapture {
	return storage.NewCapture{
		ElementSelector: req.ElementSelector,
		ElementText:     req.ElementText,
		PageURL:         req.PageURL,
	}
}

type SimulateClickRequest struct {
	ElementText     string `json:"elementText"`
	ElementSelector string `json:"elementSelector"`
	Section         string `json:"section"`
}

func (req *SimulateClickRequest) Validate() error {
	req.ElementText = strings.TrimSpace(req.ElementText)
	req.Section = strings.TrimSpace(req.Section)

	var errs criterio.FieldErrorsBuilder
	if req.ElementText == "" {
		errs = errs.Append("elementText", errors.New("is required"))
	}
	if req.Section == "" {
		errs = errs.Append("section", errors.New("is required"))
	}
	return errs.ToError()
}
