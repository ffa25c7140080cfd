// Package respond writes the JSON bodies shared by every API handler.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Message: message})
}

// Invalid answers 400 and lists criterio field errors when err carries them.
func Invalid(w http.ResponseWriter, message string, err error) {
	body := ErrorBody{Message: message}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			body.Errors = append(body.Errors, FieldError{Field: fe.Field, Message: fe.Err.Error()})
		}
	} else if err != nil {
		body.Errors = []FieldError{{Field: "body", Message: err.Error()}}
	}

	JSON(w, http.StatusBadRequest, body)
}

// Internal logs the cause and answers 500 with a generic message.
func Internal(w http.ResponseWriter, logger zerolog.Logger, message string, err error) {
	logger.Error().Err(err).Msg(message)
	Error(w, http.StatusInternalServerError, message)
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
