package report

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hay-kot/criterio"

	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/tasks"
)

// ExportHandler serves GET /api/tasks/export?format=json|csv|pdf. The task
// list filters (?status=, ?search=) apply to the report as well.
func ExportHandler(e *Exporter) http.HandlerFunc {
	logger := logging.Component("report")
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			respond.Invalid(w, "Invalid export request", criterio.NewFieldErrors("format", err))
			return
		}
		filter, err := tasks.ParseFilter(r)
		if err != nil {
			respond.Invalid(w, "Invalid export request", err)
			return
		}

		data, err := e.Export(r.Context(), f, filter)
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to export tasks", err)
			return
		}

		name := fmt.Sprintf("tasks-%s.%s", time.Now().Format("20060102"), f.Extension)
		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
