package analytics

import (
	"net/http"
	"time"

	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
)

// StatisticsHandler serves GET /api/statistics: today's clicks, generated
// tasks and success rate.
func StatisticsHandler(store storage.StatsStore, now func() time.Time) http.HandlerFunc {
	logger := logging.Component("analytics")
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Statistics(r.Context(), now())
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to fetch statistics", err)
			return
		}
		respond.OK(w, stats)
	}
}

// BySectionHandler serves GET /api/analytics/by-section.
func BySectionHandler(store storage.StatsStore) http.HandlerFunc {
	logger := logging.Component("analytics")
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.TasksBySection(r.Context())
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to fetch section analytics", err)
			return
		}
		respond.OK(w, counts)
	}
}
