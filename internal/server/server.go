// Package server wires every API handler onto one mux.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/auth"
	"sf-clicktask-backend/internal/captures"
	"sf-clicktask-backend/internal/config"
	"sf-clicktask-backend/internal/extension"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/report"
	"sf-clicktask-backend/internal/settings"
	"sf-clicktask-backend/internal/storage"
	"sf-clicktask-backend/internal/tasks"
)

type Deps struct {
	Config     *config.Config
	Store      storage.Store
	Background *extension.Background
	Now        func() time.Time
}

type Server struct {
	handler http.Handler
	log     zerolog.Logger
}

func New(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config
	secret := []byte(cfg.Auth.JWTSecret)

	taskHandler := tasks.New(d.Store, cfg.Tasks.RetryDelay)
	captureHandler := captures.NewHandler(d.Store, taskHandler)
	exporter := report.NewExporter(d.Store)

	mw := auth.New(secret, cfg.Auth.Required)
	// capture posts come from the content script, which may not be logged in
	open := auth.New(secret, false)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/tasks", mw.Wrap(tasks.GetTasksHandler(d.Store)))
	mux.HandleFunc("POST /api/tasks", mw.Wrap(tasks.CreateTaskHandler(taskHandler)))
	mux.HandleFunc("GET /api/tasks/export", mw.Wrap(report.ExportHandler(exporter)))
	mux.HandleFunc("PUT /api/tasks/{id}/status", mw.Wrap(tasks.SetTaskStatusHandler(taskHandler)))
	mux.HandleFunc("POST /api/tasks/{id}/retry", mw.Wrap(tasks.RetryTaskHandler(taskHandler)))
	mux.HandleFunc("DELETE /api/tasks/{id}", mw.Wrap(tasks.DeleteTaskHandler(taskHandler)))

	mux.HandleFunc("POST /api/captures", open.Wrap(captureHandler.Create))
	mux.HandleFunc("GET /api/captures", mw.Wrap(captureHandler.List))
	mux.HandleFunc("POST /api/simulate-click", mw.Wrap(captureHandler.SimulateClick))

	mux.HandleFunc("GET /api/settings", mw.Wrap(settings.GetSettingsHandler(d.Store)))
	mux.HandleFunc("PUT /api/settings", mw.Wrap(settings.UpdateSettingsHandler(d.Store)))
	mux.HandleFunc("POST /api/settings/reset", mw.Wrap(settings.ResetSettingsHandler(d.Store)))

	mux.HandleFunc("GET /api/statistics", mw.Wrap(analytics.StatisticsHandler(d.Store, d.Now)))
	mux.HandleFunc("GET /api/analytics/by-section", mw.Wrap(analytics.BySectionHandler(d.Store)))

	mux.HandleFunc("POST /api/auth/login", auth.LoginHandler(d.Store, secret, cfg.Auth.TokenTTL))
	mux.HandleFunc("POST /api/auth/logout", auth.LogoutHandler())
	mux.HandleFunc("GET /api/auth/status", mw.Require(auth.StatusHandler()))

	if d.Background != nil {
		mux.HandleFunc("POST /api/extension/messages", mw.Wrap(extension.MessagesHandler(d.Background)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			"X-Platform", "X-App-Version", "X-Session-Id", requestIDHeader,
		},
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	})

	logger := logging.Component("http")
	return &Server{
		handler: requestID(accessLog(logger, c.Handler(mux))),
		log:     logger,
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
