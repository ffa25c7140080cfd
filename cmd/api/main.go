package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"sf-clicktask-backend/internal/auth"
	"sf-clicktask-backend/internal/config"
	"sf-clicktask-backend/internal/db"
	"sf-clicktask-backend/internal/extension"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/server"
	"sf-clicktask-backend/internal/storage"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}
	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

type flags struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
	Addr       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		f         flags
		cfg       *config.Config
		store     storage.Store
		logCloser func()
	)

	app := &cli.Command{
		Name:    "clicktask-api",
		Usage:   "Capture SuccessFactors clicks and turn them into tasks",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the YAML config file",
				Sources:     cli.EnvVars("CLICKTASK_CONFIG"),
				Value:       "config.yaml",
				Destination: &f.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("CLICKTASK_LOG_LEVEL"),
				Destination: &f.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write logs to this file instead of stdout",
				Sources:     cli.EnvVars("CLICKTASK_LOG_FILE"),
				Destination: &f.LogFile,
			},
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Sources:     cli.EnvVars("CLICKTASK_ADDR"),
				Destination: &f.Addr,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			cfg, err = config.Load(f.ConfigPath)
			if err != nil {
				return ctx, err
			}
			if f.LogLevel != "" {
				cfg.LogLevel = f.LogLevel
			}
			if f.LogFile != "" {
				cfg.LogFile = f.LogFile
			}
			if f.Addr != "" {
				cfg.Addr = f.Addr
			}
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid config: %w", err)
			}

			logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return ctx, err
			}
			log.Logger = logger
			logCloser = closer

			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var err error
			store, err = openStore(ctx, cfg)
			if err != nil {
				return err
			}

			if _, err := auth.EnsureUser(ctx, store, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
				return fmt.Errorf("seed admin user: %w", err)
			}

			var settingsStorage extension.SettingsStorage = &extension.MemoryStorage{}
			if cfg.Extension.SettingsFile != "" {
				settingsStorage = extension.FileStorage{Path: cfg.Extension.SettingsFile}
			}
			bg, err := extension.NewBackground(settingsStorage)
			if err != nil {
				return fmt.Errorf("init extension background: %w", err)
			}

			log.Info().
				Str("addr", cfg.Addr).
				Str("storage", cfg.Storage).
				Bool("auth_required", cfg.Auth.Required).
				Str("version", version).
				Msg("starting api")

			srv := server.New(server.Deps{
				Config:     cfg,
				Store:      store,
				Background: bg,
			})
			return srv.ListenAndServe(ctx, cfg.Addr)
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if store != nil {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close store")
				}
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage != config.StoragePostgres {
		return storage.NewMemory(), nil
	}

	sqlDB, err := db.Connect(ctx, cfg.ConnString(), db.Options{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	pg := storage.NewPostgres(sqlDB)
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}
