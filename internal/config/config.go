package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Storage string   `yaml:"storage"` // memory | postgres
	DB      DBConfig `yaml:"db"`

	Auth      AuthConfig      `yaml:"auth"`
	CORS      CORSConfig      `yaml:"cors"`
	Tasks     TasksConfig     `yaml:"tasks"`
	Extension ExtensionConfig `yaml:"extension"`
}

type DBConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	Required      bool          `yaml:"required"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type TasksConfig struct {
	// RetryDelay is how long a retried task stays "processing".
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type ExtensionConfig struct {
	// SettingsFile persists the extension settings served on
	// /api/extension/messages. Empty keeps them in memory.
	SettingsFile string `yaml:"settings_file"`
}

func Default() Config {
	return Config{
		Addr:     ":5000",
		LogLevel: "info",
		Storage:  StorageMemory,
		DB: DBConfig{
			Port:         5432,
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			JWTSecret:     "change-me",
			TokenTTL:      7 * 24 * time.Hour,
			AdminUsername: "admin",
			AdminPassword: "admin",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Tasks: TasksConfig{
			RetryDelay: 2 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and finally the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("ADDR", &c.Addr)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FILE", &c.LogFile)
	setString("STORAGE_DRIVER", &c.Storage)

	setString("DB_HOST", &c.DB.Host)
	setString("DB_USER", &c.DB.User)
	setString("DB_PASSWORD", &c.DB.Password)
	setString("DB_NAME", &c.DB.Name)
	setString("DB_SSLMODE", &c.DB.SSLMode)
	if v := getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		c.DB.Port = port
	}

	setString("JWT_SECRET", &c.Auth.JWTSecret)
	setString("ADMIN_USERNAME", &c.Auth.AdminUsername)
	setString("ADMIN_PASSWORD", &c.Auth.AdminPassword)
	if v := getenv("AUTH_REQUIRED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTH_REQUIRED: %w", err)
		}
		c.Auth.Required = b
	}

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}

	setString("EXTENSION_SETTINGS_FILE", &c.Extension.SettingsFile)

	if v := getenv("RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RETRY_DELAY: %w", err)
		}
		c.Tasks.RetryDelay = d
	}

	// a configured database host implies the postgres backend
	if getenv("STORAGE_DRIVER") == "" && getenv("DB_HOST") != "" {
		c.Storage = StoragePostgres
	}

	return nil
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}
