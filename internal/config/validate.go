package config

import (
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
)

// Validate checks the structural fields and returns criterio.FieldErrors
// naming every invalid key.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(c.Addr) == "" {
		errs = errs.Append("addr", fmt.Errorf("is required"))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		errs = errs.Append("log_level", fmt.Errorf("invalid level %q", c.LogLevel))
	}

	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DB.Host == "" {
			errs = errs.Append("db.host", fmt.Errorf("is required for postgres storage"))
		}
		if c.DB.Name == "" {
			errs = errs.Append("db.name", fmt.Errorf("is required for postgres storage"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = errs.Append("db.port", fmt.Errorf("must be between 1 and 65535"))
		}
	default:
		errs = errs.Append("storage", fmt.Errorf("unknown driver %q (want memory or postgres)", c.Storage))
	}

	if c.Auth.JWTSecret == "" {
		errs = errs.Append("auth.jwt_secret", fmt.Errorf("is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = errs.Append("auth.token_ttl", fmt.Errorf("must be positive"))
	}
	if c.Auth.AdminUsername != "" && c.Auth.AdminPassword == "" {
		errs = errs.Append("auth.admin_password", fmt.Errorf("is required when admin_username is set"))
	}

	if c.Tasks.RetryDelay < 0 {
		errs = errs.Append("tasks.retry_delay", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}
