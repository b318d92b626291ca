package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // config key, e.g. "logging.level"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func ValidLogFormats() []string {
	return []string{"auto", "text", "json"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateLock()...)
	errs = append(errs, c.validateAudit()...)
	return errs
}

func (c *Config) validateDatabase() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, ValidationError{"database.path", c.Database.Path, "must not be empty"})
	}
	if c.Database.BusyTimeoutMs < 0 {
		errs = append(errs, ValidationError{"database.busy_timeout_ms", c.Database.BusyTimeoutMs, "must be non-negative"})
	}
	return errs
}

func (c *Config) validateServer() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, ValidationError{"server.addr", c.Server.Addr, "must not be empty"})
	}
	if c.Server.MetricsAddr != "" && c.Server.MetricsAddr == c.Server.Addr {
		errs = append(errs, ValidationError{"server.metrics_addr", c.Server.MetricsAddr, "must differ from server.addr"})
	}
	if h := c.Server.IdentityHeader; h == "" || strings.ContainsAny(h, " :\t\r\n") {
		errs = append(errs, ValidationError{"server.identity_header", c.Server.IdentityHeader, "must be a valid header name"})
	}
	return errs
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level,
			fmt.Sprintf("must be one of %v", ValidLogLevels())})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{"logging.format", c.Logging.Format,
			fmt.Sprintf("must be one of %v", ValidLogFormats())})
	}
	return errs
}

func (c *Config) validateLock() []ValidationError {
	var errs []ValidationError
	if c.Lock.LeaseTTLSeconds < 0 {
		errs = append(errs, ValidationError{"lock.lease_ttl_seconds", c.Lock.LeaseTTLSeconds, "must be non-negative (0 disables expiry)"})
	}
	if c.Lock.LeaseTTLSeconds > 0 && c.Lock.SweepIntervalSeconds <= 0 {
		errs = append(errs, ValidationError{"lock.sweep_interval_seconds", c.Lock.SweepIntervalSeconds, "must be positive when a lease TTL is set"})
	}
	return errs
}

func (c *Config) validateAudit() []ValidationError {
	if _, err := domain.ParseResetMode(c.Audit.ResetMode); err != nil {
		return []ValidationError{{"audit.reset_mode", c.Audit.ResetMode, "must be purge or archive"}}
	}
	return nil
}
