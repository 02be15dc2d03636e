package store

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver                string        `split_words:"true" default:"postgres"`
	DSN                   string        `envconfig:"DSN" required:"true"`
	MaxOpenConns          int           `split_words:"true" default:"10"`
	AnnualEntitlementDays int           `split_words:"true" default:"20"`
	LegacyFallback        bool          `split_words:"true" default:"true"`
	HealthTimeout         time.Duration `split_words:"true" default:"2s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: LEAVE_DB_DSN is required", contractx.ErrValidation)
	}
	if c.AnnualEntitlementDays <= 0 {
		return fmt.Errorf("%w: annual entitlement must be positive, got %d", contractx.ErrValidation, c.AnnualEntitlementDays)
	}
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported LEAVE_DB_DRIVER %q", contractx.ErrValidation, c.Driver)
	}
	return nil
}

// Opener returns the pool constructor for the configured driver.
func (c Config) Opener() (PoolOpener, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Driver == DriverSQLite {
		return OpenSQLite(c.DSN), nil
	}
	return OpenPostgres(c.DSN, c.MaxOpenConns), nil
}
