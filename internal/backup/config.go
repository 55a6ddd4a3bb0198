package backup

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"
)

// Defaults for Config.
const (
	DefaultRetention = 7
	DefaultInterval  = 24 * time.Hour
)

// ErrInvalidConfig wraps Config validation failures.
var ErrInvalidConfig = errors.New("invalid backup config")

// Config holds the retention and scheduling parameters of a Manager.
type Config struct {
	// Retention is the number of most recent backups kept by pruning.
	Retention int `mapstructure:"retention" yaml:"retention"`
	// Interval is the time between scheduled backups.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// DefaultConfig returns a Config keeping seven daily backups.
func DefaultConfig() Config {
	return Config{Retention: DefaultRetention, Interval: DefaultInterval}
}

// Validate checks that retention and interval are positive.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Retention,
			validation.Required.Error("retention is required"),
			validation.Min(1).Error("retention must be at least 1"),
		),
		validation.Field(&c.Interval,
			validation.Required.Error("interval is required"),
			validation.Min(time.Second).Error("interval must be at least one second"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
