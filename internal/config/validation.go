package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateCheckout(); err != nil {
		return err
	}
	if err := cv.validateDaemon(); err != nil {
		return err
	}
	if err := cv.validateNATS(); err != nil {
		return err
	}
	if err := cv.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateCheckout() error {
	co := cv.config.Checkout
	if co.ShallowDepth < 0 {
		return errors.New("checkout shallow_depth cannot be negative")
	}
	if co.Retry.Backoff != "" && NormalizeRetryBackoff(co.Retry.Backoff) == "" {
		return fmt.Errorf("unknown checkout retry backoff mode: %s", co.Retry.Backoff)
	}
	for _, field := range []struct{ name, raw string }{
		{"initial", co.Retry.Initial},
		{"max", co.Retry.Max},
	} {
		if field.raw == "" {
			continue
		}
		if _, err := time.ParseDuration(field.raw); err != nil {
			return fmt.Errorf("checkout retry %s: %w", field.name, err)
		}
	}
	if co.Auth != nil {
		switch co.Auth.Type {
		case "ssh", "token", "basic":
		default:
			return fmt.Errorf("unknown auth type: %s", co.Auth.Type)
		}
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	d := cv.config.Daemon
	seen := make(map[string]bool)
	for _, s := range d.Schedules {
		if s.Workflow == "" {
			return errors.New("schedule workflow cannot be empty")
		}
		if seen[s.Workflow] {
			return fmt.Errorf("duplicate schedule for workflow %s", s.Workflow)
		}
		seen[s.Workflow] = true
		interval, err := time.ParseDuration(s.Every)
		if err != nil {
			return fmt.Errorf("schedule %s interval: %w", s.Workflow, err)
		}
		if interval < time.Minute {
			return fmt.Errorf("schedule %s interval must be at least 1m", s.Workflow)
		}
	}
	return nil
}

func (cv *configurationValidator) validateNATS() error {
	n := cv.config.NATS
	if n.Enabled && n.URL == "" {
		return errors.New("nats enabled but url not set")
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	switch cv.config.Logging.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level: %s", cv.config.Logging.Level)
	}
}
