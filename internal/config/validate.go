package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RetryAttempts <= 0 {
		return errors.New("llm.retry_attempts must be at least 1")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateCredentials() error {
	seen := make(map[string]struct{}, len(c.Credentials))
	for i, cred := range c.Credentials {
		if cred.Name == "" {
			return fmt.Errorf("credentials[%d].name must be set", i)
		}
		if cred.Secret == "" {
			return fmt.Errorf("credentials[%d].secret must be set (credential %q)", i, cred.Name)
		}
		if _, dup := seen[cred.Name]; dup {
			return fmt.Errorf("credentials[%d].name %q is duplicated", i, cred.Name)
		}
		seen[cred.Name] = struct{}{}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DefaultDurationMinutes <= 0 || c.Pipeline.DefaultDurationMinutes > maxDurationMinutes {
		return fmt.Errorf("pipeline.default_duration_minutes must be between 1 and %d", maxDurationMinutes)
	}
	if c.Pipeline.SceneConcurrency <= 0 || c.Pipeline.SceneConcurrency > maxSceneConcurrency {
		return fmt.Errorf("pipeline.scene_concurrency must be between 1 and %d", maxSceneConcurrency)
	}
	if c.Pipeline.WordsPerMinute <= 0 {
		return errors.New("pipeline.words_per_minute must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
