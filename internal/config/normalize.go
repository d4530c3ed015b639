package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeCredentials()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
}

// normalizeCredentials trims configured keys and appends keys from
// REELSMITH_LLM_API_KEYS. Entries are comma separated, either "name=secret"
// or a bare secret which gets a generated env-N name.
func (c *Config) normalizeCredentials() {
	for i := range c.Credentials {
		c.Credentials[i].Name = strings.TrimSpace(c.Credentials[i].Name)
		c.Credentials[i].Secret = strings.TrimSpace(c.Credentials[i].Secret)
	}

	raw, ok := os.LookupEnv(credentialsEnvVar)
	if !ok {
		return
	}
	seen := make(map[string]struct{}, len(c.Credentials))
	for _, cred := range c.Credentials {
		seen[cred.Name] = struct{}{}
	}
	index := 0
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		index++
		name := envCredentialNamePrefix + strconv.Itoa(index)
		secret := entry
		if key, value, found := strings.Cut(entry, "="); found {
			name = strings.TrimSpace(key)
			secret = strings.TrimSpace(value)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c.Credentials = append(c.Credentials, Credential{Name: name, Secret: secret})
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.Pipeline.ImageBaseURL), "/")
	if c.Pipeline.ImageBaseURL == "" {
		c.Pipeline.ImageBaseURL = defaultImageBaseURL
	}
	c.Pipeline.VoiceBaseURL = strings.TrimRight(strings.TrimSpace(c.Pipeline.VoiceBaseURL), "/")
	if c.Pipeline.VoiceBaseURL == "" {
		c.Pipeline.VoiceBaseURL = defaultVoiceBaseURL
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnvVar); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
