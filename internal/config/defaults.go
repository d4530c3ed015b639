package config

const (
	defaultConfigPath             = "~/.config/reelsmith/config.toml"
	defaultDataDir                = "~/.local/share/reelsmith"
	defaultLogDir                 = "~/.local/share/reelsmith/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMReferer             = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle               = "reelsmith"
	defaultLLMTimeoutSeconds      = 120
	defaultLLMRetryAttempts       = 3
	defaultLLMTemperature         = 0.7
	defaultDurationMinutes        = 5
	defaultSceneConcurrency       = 3
	defaultWordsPerMinute         = 150
	defaultImageBaseURL           = "https://via.placeholder.com/1280x720/1a1a2e/ffffff"
	defaultVoiceBaseURL           = "https://voice.invalid/reelsmith"
	defaultNotifyRequestTimeout   = 10
	maxSceneConcurrency           = 16
	maxDurationMinutes            = 60
	credentialsEnvVar             = "REELSMITH_LLM_API_KEYS"
	ntfyTopicEnvVar               = "REELSMITH_NTFY_TOPIC"
	envCredentialNamePrefix       = "env-"
	defaultNotifyStageFailures    = true
	defaultNotifyPoolExhausted    = true
	defaultNotifyProjectCompleted = true
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
			Temperature:    defaultLLMTemperature,
		},
		Pipeline: Pipeline{
			DefaultDurationMinutes: defaultDurationMinutes,
			SceneConcurrency:       defaultSceneConcurrency,
			WordsPerMinute:         defaultWordsPerMinute,
			ImageBaseURL:           defaultImageBaseURL,
			VoiceBaseURL:           defaultVoiceBaseURL,
		},
		Notifications: Notifications{
			RequestTimeout:   defaultNotifyRequestTimeout,
			StageFailures:    defaultNotifyStageFailures,
			PoolExhausted:    defaultNotifyPoolExhausted,
			ProjectCompleted: defaultNotifyProjectCompleted,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
