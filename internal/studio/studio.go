package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/credentials"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/store"
)

// ErrLocked is returned when another process holds the instance lock.
var ErrLocked = errors.New("another reelsmith instance is already running")

// Option customizes Open.
type Option func(*options)

type options struct {
	provider generation.Provider
	notifier notifications.Service
}

// WithProvider replaces the OpenRouter client used for generation.
func WithProvider(provider generation.Provider) Option {
	return func(o *options) { o.provider = provider }
}

// WithNotifier replaces the notifier derived from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *options) { o.notifier = notifier }
}

// Studio wires the store, credential pool, generation engine, and pipeline
// for one process. The credential pool meters usage in memory, so only one
// Studio may run per data directory; the instance lock enforces that.
type Studio struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	provider generation.Provider

	Store    *store.Store
	Pool     *credentials.Pool
	Engine   *generation.Engine
	Pipeline *pipeline.Orchestrator
	Notifier notifications.Service
}

// Open acquires the instance lock and builds every component. Keys listed in
// the configuration are seeded into the pool.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Studio, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "studio", "open", "config is required", nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.NewComponentLogger(logger, "studio")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	s := &Studio{cfg: cfg, logger: logger, lock: lock}
	if err := s.build(ctx, o); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("studio ready",
		logging.String("lock", cfg.LockPath()),
		logging.String("model", cfg.LLM.Model),
		logging.Int("configured_keys", len(cfg.Credentials)),
	)
	return s, nil
}

func (s *Studio) build(ctx context.Context, o options) error {
	st, err := store.Open(ctx)
	if err != nil {
		return err
	}
	s.Store = st
	s.Pool = credentials.NewPool(st, s.logger)

	seeds := make([]credentials.SeedKey, 0, len(s.cfg.Credentials))
	for _, cred := range s.cfg.Credentials {
		seeds = append(seeds, credentials.SeedKey{Name: cred.Name, Secret: cred.Secret, Active: cred.IsActive()})
	}
	if _, err := s.Pool.Seed(ctx, seeds); err != nil {
		return err
	}

	s.provider = o.provider
	if s.provider == nil {
		s.provider = llm.NewClient(llm.Config{
			BaseURL:        s.cfg.LLM.BaseURL,
			Model:          s.cfg.LLM.Model,
			Referer:        s.cfg.LLM.Referer,
			Title:          s.cfg.LLM.Title,
			TimeoutSeconds: s.cfg.LLM.TimeoutSeconds,
			Temperature:    s.cfg.LLM.Temperature,
		}, llm.WithRetryMaxAttempts(s.cfg.LLM.RetryAttempts))
	}
	s.Notifier = o.notifier
	if s.Notifier == nil {
		s.Notifier = notifications.NewService(s.cfg)
	}

	s.Engine = generation.NewEngine(s.provider, s.Pool, s.logger)
	orch, err := pipeline.New(pipeline.Options{
		Store:     st,
		Generator: s.Engine,
		Voice: assets.PlaceholderVoice{
			BaseURL:        s.cfg.Pipeline.VoiceBaseURL,
			WordsPerMinute: s.cfg.Pipeline.WordsPerMinute,
		},
		Images:                 assets.PlaceholderImage{BaseURL: s.cfg.Pipeline.ImageBaseURL},
		Notifier:               s.Notifier,
		Logger:                 s.logger,
		DefaultDurationMinutes: s.cfg.Pipeline.DefaultDurationMinutes,
		SceneConcurrency:       s.cfg.Pipeline.SceneConcurrency,
	})
	if err != nil {
		return err
	}
	s.Pipeline = orch
	return nil
}

// Close releases the store and the instance lock.
func (s *Studio) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, err)
		}
		s.Store = nil
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release instance lock", logging.Error(err))
			errs = append(errs, err)
		}
		s.lock = nil
	}
	return errors.Join(errs...)
}

// KeyHealth reports the result of checking one credential key.
type KeyHealth struct {
	Name    string
	Active  bool
	Checked bool
	Elapsed time.Duration
	Err     error
}

type healthChecker interface {
	HealthCheck(ctx context.Context, apiKey string) error
}

// CheckKeys sends a minimal request with every active key. Checks go around
// the pool, so usage counters are not changed.
func (s *Studio) CheckKeys(ctx context.Context) ([]KeyHealth, error) {
	checker, ok := s.provider.(healthChecker)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "health check", "provider does not support health checks", nil)
	}
	keys, err := s.Pool.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]KeyHealth, 0, len(keys))
	for _, key := range keys {
		health := KeyHealth{Name: key.Name, Active: key.IsActive}
		if key.IsActive {
			started := time.Now()
			health.Err = checker.HealthCheck(ctx, key.Secret)
			health.Elapsed = time.Since(started)
			health.Checked = true
			if health.Err != nil {
				s.logger.Warn("credential health check failed",
					logging.String(logging.FieldCredential, key.Name),
					logging.Int("status_code", llm.StatusCode(health.Err)),
					logging.Error(health.Err),
				)
			}
		}
		results = append(results, health)
	}
	return results, nil
}
