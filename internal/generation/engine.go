package generation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/credentials"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

const component = "generation"

// Provider issues one text completion authenticated with apiKey.
type Provider interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// CredentialSource hands out provider keys.
type CredentialSource interface {
	Acquire(ctx context.Context) (credentials.Lease, error)
}

// Engine turns pipeline requests into provider calls. Every call acquires a
// fresh credential; nothing is persisted here.
type Engine struct {
	provider Provider
	keys     CredentialSource
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(provider Provider, keys CredentialSource, logger *slog.Logger) *Engine {
	return &Engine{
		provider: provider,
		keys:     keys,
		logger:   logging.NewComponentLogger(logger, component),
	}
}

// GenerateScript writes a narration script for the topic.
func (e *Engine) GenerateScript(ctx context.Context, genre, topic string, durationMinutes int) (string, error) {
	text, err := e.call(ctx, "script", scriptPrompt(genre, topic, durationMinutes))
	if err != nil {
		return "", err
	}
	script := strings.TrimSpace(text)
	if script == "" {
		return "", services.Wrap(services.ErrUpstreamGeneration, component, "script", "provider returned an empty script", nil)
	}
	return script, nil
}

// GenerateTitles proposes up to five titles, one per non-blank response line.
func (e *Engine) GenerateTitles(ctx context.Context, script, genre string) ([]string, error) {
	text, err := e.call(ctx, "titles", titlesPrompt(script, genre))
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, maxTitles)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		titles = append(titles, strings.TrimSpace(line))
		if len(titles) == maxTitles {
			break
		}
	}
	return titles, nil
}

// GenerateDescription writes the video description.
func (e *Engine) GenerateDescription(ctx context.Context, script, title, genre string) (string, error) {
	text, err := e.call(ctx, "description", descriptionPrompt(script, title, genre))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateTags proposes up to fifteen comma separated tags. Duplicates are kept.
func (e *Engine) GenerateTags(ctx context.Context, script, title, genre string) ([]string, error) {
	text, err := e.call(ctx, "tags", tagsPrompt(script, title, genre))
	if err != nil {
		return nil, err
	}
	tags := make([]string, 0, maxTags)
	for _, part := range strings.Split(text, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags, nil
}

// GenerateSceneBreakdown splits a script into scenes. A response that cannot
// be parsed yields an empty list rather than an error.
func (e *Engine) GenerateSceneBreakdown(ctx context.Context, script string) ([]SceneDraft, error) {
	text, err := e.call(ctx, "scene_breakdown", sceneBreakdownPrompt(script))
	if err != nil {
		return nil, err
	}
	drafts := ParseSceneBreakdown(text)
	if len(drafts) == 0 {
		logging.WarnWithContext(
			logging.WithContext(ctx, e.logger),
			"scene breakdown response had no usable scenes",
			"scene_breakdown_empty",
			logging.Int("response_chars", len(text)),
			logging.String(logging.FieldErrorHint, "re-run the scenes stage"),
			logging.String(logging.FieldImpact, "project has no scenes"),
		)
	}
	return drafts, nil
}

// GenerateImagePrompt turns scene narration into an image prompt.
func (e *Engine) GenerateImagePrompt(ctx context.Context, sceneText string) (string, error) {
	text, err := e.call(ctx, "image_prompt", imagePrompt(sceneText))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *Engine) call(ctx context.Context, operation, prompt string) (string, error) {
	logger := logging.WithContext(ctx, e.logger)
	lease, err := e.keys.Acquire(ctx)
	if err != nil {
		return "", err
	}
	started := time.Now()
	text, err := e.provider.Complete(ctx, lease.Secret, prompt)
	if err != nil {
		logger.Debug("provider call failed",
			logging.String("operation", operation),
			logging.String(logging.FieldCredential, lease.Name),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return "", services.Wrap(services.ErrUpstreamGeneration, component, operation, "provider call failed", err)
	}
	logger.Debug("provider call complete",
		logging.String("operation", operation),
		logging.String(logging.FieldCredential, lease.Name),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("response_chars", len(text)),
	)
	return text, nil
}
