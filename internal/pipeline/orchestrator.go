package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

const (
	defaultDurationMinutes  = 5
	defaultSceneConcurrency = 3
	maxTitleRunes           = 100
)

// Generator is the slice of the generation engine the stages depend on.
type Generator interface {
	GenerateScript(ctx context.Context, genre, topic string, durationMinutes int) (string, error)
	GenerateTitles(ctx context.Context, script, genre string) ([]string, error)
	GenerateDescription(ctx context.Context, script, title, genre string) (string, error)
	GenerateTags(ctx context.Context, script, title, genre string) ([]string, error)
	GenerateSceneBreakdown(ctx context.Context, script string) ([]generation.SceneDraft, error)
	GenerateImagePrompt(ctx context.Context, sceneText string) (string, error)
}

// VoiceSynthesizer produces narration audio for a scene.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, scene *store.Scene) (url string, durationSeconds float64, err error)
}

// ImageRenderer produces an image for a scene from a prompt.
type ImageRenderer interface {
	Render(ctx context.Context, scene *store.Scene, prompt string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	Store                  *store.Store
	Generator              Generator
	Voice                  VoiceSynthesizer
	Images                 ImageRenderer
	Notifier               notifications.Service
	Logger                 *slog.Logger
	DefaultDurationMinutes int
	SceneConcurrency       int
}

// Orchestrator drives projects through the script, metadata, scenes, voice,
// and images stages. It is the only writer of projects and scenes.
type Orchestrator struct {
	store            *store.Store
	generator        Generator
	voice            VoiceSynthesizer
	images           ImageRenderer
	notifier         notifications.Service
	logger           *slog.Logger
	defaultDuration  int
	sceneConcurrency int
}

// New constructs an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if opts.Voice == nil || opts.Images == nil {
		return nil, errors.New("pipeline: voice and image collaborators are required")
	}
	o := &Orchestrator{
		store:            opts.Store,
		generator:        opts.Generator,
		voice:            opts.Voice,
		images:           opts.Images,
		notifier:         opts.Notifier,
		logger:           logging.NewComponentLogger(opts.Logger, "pipeline"),
		defaultDuration:  opts.DefaultDurationMinutes,
		sceneConcurrency: opts.SceneConcurrency,
	}
	if o.defaultDuration <= 0 {
		o.defaultDuration = defaultDurationMinutes
	}
	if o.sceneConcurrency <= 0 {
		o.sceneConcurrency = defaultSceneConcurrency
	}
	return o, nil
}

// ProjectView is a project together with its ordered scenes.
type ProjectView struct {
	Project *store.Project
	Scenes  []*store.Scene
}

// Project returns a project and its scenes in ascending order.
func (o *Orchestrator) Project(ctx context.Context, projectID string) (ProjectView, error) {
	project, err := o.loadProject(ctx, "project", projectID)
	if err != nil {
		return ProjectView{}, err
	}
	scenes, err := o.store.ProjectScenes(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return ProjectView{Project: project, Scenes: scenes}, nil
}

// RefreshStatus recomputes a project's status from its scenes: draft without
// scenes, completed when every scene has both voice and image, processing
// otherwise. It is never cached, so regenerated scenes are picked up.
func (o *Orchestrator) RefreshStatus(ctx context.Context, projectID string) (store.ProjectStatus, error) {
	project, err := o.loadProject(ctx, "status", projectID)
	if err != nil {
		return "", err
	}
	_, status, err := o.refreshStatus(ctx, project)
	return status, err
}

// refreshStatus persists the derived status and reports whether the project
// just became completed.
func (o *Orchestrator) refreshStatus(ctx context.Context, project *store.Project) (bool, store.ProjectStatus, error) {
	scenes, err := o.store.ProjectScenes(ctx, project.ID)
	if err != nil {
		return false, "", err
	}
	status := DeriveStatus(scenes)
	if status == project.Status {
		return false, status, nil
	}
	if _, err := o.store.UpdateProject(ctx, project.ID, store.ProjectUpdate{Status: &status}); err != nil {
		return false, "", err
	}
	logging.WithContext(ctx, o.logger).Info("project status changed",
		logging.String("from", string(project.Status)),
		logging.String("to", string(status)),
		logging.Int("scenes", len(scenes)),
	)
	completed := status == store.ProjectCompleted
	if completed {
		o.publish(ctx, notifications.EventProjectCompleted, notifications.Payload{
			"project": displayTitle(project),
			"scenes":  len(scenes),
		})
	}
	project.Status = status
	return completed, status, nil
}

// DeriveStatus computes the project status implied by its scenes.
func DeriveStatus(scenes []*store.Scene) store.ProjectStatus {
	if len(scenes) == 0 {
		return store.ProjectDraft
	}
	for _, scene := range scenes {
		if !scene.HasVoice() || !scene.HasImage() {
			return store.ProjectProcessing
		}
	}
	return store.ProjectCompleted
}

func (o *Orchestrator) loadProject(ctx context.Context, stage, projectID string) (*store.Project, error) {
	if projectID == "" {
		return nil, services.Wrap(services.ErrValidation, stage, "load project", "project id is required", nil)
	}
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, stage, "load project", "project "+projectID+" not found", nil)
	}
	return project, nil
}

func (o *Orchestrator) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		logging.WithContext(ctx, o.logger).Debug("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func displayTitle(project *store.Project) string {
	if project.VideoTitle != "" {
		return project.VideoTitle
	}
	return project.Title
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
