package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// SceneOutcome reports what an asset stage did for one scene.
type SceneOutcome struct {
	SceneID string
	Order   int
	Skipped bool
	URL     string
	Err     error
}

// AssetResult aggregates per-scene outcomes of the voice or image stage.
// Outcomes are sorted by scene order.
type AssetResult struct {
	ProjectID string
	Outcomes  []SceneOutcome
	Status    store.ProjectStatus
}

// Filled counts scenes that received a new asset.
func (r AssetResult) Filled() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if !outcome.Skipped && outcome.Err == nil {
			n++
		}
	}
	return n
}

// Skipped counts scenes that already had the asset.
func (r AssetResult) Skipped() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Skipped {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in an error.
func (r AssetResult) Failed() []SceneOutcome {
	var failed []SceneOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// Complete reports whether every scene now has the asset.
func (r AssetResult) Complete() bool {
	return len(r.Failed()) == 0
}

// AdvanceVoice synthesizes narration for every scene that has none. Scenes
// that already have a voice URL are skipped, and a failing scene does not
// stop the others.
func (o *Orchestrator) AdvanceVoice(ctx context.Context, projectID string) (AssetResult, error) {
	return o.advanceAssets(ctx, StageVoice, projectID, (*store.Scene).HasVoice, o.fillVoice)
}

// AdvanceImages generates an image prompt and renders an image for every
// scene that has no image yet, with the same skip and isolation rules as
// AdvanceVoice.
func (o *Orchestrator) AdvanceImages(ctx context.Context, projectID string) (AssetResult, error) {
	return o.advanceAssets(ctx, StageImages, projectID, (*store.Scene).HasImage, o.fillImage)
}

type sceneFiller func(ctx context.Context, scene *store.Scene) (string, bool, error)

func (o *Orchestrator) advanceAssets(ctx context.Context, stage Stage, projectID string, populated func(*store.Scene) bool, fill sceneFiller) (AssetResult, error) {
	result := AssetResult{ProjectID: projectID}
	err := o.runStage(ctx, stage, projectID, func(ctx context.Context) error {
		project, err := o.loadProject(ctx, string(stage), projectID)
		if err != nil {
			return err
		}
		scenes, err := o.store.ProjectScenes(ctx, projectID)
		if err != nil {
			return err
		}
		if len(scenes) == 0 {
			return services.Wrap(services.ErrPrecondition, string(stage), "load scenes", "project has no scenes", nil)
		}

		// Each goroutine owns one slot, so no lock is needed.
		outcomes := make([]SceneOutcome, len(scenes))
		group := new(errgroup.Group)
		group.SetLimit(o.sceneConcurrency)
		for i, scene := range scenes {
			outcome := SceneOutcome{SceneID: scene.ID, Order: scene.Order}
			if populated(scene) {
				outcome.Skipped = true
				outcomes[i] = outcome
				continue
			}
			i, scene := i, scene
			group.Go(func() error {
				url, written, err := o.fillScene(ctx, scene, fill)
				outcome.Err = err
				if err == nil {
					if written {
						outcome.URL = url
					} else {
						outcome.Skipped = true
					}
				}
				outcomes[i] = outcome
				return nil
			})
		}
		_ = group.Wait()
		result.Outcomes = outcomes

		logger := logging.WithContext(ctx, o.logger)
		if _, status, err := o.refreshStatus(ctx, project); err != nil {
			logger.Warn("status refresh failed", logging.Error(err))
		} else {
			result.Status = status
		}

		if failed := result.Failed(); len(failed) > 0 {
			if exhausted(failed) {
				o.notifyFailure(ctx, stage, projectID, services.Details(services.ErrNoCredentialAvailable))
			}
			logging.WarnWithContext(logger, "some scenes failed", string(stage)+"_partial",
				logging.Int("failed", len(failed)),
				logging.Int("filled", result.Filled()),
				logging.Int("skipped", result.Skipped()),
				logging.String(logging.FieldErrorHint, "run the "+string(stage)+" stage again to retry failed scenes"),
				logging.String(logging.FieldImpact, "project stays in processing"),
			)
			return nil
		}
		logger.Info("scenes processed",
			logging.Int("filled", result.Filled()),
			logging.Int("skipped", result.Skipped()),
		)
		return nil
	})
	if err != nil {
		return AssetResult{}, err
	}
	return result, nil
}

func exhausted(outcomes []SceneOutcome) bool {
	for _, outcome := range outcomes {
		if errors.Is(outcome.Err, services.ErrNoCredentialAvailable) {
			return true
		}
	}
	return false
}

// fillScene isolates one scene's work and logs its failure.
func (o *Orchestrator) fillScene(ctx context.Context, scene *store.Scene, fill sceneFiller) (url string, written bool, err error) {
	sceneLogger := logging.WithContext(ctx, o.logger).With(logging.Int(logging.FieldSceneOrder, scene.Order))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scene %d: panic: %v", scene.Order, r)
		}
		if err != nil {
			details := services.Details(err)
			sceneLogger.Warn("scene failed",
				logging.String(logging.FieldEventType, "scene_failure"),
				logging.String(logging.FieldErrorKind, string(details.Kind)),
				logging.String(logging.FieldErrorHint, details.Hint),
				logging.Error(err),
			)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	url, written, err = fill(ctx, scene)
	if err != nil {
		return "", false, err
	}
	sceneLogger.Debug("scene filled", logging.Bool("written", written))
	return url, written, nil
}

func (o *Orchestrator) fillVoice(ctx context.Context, scene *store.Scene) (string, bool, error) {
	url, duration, err := o.voice.Synthesize(ctx, scene)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(url) == "" {
		return "", false, fmt.Errorf("scene %d: voice synthesizer returned no url", scene.Order)
	}
	written, err := o.store.SetSceneVoice(ctx, scene.ID, url, duration)
	if err != nil {
		return "", false, err
	}
	return url, written, nil
}

func (o *Orchestrator) fillImage(ctx context.Context, scene *store.Scene) (string, bool, error) {
	prompt, err := o.generator.GenerateImagePrompt(ctx, scene.Text)
	if err != nil {
		return "", false, err
	}
	if prompt = strings.TrimSpace(prompt); prompt == "" {
		prompt = scene.ImagePrompt
	}
	url, err := o.images.Render(ctx, scene, prompt)
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(url) == "" {
		return "", false, fmt.Errorf("scene %d: image renderer returned no url", scene.Order)
	}
	written, err := o.store.SetSceneImage(ctx, scene.ID, prompt, url)
	if err != nil {
		return "", false, err
	}
	return url, written, nil
}
