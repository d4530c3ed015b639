package pipeline

import (
	"context"

	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// ScenesResult is the outcome of a scene breakdown. NeedsRetry is set when
// the provider returned no usable scenes and the project was left empty.
type ScenesResult struct {
	Scenes     []*store.Scene
	NeedsRetry bool
	Status     store.ProjectStatus
}

// AdvanceScenes replaces the project's scene set with a fresh breakdown of
// its script. Existing scenes are deleted before generation, so a failed or
// empty breakdown leaves the project without scenes.
func (o *Orchestrator) AdvanceScenes(ctx context.Context, projectID string) (ScenesResult, error) {
	var result ScenesResult
	err := o.runStage(ctx, StageScenes, projectID, func(ctx context.Context) error {
		project, err := o.loadProject(ctx, string(StageScenes), projectID)
		if err != nil {
			return err
		}
		if !project.HasScript() {
			return services.Wrap(services.ErrPrecondition, string(StageScenes), "check script", "project has no script", nil)
		}
		logger := logging.WithContext(ctx, o.logger)

		removed, err := o.store.DeleteScenes(ctx, store.SceneFilter{ProjectID: projectID})
		if err != nil {
			return err
		}
		if removed > 0 {
			logger.Info("existing scenes removed", logging.Int64("removed", removed))
		}

		drafts, genErr := o.generator.GenerateSceneBreakdown(ctx, project.Script)
		if genErr != nil {
			if _, _, err := o.refreshStatus(ctx, project); err != nil {
				logger.Warn("status refresh failed", logging.Error(err))
			}
			return genErr
		}

		ordered := generation.AssignOrder(drafts)
		inputs := make([]store.NewScene, 0, len(ordered))
		for _, draft := range ordered {
			inputs = append(inputs, store.NewScene{
				Order:       draft.Order,
				Text:        draft.Text,
				ImagePrompt: draft.ImagePrompt,
			})
		}
		created, err := o.store.CreateScenes(ctx, projectID, inputs)
		if err != nil {
			return err
		}

		_, status, err := o.refreshStatus(ctx, project)
		if err != nil {
			return err
		}
		result = ScenesResult{Scenes: created, NeedsRetry: len(created) == 0, Status: status}
		if result.NeedsRetry {
			logging.WarnWithContext(logger, "scene breakdown produced no scenes", "scenes_empty",
				logging.String(logging.FieldErrorHint, "run the scenes stage again"),
				logging.String(logging.FieldImpact, "voice and image stages cannot run"),
			)
			return nil
		}
		logger.Info("scenes created", logging.Int("scenes", len(created)))
		return nil
	})
	if err != nil {
		return ScenesResult{}, err
	}
	if result.Scenes == nil {
		result.Scenes = []*store.Scene{}
	}
	return result, nil
}
