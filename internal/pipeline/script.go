package pipeline

import (
	"context"
	"strings"

	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// ScriptRequest starts or regenerates a project script. An empty ProjectID
// creates a new project.
type ScriptRequest struct {
	ProjectID       string
	Genre           string
	Topic           string
	DurationMinutes int
}

// AdvanceScript generates a script and stores it on a new or existing
// project. The project stays draft until scenes exist.
func (o *Orchestrator) AdvanceScript(ctx context.Context, req ScriptRequest) (*store.Project, error) {
	var project *store.Project
	err := o.runStage(ctx, StageScript, req.ProjectID, func(ctx context.Context) error {
		genre := generation.NormalizeGenre(req.Genre)
		topic := strings.TrimSpace(req.Topic)
		if genre == "" || topic == "" {
			return services.Wrap(services.ErrPrecondition, string(StageScript), "validate request", "genre and topic are required", nil)
		}
		duration := req.DurationMinutes
		if duration <= 0 {
			duration = o.defaultDuration
		}

		var existing *store.Project
		if req.ProjectID != "" {
			loaded, err := o.loadProject(ctx, string(StageScript), req.ProjectID)
			if err != nil {
				return err
			}
			existing = loaded
		}

		script, err := o.generator.GenerateScript(ctx, genre, topic, duration)
		if err != nil {
			return err
		}
		title := truncateRunes(topic, maxTitleRunes)

		if existing == nil {
			created, err := o.store.CreateProject(ctx, store.NewProject{
				Genre:           genre,
				Title:           title,
				Topic:           topic,
				Script:          script,
				DurationMinutes: duration,
				Status:          store.ProjectDraft,
			})
			if err != nil {
				return err
			}
			project = created
		} else {
			updated, err := o.store.UpdateProject(ctx, existing.ID, store.ProjectUpdate{
				Genre:           &genre,
				Title:           &title,
				Topic:           &topic,
				Script:          &script,
				DurationMinutes: &duration,
			})
			if err != nil {
				return err
			}
			if updated == nil {
				return services.Wrap(services.ErrNotFound, string(StageScript), "update project", "project "+existing.ID+" not found", nil)
			}
			project = updated
			if _, _, err := o.refreshStatus(ctx, project); err != nil {
				return err
			}
		}

		logging.WithContext(services.WithProjectID(ctx, project.ID), o.logger).Info("script stored",
			logging.String("genre", genre),
			logging.Int("duration_minutes", duration),
			logging.Int("script_runes", len([]rune(script))),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
