package studio

import (
	"context"

	"reelsmith/internal/logging"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/services"
)

const sceneAttempts = 2

// ProduceRequest describes a new production.
type ProduceRequest struct {
	Genre           string
	Topic           string
	DurationMinutes int
}

// Production summarizes a full pipeline run.
type Production struct {
	View     pipeline.ProjectView
	Metadata pipeline.MetadataResult
	// ScenesNeedRetry is set when every breakdown attempt came back empty;
	// the asset stages are skipped in that case.
	ScenesNeedRetry bool
	Voice           pipeline.AssetResult
	Images          pipeline.AssetResult
}

// Produce runs every stage for a new project. The first proposed title and
// the generated description and tags are applied as the project metadata.
// Asset stages report per-scene failures in the result rather than as errors.
func (s *Studio) Produce(ctx context.Context, req ProduceRequest) (*Production, error) {
	project, err := s.Pipeline.AdvanceScript(ctx, pipeline.ScriptRequest{
		Genre:           req.Genre,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(services.WithProjectID(ctx, project.ID), s.logger)
	out := &Production{}

	metadata, err := s.Pipeline.AdvanceMetadata(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	out.Metadata = metadata
	selection := pipeline.MetadataSelection{
		Description: &metadata.Description,
		Tags:        &metadata.Tags,
	}
	if len(metadata.Titles) > 0 {
		selection.VideoTitle = &metadata.Titles[0]
	}
	if _, err := s.Pipeline.ApplyMetadata(ctx, project.ID, selection); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= sceneAttempts; attempt++ {
		scenes, err := s.Pipeline.AdvanceScenes(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		out.ScenesNeedRetry = scenes.NeedsRetry
		if !scenes.NeedsRetry {
			break
		}
		logger.Info("scene breakdown empty, retrying", logging.Int("attempt", attempt))
	}

	if !out.ScenesNeedRetry {
		if out.Voice, err = s.Pipeline.AdvanceVoice(ctx, project.ID); err != nil {
			return nil, err
		}
		if out.Images, err = s.Pipeline.AdvanceImages(ctx, project.ID); err != nil {
			return nil, err
		}
	}

	view, err := s.Pipeline.Project(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	out.View = view
	return out, nil
}
