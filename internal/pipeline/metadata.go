package pipeline

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// MetadataResult holds generated metadata candidates. Nothing is persisted
// until ApplyMetadata is called with the chosen values.
type MetadataResult struct {
	Titles      []string
	Description string
	Tags        []string
}

// MetadataSelection is the caller's choice of metadata. Nil fields are left
// unchanged.
type MetadataSelection struct {
	VideoTitle  *string
	Description *string
	Tags        *[]string
}

// AdvanceMetadata generates titles, a description, and tags concurrently
// from the project script. The stage fails as a whole when any call fails.
func (o *Orchestrator) AdvanceMetadata(ctx context.Context, projectID string) (MetadataResult, error) {
	var result MetadataResult
	err := o.runStage(ctx, StageMetadata, projectID, func(ctx context.Context) error {
		project, err := o.loadProject(ctx, string(StageMetadata), projectID)
		if err != nil {
			return err
		}
		if !project.HasScript() {
			return services.Wrap(services.ErrPrecondition, string(StageMetadata), "check script", "project has no script", nil)
		}
		title := displayTitle(project)

		var (
			titles      []string
			description string
			tags        []string
		)
		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			out, err := o.generator.GenerateTitles(groupCtx, project.Script, project.Genre)
			titles = out
			return err
		})
		group.Go(func() error {
			out, err := o.generator.GenerateDescription(groupCtx, project.Script, title, project.Genre)
			description = out
			return err
		})
		group.Go(func() error {
			out, err := o.generator.GenerateTags(groupCtx, project.Script, title, project.Genre)
			tags = out
			return err
		})
		if err := group.Wait(); err != nil {
			return err
		}

		result = MetadataResult{Titles: titles, Description: description, Tags: tags}
		logging.WithContext(ctx, o.logger).Info("metadata generated",
			logging.Int("titles", len(titles)),
			logging.Int("tags", len(tags)),
			logging.Int("description_runes", len([]rune(description))),
		)
		return nil
	})
	if err != nil {
		return MetadataResult{}, err
	}
	return result, nil
}

// ApplyMetadata persists the chosen title, description, and tags.
func (o *Orchestrator) ApplyMetadata(ctx context.Context, projectID string, selection MetadataSelection) (*store.Project, error) {
	if _, err := o.loadProject(ctx, string(StageMetadata), projectID); err != nil {
		return nil, err
	}
	update := store.ProjectUpdate{}
	if selection.VideoTitle != nil {
		title := strings.TrimSpace(*selection.VideoTitle)
		update.VideoTitle = &title
	}
	if selection.Description != nil {
		description := strings.TrimSpace(*selection.Description)
		update.Description = &description
	}
	if selection.Tags != nil {
		tags := cleanTags(*selection.Tags)
		update.Tags = &tags
	}
	project, err := o.store.UpdateProject(ctx, projectID, update)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, string(StageMetadata), "apply metadata", "project "+projectID+" not found", nil)
	}
	return project, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
