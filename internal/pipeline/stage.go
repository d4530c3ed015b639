package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
)

// Stage names one step of the production pipeline.
type Stage string

const (
	StageScript   Stage = "script"
	StageMetadata Stage = "metadata"
	StageScenes   Stage = "scenes"
	StageVoice    Stage = "voice"
	StageImages   Stage = "images"
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageScript, StageMetadata, StageScenes, StageVoice, StageImages}
}

// Label renders the stage name for display.
func (s Stage) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// runStage executes fn with stage-scoped context fields and emits the
// stage_start, stage_complete, and stage_failure lifecycle events. Failures
// are published to the notifier; pool exhaustion gets its own event.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, projectID string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, string(stage))
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	if projectID != "" {
		stageCtx = services.WithProjectID(stageCtx, projectID)
	}
	logger := logging.WithContext(stageCtx, o.logger)

	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()

	if err := fn(stageCtx); err != nil {
		details := services.Details(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String(logging.FieldErrorOperation, details.Operation),
			logging.String(logging.FieldErrorHint, details.Hint),
			logging.String("error_message", strings.TrimSpace(details.Message)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		o.notifyFailure(stageCtx, stage, projectID, details)
		return err
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (o *Orchestrator) notifyFailure(ctx context.Context, stage Stage, projectID string, details services.ErrorDetails) {
	switch details.Kind {
	case services.KindNoCredential:
		o.publish(ctx, notifications.EventPoolExhausted, notifications.Payload{
			"stage": stage.Label(),
		})
	case services.KindUpstream, services.KindUnknown:
		o.publish(ctx, notifications.EventStageFailed, notifications.Payload{
			"stage":   stage.Label(),
			"project": projectID,
			"error":   details.Message,
			"hint":    details.Hint,
		})
	}
}
