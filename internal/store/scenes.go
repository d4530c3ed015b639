package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sceneColumns = "id, project_id, scene_order, text, image_prompt, image_url, voice_url, duration_seconds, created_at, updated_at"

func scanScene(scanner rowScanner) (*Scene, error) {
	var (
		scene       Scene
		imagePrompt sql.NullString
		imageURL    sql.NullString
		voiceURL    sql.NullString
		duration    sql.NullFloat64
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&scene.ID,
		&scene.ProjectID,
		&scene.Order,
		&scene.Text,
		&imagePrompt,
		&imageURL,
		&voiceURL,
		&duration,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	scene.ImagePrompt = imagePrompt.String
	scene.ImageURL = imageURL.String
	scene.VoiceURL = voiceURL.String
	scene.DurationSeconds = duration.Float64
	if created, err := parseTimeString(createdRaw); err == nil {
		scene.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		scene.UpdatedAt = updated
	}
	return &scene, nil
}

// CreateScenes inserts all scenes for a project in one transaction. Either
// every scene is written or none is.
func (s *Store) CreateScenes(ctx context.Context, projectID string, scenes []NewScene) ([]*Scene, error) {
	if len(scenes) == 0 {
		return nil, nil
	}
	for _, scene := range scenes {
		if strings.TrimSpace(scene.Text) == "" {
			return nil, fmt.Errorf("create scenes: scene %d has no text", scene.Order)
		}
		if scene.Order < 1 {
			return nil, fmt.Errorf("create scenes: invalid order %d", scene.Order)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin scenes tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp(time.Now())
	ids := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		id := newID()
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO scenes (
                id, project_id, scene_order, text, image_prompt, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id,
			projectID,
			scene.Order,
			scene.Text,
			nullableString(scene.ImagePrompt),
			now,
			now,
		); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("insert scene %d: %w", scene.Order, ErrDuplicate)
			}
			return nil, fmt.Errorf("insert scene %d: %w", scene.Order, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scenes: %w", err)
	}

	created := make([]*Scene, 0, len(ids))
	for _, id := range ids {
		scene, err := s.GetScene(ctx, id)
		if err != nil {
			return nil, err
		}
		if scene != nil {
			created = append(created, scene)
		}
	}
	return created, nil
}

// CreateScene inserts a single scene.
func (s *Store) CreateScene(ctx context.Context, projectID string, scene NewScene) (*Scene, error) {
	created, err := s.CreateScenes(ctx, projectID, []NewScene{scene})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

// GetScene fetches a scene by id. It returns nil, nil when none exists.
func (s *Store) GetScene(ctx context.Context, id string) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

func sceneConditions(filter SceneFilter) conditions {
	var where conditions
	if filter.ProjectID != "" {
		where.add("project_id = ?", filter.ProjectID)
	}
	if filter.MissingVoice {
		where.add("(voice_url IS NULL OR voice_url = '')")
	}
	if filter.MissingImage {
		where.add("(image_url IS NULL OR image_url = '')")
	}
	return where
}

// ListScenes returns scenes matching filter ordered by project and then by
// ascending scene order.
func (s *Store) ListScenes(ctx context.Context, filter SceneFilter) ([]*Scene, error) {
	where := sceneConditions(filter)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes`+where.clause()+` ORDER BY project_id, scene_order ASC`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return scenes, nil
}

// ProjectScenes returns the scenes of one project in ascending order.
func (s *Store) ProjectScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	return s.ListScenes(ctx, SceneFilter{ProjectID: projectID})
}

// UpdateScene applies the non-nil fields of update. It returns nil, nil when
// the scene does not exist.
func (s *Store) UpdateScene(ctx context.Context, id string, update SceneUpdate) (*Scene, error) {
	var set assignments
	if update.Text != nil {
		if strings.TrimSpace(*update.Text) == "" {
			return nil, errors.New("update scene: text cannot be empty")
		}
		set.set("text", *update.Text)
	}
	if update.ImagePrompt != nil {
		set.set("image_prompt", nullableString(*update.ImagePrompt))
	}
	if update.ImageURL != nil {
		set.set("image_url", nullableString(*update.ImageURL))
	}
	if update.VoiceURL != nil {
		set.set("voice_url", nullableString(*update.VoiceURL))
	}
	if update.DurationSeconds != nil {
		set.set("duration_seconds", nullableFloat(*update.DurationSeconds))
	}
	if set.empty() {
		return s.GetScene(ctx, id)
	}
	set.set("updated_at", timestamp(time.Now()))

	args := append(set.args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE scenes SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update scene: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return s.GetScene(ctx, id)
}

// SetSceneVoice fills the voice URL and duration of a scene that has no voice
// yet. It reports false without writing when the scene already has one.
func (s *Store) SetSceneVoice(ctx context.Context, id, voiceURL string, durationSeconds float64) (bool, error) {
	if strings.TrimSpace(voiceURL) == "" {
		return false, errors.New("set scene voice: url is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET voice_url = ?, duration_seconds = ?, updated_at = ?
         WHERE id = ? AND (voice_url IS NULL OR voice_url = '')`,
		voiceURL,
		nullableFloat(durationSeconds),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("set scene voice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set scene voice rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetSceneImage fills the image prompt and URL of a scene that has no image
// yet. It reports false without writing when the scene already has one.
func (s *Store) SetSceneImage(ctx context.Context, id, imagePrompt, imageURL string) (bool, error) {
	if strings.TrimSpace(imageURL) == "" {
		return false, errors.New("set scene image: url is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET image_prompt = ?, image_url = ?, updated_at = ?
         WHERE id = ? AND (image_url IS NULL OR image_url = '')`,
		nullableString(imagePrompt),
		imageURL,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("set scene image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set scene image rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteScene removes one scene and reports whether it existed.
func (s *Store) DeleteScene(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete scene rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteScenes removes every scene matching filter and returns the count.
func (s *Store) DeleteScenes(ctx context.Context, filter SceneFilter) (int64, error) {
	where := sceneConditions(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenes`+where.clause(), where.args...)
	if err != nil {
		return 0, fmt.Errorf("delete scenes: %w", err)
	}
	return res.RowsAffected()
}
