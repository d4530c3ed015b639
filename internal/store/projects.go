package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const projectColumns = "id, genre, title, topic, script, video_title, description, tags_json, status, duration_minutes, created_at, updated_at"

func scanProject(scanner rowScanner) (*Project, error) {
	var (
		p           Project
		script      sql.NullString
		videoTitle  sql.NullString
		description sql.NullString
		tagsJSON    sql.NullString
		status      string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Genre,
		&p.Title,
		&p.Topic,
		&script,
		&videoTitle,
		&description,
		&tagsJSON,
		&status,
		&p.DurationMinutes,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	p.Script = script.String
	p.VideoTitle = videoTitle.String
	p.Description = description.String
	p.Tags = decodeTags(tagsJSON.String)
	p.Status = ProjectStatus(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		p.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		p.UpdatedAt = updated
	}
	return &p, nil
}

// CreateProject inserts a project and returns it with its assigned id.
func (s *Store) CreateProject(ctx context.Context, input NewProject) (*Project, error) {
	if strings.TrimSpace(input.Genre) == "" || strings.TrimSpace(input.Topic) == "" {
		return nil, errors.New("create project: genre and topic are required")
	}
	status := input.Status
	if status == "" {
		status = ProjectDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("create project: invalid status %q", status)
	}
	id := newID()
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
            id, genre, title, topic, script, status, duration_minutes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		input.Genre,
		input.Title,
		input.Topic,
		nullableString(input.Script),
		status,
		input.DurationMinutes,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a project by id. It returns nil, nil when none exists.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

func projectConditions(filter ProjectFilter) conditions {
	var where conditions
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if filter.Genre != "" {
		where.add("genre = ?", filter.Genre)
	}
	return where
}

// ListProjects returns projects matching filter, oldest first.
func (s *Store) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	where := projectConditions(filter)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+projectColumns+` FROM projects`+where.clause()+` ORDER BY created_at, rowid`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// UpdateProject applies the non-nil fields of update. It returns nil, nil
// when the project does not exist.
func (s *Store) UpdateProject(ctx context.Context, id string, update ProjectUpdate) (*Project, error) {
	var set assignments
	if update.Genre != nil {
		set.set("genre", *update.Genre)
	}
	if update.Title != nil {
		set.set("title", *update.Title)
	}
	if update.Topic != nil {
		set.set("topic", *update.Topic)
	}
	if update.Script != nil {
		set.set("script", nullableString(*update.Script))
	}
	if update.VideoTitle != nil {
		set.set("video_title", nullableString(*update.VideoTitle))
	}
	if update.Description != nil {
		set.set("description", nullableString(*update.Description))
	}
	if update.Tags != nil {
		encoded, err := encodeTags(*update.Tags)
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		set.set("tags_json", encoded)
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, fmt.Errorf("update project: invalid status %q", *update.Status)
		}
		set.set("status", *update.Status)
	}
	if update.DurationMinutes != nil {
		set.set("duration_minutes", *update.DurationMinutes)
	}
	if set.empty() {
		return s.GetProject(ctx, id)
	}
	set.set("updated_at", timestamp(time.Now()))

	args := append(set.args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project and, through the foreign key cascade, its
// scenes. It reports whether a row was removed.
func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteProjects removes every project matching filter.
func (s *Store) DeleteProjects(ctx context.Context, filter ProjectFilter) (int64, error) {
	where := projectConditions(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects`+where.clause(), where.args...)
	if err != nil {
		return 0, fmt.Errorf("delete projects: %w", err)
	}
	return res.RowsAffected()
}
