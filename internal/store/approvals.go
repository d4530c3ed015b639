package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const approvalColumns = "id, email, name, status, invite_code, created_at"

func scanApproval(scanner rowScanner) (*ApprovalRequest, error) {
	var (
		req        ApprovalRequest
		status     string
		inviteCode sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&req.ID, &req.Email, &req.Name, &status, &inviteCode, &createdRaw); err != nil {
		return nil, err
	}
	req.Status = ApprovalStatus(status)
	req.InviteCode = inviteCode.String
	if created, err := parseTimeString(createdRaw); err == nil {
		req.CreatedAt = created
	}
	return &req, nil
}

// CreateApprovalRequest records a pending request. Emails are unique and
// compared case-insensitively; a clash returns ErrDuplicate.
func (s *Store) CreateApprovalRequest(ctx context.Context, input NewApprovalRequest) (*ApprovalRequest, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("create approval request: invalid email %q", input.Email)
	}
	id := newID()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO approval_requests (id, email, name, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id,
		email,
		strings.TrimSpace(input.Name),
		ApprovalPending,
		timestamp(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert approval request %q: %w", email, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert approval request: %w", err)
	}
	return s.GetApprovalRequest(ctx, id)
}

// GetApprovalRequest fetches a request by id. It returns nil, nil when none exists.
func (s *Store) GetApprovalRequest(ctx context.Context, id string) (*ApprovalRequest, error) {
	return s.getApprovalWhere(ctx, "id = ?", id)
}

// GetApprovalRequestByEmail fetches a request by email address.
func (s *Store) GetApprovalRequestByEmail(ctx context.Context, email string) (*ApprovalRequest, error) {
	return s.getApprovalWhere(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getApprovalWhere(ctx context.Context, term string, arg any) (*ApprovalRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE `+term, arg)
	req, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval request: %w", err)
	}
	return req, nil
}

func approvalConditions(filter ApprovalFilter) conditions {
	var where conditions
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	return where
}

// ListApprovalRequests returns requests matching filter, oldest first.
func (s *Store) ListApprovalRequests(ctx context.Context, filter ApprovalFilter) ([]*ApprovalRequest, error) {
	where := approvalConditions(filter)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+approvalColumns+` FROM approval_requests`+where.clause()+` ORDER BY created_at, rowid`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer rows.Close()

	var requests []*ApprovalRequest
	for rows.Next() {
		req, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval requests: %w", err)
	}
	return requests, nil
}

// UpdateApprovalRequest applies the non-nil fields of update. It returns
// nil, nil when the request does not exist.
func (s *Store) UpdateApprovalRequest(ctx context.Context, id string, update ApprovalUpdate) (*ApprovalRequest, error) {
	var set assignments
	if update.Name != nil {
		set.set("name", strings.TrimSpace(*update.Name))
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, fmt.Errorf("update approval request: invalid status %q", *update.Status)
		}
		set.set("status", *update.Status)
	}
	if update.InviteCode != nil {
		set.set("invite_code", nullableString(strings.TrimSpace(*update.InviteCode)))
	}
	if set.empty() {
		return s.GetApprovalRequest(ctx, id)
	}

	args := append(set.args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE approval_requests SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update approval request: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return s.GetApprovalRequest(ctx, id)
}

// DeleteApprovalRequest removes a request and reports whether it existed.
func (s *Store) DeleteApprovalRequest(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM approval_requests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete approval request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete approval request rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteApprovalRequests removes every request matching filter.
func (s *Store) DeleteApprovalRequests(ctx context.Context, filter ApprovalFilter) (int64, error) {
	where := approvalConditions(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM approval_requests`+where.clause(), where.args...)
	if err != nil {
		return 0, fmt.Errorf("delete approval requests: %w", err)
	}
	return res.RowsAffected()
}
