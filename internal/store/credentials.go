package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const credentialColumns = "id, seq, name, secret, usage_count, is_active, last_used_at, created_at"

func scanCredential(scanner rowScanner) (*CredentialKey, error) {
	var (
		key         CredentialKey
		active      int
		lastUsedRaw sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(
		&key.ID,
		&key.Seq,
		&key.Name,
		&key.Secret,
		&key.UsageCount,
		&active,
		&lastUsedRaw,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	key.IsActive = active != 0
	if lastUsedRaw.Valid {
		if lastUsed, err := parseTimeString(lastUsedRaw.String); err == nil {
			key.LastUsedAt = &lastUsed
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		key.CreatedAt = created
	}
	return &key, nil
}

// CreateCredential inserts a key with a zero usage counter. Names are unique;
// a clash returns ErrDuplicate.
func (s *Store) CreateCredential(ctx context.Context, input NewCredential) (*CredentialKey, error) {
	name := strings.TrimSpace(input.Name)
	secret := strings.TrimSpace(input.Secret)
	if name == "" || secret == "" {
		return nil, errors.New("create credential: name and secret are required")
	}
	id := newID()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO credential_keys (id, name, secret, usage_count, is_active, created_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		id,
		name,
		secret,
		boolToInt(input.IsActive),
		timestamp(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert credential %q: %w", name, ErrDuplicate)
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return s.GetCredential(ctx, id)
}

// GetCredential fetches a key by id. It returns nil, nil when none exists.
func (s *Store) GetCredential(ctx context.Context, id string) (*CredentialKey, error) {
	return s.getCredentialWhere(ctx, "id = ?", id)
}

// GetCredentialByName fetches a key by its unique name.
func (s *Store) GetCredentialByName(ctx context.Context, name string) (*CredentialKey, error) {
	return s.getCredentialWhere(ctx, "name = ?", strings.TrimSpace(name))
}

func (s *Store) getCredentialWhere(ctx context.Context, term string, arg any) (*CredentialKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credential_keys WHERE `+term, arg)
	key, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return key, nil
}

func credentialConditions(filter CredentialFilter) conditions {
	var where conditions
	switch {
	case filter.ActiveOnly:
		where.add("is_active = 1")
	case filter.InactiveOnly:
		where.add("is_active = 0")
	}
	return where
}

// ListCredentials returns keys matching filter in creation order.
func (s *Store) ListCredentials(ctx context.Context, filter CredentialFilter) ([]*CredentialKey, error) {
	where := credentialConditions(filter)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+credentialColumns+` FROM credential_keys`+where.clause()+` ORDER BY seq`,
		where.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var keys []*CredentialKey
	for rows.Next() {
		key, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return keys, nil
}

// UpdateCredential applies the non-nil fields of update. It returns nil, nil
// when the key does not exist.
func (s *Store) UpdateCredential(ctx context.Context, id string, update CredentialUpdate) (*CredentialKey, error) {
	var set assignments
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, errors.New("update credential: name cannot be empty")
		}
		set.set("name", name)
	}
	if update.Secret != nil {
		secret := strings.TrimSpace(*update.Secret)
		if secret == "" {
			return nil, errors.New("update credential: secret cannot be empty")
		}
		set.set("secret", secret)
	}
	if update.IsActive != nil {
		set.set("is_active", boolToInt(*update.IsActive))
	}
	if set.empty() {
		return s.GetCredential(ctx, id)
	}

	args := append(set.args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE credential_keys SET `+set.clause()+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update credential: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("update credential: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, nil
	}
	return s.GetCredential(ctx, id)
}

// ClaimLeastUsedCredential selects the active key with the smallest usage
// count, ties broken by creation order, increments its counter and stamps
// its last use in one transaction. It returns nil, nil when no key is active.
func (s *Store) ClaimLeastUsedCredential(ctx context.Context, now time.Time) (*CredentialKey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+credentialColumns+` FROM credential_keys
         WHERE is_active = 1
         ORDER BY usage_count ASC, seq ASC
         LIMIT 1`,
	)
	key, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select credential: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE credential_keys SET usage_count = usage_count + 1, last_used_at = ? WHERE id = ?`,
		timestamp(now),
		key.ID,
	); err != nil {
		return nil, fmt.Errorf("increment credential usage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	used := now.UTC()
	key.UsageCount++
	key.LastUsedAt = &used
	return key, nil
}

// ResetCredentialUsage zeroes a key's usage counter and reports whether the
// key exists.
func (s *Store) ResetCredentialUsage(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE credential_keys SET usage_count = 0 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("reset credential usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset credential rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteCredential removes a key and reports whether it existed.
func (s *Store) DeleteCredential(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credential_keys WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete credential rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteCredentials removes every key matching filter.
func (s *Store) DeleteCredentials(ctx context.Context, filter CredentialFilter) (int64, error) {
	where := credentialConditions(filter)
	res, err := s.db.ExecContext(ctx, `DELETE FROM credential_keys`+where.clause(), where.args...)
	if err != nil {
		return 0, fmt.Errorf("delete credentials: %w", err)
	}
	return res.RowsAffected()
}
