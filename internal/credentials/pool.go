package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

const component = "credentials"

// Lease is a key handed out by Acquire. The usage counter has already been
// incremented when the lease is returned.
type Lease struct {
	ID         string
	Name       string
	Secret     string
	UsageCount int64
}

// LogValue keeps secrets out of structured logs.
func (l Lease) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", l.ID),
		slog.String("name", l.Name),
		slog.Int64("usage", l.UsageCount),
	)
}

// SeedKey describes a key loaded from configuration.
type SeedKey struct {
	Name   string
	Secret string
	Active bool
}

// Pool rations provider keys by always handing out the least used active key.
// Selection and the usage increment happen under one mutex, so two callers
// can never observe the same count for the same key.
type Pool struct {
	mu     sync.Mutex
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Pool.
type Option func(*Pool)

// WithClock overrides the time source used to stamp last use.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPool constructs a pool over the keys held in st.
func NewPool(st *store.Store, logger *slog.Logger, opts ...Option) *Pool {
	pool := &Pool{
		store:  st,
		logger: logging.NewComponentLogger(logger, component),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Acquire selects the active key with the lowest usage count, ties broken by
// creation order, and records the use. With no active key it returns
// services.ErrNoCredentialAvailable and mutates nothing.
func (p *Pool) Acquire(ctx context.Context) (Lease, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := p.store.ClaimLeastUsedCredential(ctx, p.now())
	if err != nil {
		return Lease{}, fmt.Errorf("acquire credential: %w", err)
	}
	if key == nil {
		logging.WarnWithContext(
			p.logger,
			"credential pool exhausted",
			"pool_exhausted",
			logging.String(logging.FieldErrorHint, "add or re-activate a credential key"),
			logging.String(logging.FieldImpact, "generation stages cannot run"),
		)
		return Lease{}, services.ErrNoCredentialAvailable
	}
	lease := Lease{ID: key.ID, Name: key.Name, Secret: key.Secret, UsageCount: key.UsageCount}
	p.logger.Debug("credential acquired",
		logging.String(logging.FieldCredential, key.Name),
		logging.Int64("usage_count", key.UsageCount),
	)
	return lease, nil
}

// Reset zeroes the usage counter of the key with the given id.
func (p *Pool) Reset(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.store.ResetCredentialUsage(ctx, id)
	if err != nil {
		return fmt.Errorf("reset credential: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, component, "reset", "unknown credential "+id, nil)
	}
	p.logger.Info("credential usage reset", logging.String("credential_id", id))
	return nil
}

// Add registers a new active key.
func (p *Pool) Add(ctx context.Context, name, secret string) (*store.CredentialKey, error) {
	name = strings.TrimSpace(name)
	secret = strings.TrimSpace(secret)
	if name == "" || secret == "" {
		return nil, services.Wrap(services.ErrValidation, component, "add", "name and secret are required", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := p.store.CreateCredential(ctx, store.NewCredential{Name: name, Secret: secret, IsActive: true})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, services.Wrap(services.ErrValidation, component, "add", "credential name already exists", err)
		}
		return nil, fmt.Errorf("add credential: %w", err)
	}
	p.logger.Info("credential added", logging.String(logging.FieldCredential, key.Name))
	return key, nil
}

// SetActive toggles whether a key is eligible for selection.
func (p *Pool) SetActive(ctx context.Context, id string, active bool) (*store.CredentialKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := p.store.UpdateCredential(ctx, id, store.CredentialUpdate{IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("set credential active: %w", err)
	}
	if key == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "set active", "unknown credential "+id, nil)
	}
	p.logger.Info("credential activation changed",
		logging.String(logging.FieldCredential, key.Name),
		logging.Bool("active", active),
	)
	return key, nil
}

// Rename changes a key's display name.
func (p *Pool) Rename(ctx context.Context, id, name string) (*store.CredentialKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, component, "rename", "name is required", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key, err := p.store.UpdateCredential(ctx, id, store.CredentialUpdate{Name: &name})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, services.Wrap(services.ErrValidation, component, "rename", "credential name already exists", err)
		}
		return nil, fmt.Errorf("rename credential: %w", err)
	}
	if key == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "rename", "unknown credential "+id, nil)
	}
	return key, nil
}

// Remove deletes a key from the pool.
func (p *Pool) Remove(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok, err := p.store.DeleteCredential(ctx, id)
	if err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, component, "remove", "unknown credential "+id, nil)
	}
	p.logger.Info("credential removed", logging.String("credential_id", id))
	return nil
}

// List returns every key in creation order.
func (p *Pool) List(ctx context.Context) ([]*store.CredentialKey, error) {
	keys, err := p.store.ListCredentials(ctx, store.CredentialFilter{})
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return keys, nil
}

// Lookup resolves a key by id or, failing that, by name.
func (p *Pool) Lookup(ctx context.Context, ref string) (*store.CredentialKey, error) {
	ref = strings.TrimSpace(ref)
	key, err := p.store.GetCredential(ctx, ref)
	if err != nil {
		return nil, err
	}
	if key == nil {
		key, err = p.store.GetCredentialByName(ctx, ref)
		if err != nil {
			return nil, err
		}
	}
	if key == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "lookup", "unknown credential "+ref, nil)
	}
	return key, nil
}

// Seed inserts configured keys that are not yet present by name. Existing
// keys keep their usage counters. It returns how many keys were added.
func (p *Pool) Seed(ctx context.Context, keys []SeedKey) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, seed := range keys {
		existing, err := p.store.GetCredentialByName(ctx, seed.Name)
		if err != nil {
			return added, fmt.Errorf("seed credential %q: %w", seed.Name, err)
		}
		if existing != nil {
			continue
		}
		if _, err := p.store.CreateCredential(ctx, store.NewCredential{
			Name:     seed.Name,
			Secret:   seed.Secret,
			IsActive: seed.Active,
		}); err != nil {
			return added, fmt.Errorf("seed credential %q: %w", seed.Name, err)
		}
		added++
	}
	if added > 0 {
		p.logger.Info("credential pool seeded", logging.Int("added", added), logging.Int("configured", len(keys)))
	}
	return added, nil
}

// MaskSecret renders a secret for display, keeping only its last four characters.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
