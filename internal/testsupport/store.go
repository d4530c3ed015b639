package testsupport

import (
	"context"
	"testing"

	"reelsmith/internal/store"
)

// MustOpenStore opens an in-memory store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// NewProject creates a project with a script for tests.
func NewProject(t testing.TB, st *store.Store, genre, topic, script string) *store.Project {
	t.Helper()

	project, err := st.CreateProject(context.Background(), store.NewProject{
		Genre:           genre,
		Title:           topic,
		Topic:           topic,
		Script:          script,
		DurationMinutes: 5,
	})
	if err != nil {
		t.Fatalf("store.CreateProject: %v", err)
	}
	return project
}

// AddCredential registers an active key and returns it.
func AddCredential(t testing.TB, st *store.Store, name string) *store.CredentialKey {
	t.Helper()

	key, err := st.CreateCredential(context.Background(), store.NewCredential{
		Name:     name,
		Secret:   "sk-" + name,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("store.CreateCredential: %v", err)
	}
	return key
}
