package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
	"reelsmith/internal/testsupport"
)

func TestAdvanceScriptCreatesDraftProject(t *testing.T) {
	h := newHarness(t, "main")
	h.provider.Reply(testsupport.MarkerScript, "[Scene 1] Qubits hold superpositions.")
	topic := strings.Repeat("q", 120)

	project, err := h.orch.AdvanceScript(context.Background(), pipeline.ScriptRequest{Genre: "  Tech ", Topic: topic})
	if err != nil {
		t.Fatalf("AdvanceScript: %v", err)
	}
	if project.ID == "" || project.Genre != "tech" {
		t.Fatalf("unexpected project %+v", project)
	}
	if project.Script != "[Scene 1] Qubits hold superpositions." {
		t.Fatalf("unexpected script %q", project.Script)
	}
	if project.Status != store.ProjectDraft {
		t.Fatalf("expected draft, got %s", project.Status)
	}
	if project.DurationMinutes != 5 {
		t.Fatalf("expected default duration 5, got %d", project.DurationMinutes)
	}
	if len([]rune(project.Title)) != 100 || project.Topic != topic {
		t.Fatalf("unexpected title/topic lengths %d/%d", len(project.Title), len(project.Topic))
	}
	calls := h.provider.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].Prompt, "about 5 minutes") {
		t.Fatalf("unexpected provider calls %+v", calls)
	}
}

func TestAdvanceScriptRequiresGenreAndTopic(t *testing.T) {
	h := newHarness(t, "main")
	h.provider.Reply(testsupport.MarkerScript, "unused")

	for _, req := range []pipeline.ScriptRequest{
		{Genre: "tech"},
		{Topic: "Quantum"},
		{Genre: "   ", Topic: "Quantum"},
	} {
		_, err := h.orch.AdvanceScript(context.Background(), req)
		if !errors.Is(err, services.ErrPrecondition) {
			t.Fatalf("request %+v: expected precondition error, got %v", req, err)
		}
	}
	if h.provider.CallCount(testsupport.MarkerScript) != 0 {
		t.Fatal("provider must not be called for invalid requests")
	}
	if h.notifier.count(notifications.EventStageFailed) != 0 {
		t.Fatal("caller errors must not notify")
	}
}

func TestAdvanceScriptUnknownProject(t *testing.T) {
	h := newHarness(t, "main")
	h.provider.Reply(testsupport.MarkerScript, "unused")

	_, err := h.orch.AdvanceScript(context.Background(), pipeline.ScriptRequest{
		ProjectID: "missing",
		Genre:     "tech",
		Topic:     "Quantum",
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.provider.CallCount(testsupport.MarkerScript) != 0 {
		t.Fatal("provider must not be called for a missing project")
	}
}

func TestAdvanceScriptRegeneratesExistingProject(t *testing.T) {
	h := newHarness(t, "main")
	project := testsupport.NewProject(t, h.store, "tech", "Old topic", "old script")
	h.addScenes(t, project.ID, "one")
	h.provider.Reply(testsupport.MarkerScript, "new script")

	updated, err := h.orch.AdvanceScript(context.Background(), pipeline.ScriptRequest{
		ProjectID:       project.ID,
		Genre:           "story",
		Topic:           "New topic",
		DurationMinutes: 8,
	})
	if err != nil {
		t.Fatalf("AdvanceScript: %v", err)
	}
	if updated.ID != project.ID || updated.Script != "new script" || updated.Genre != "story" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.DurationMinutes != 8 || updated.Title != "New topic" {
		t.Fatalf("unexpected duration/title %+v", updated)
	}
	if updated.Status != store.ProjectProcessing {
		t.Fatalf("expected processing with unfinished scenes, got %s", updated.Status)
	}
}

func TestPoolExhaustionIsDistinctFromUpstreamFailure(t *testing.T) {
	t.Run("no credentials", func(t *testing.T) {
		h := newHarness(t)
		h.provider.Reply(testsupport.MarkerScript, "unused")

		_, err := h.orch.AdvanceScript(context.Background(), pipeline.ScriptRequest{Genre: "tech", Topic: "Quantum"})
		if !errors.Is(err, services.ErrNoCredentialAvailable) {
			t.Fatalf("expected pool exhaustion, got %v", err)
		}
		if errors.Is(err, services.ErrUpstreamGeneration) || services.Retryable(err) {
			t.Fatalf("pool exhaustion must not look like an upstream failure: %v", err)
		}
		if h.notifier.count(notifications.EventPoolExhausted) != 1 || h.notifier.count(notifications.EventStageFailed) != 0 {
			t.Fatalf("unexpected notifications %+v", h.notifier.events)
		}
		if h.provider.CallCount(testsupport.MarkerScript) != 0 {
			t.Fatal("provider must not be called without a key")
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		h := newHarness(t, "main")
		h.provider.Fail(testsupport.MarkerScript, errors.New("502 bad gateway"))

		_, err := h.orch.AdvanceScript(context.Background(), pipeline.ScriptRequest{Genre: "tech", Topic: "Quantum"})
		if !errors.Is(err, services.ErrUpstreamGeneration) {
			t.Fatalf("expected upstream failure, got %v", err)
		}
		if errors.Is(err, services.ErrNoCredentialAvailable) {
			t.Fatalf("upstream failure must not look like pool exhaustion: %v", err)
		}
		if !services.Retryable(err) {
			t.Fatal("upstream failures are retryable")
		}
		if h.notifier.count(notifications.EventStageFailed) != 1 || h.notifier.count(notifications.EventPoolExhausted) != 0 {
			t.Fatalf("unexpected notifications %+v", h.notifier.events)
		}
		projects, err := h.store.ListProjects(context.Background(), store.ProjectFilter{})
		if err != nil {
			t.Fatalf("ListProjects: %v", err)
		}
		if len(projects) != 0 {
			t.Fatalf("failed script stage must not create a project, got %d", len(projects))
		}
	})
}
