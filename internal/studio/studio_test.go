package studio_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/logging"
	"reelsmith/internal/store"
	"reelsmith/internal/studio"
	"reelsmith/internal/testsupport"
)

func scriptedProvider(breakdown string) *testsupport.ScriptedProvider {
	return testsupport.NewScriptedProvider().
		Reply(testsupport.MarkerScript, "[Scene 1] Morning. [Scene 2] Night.").
		Reply(testsupport.MarkerTitles, "Day and Night\nSecond Title").
		Reply(testsupport.MarkerDescription, "A short film about a day.").
		Reply(testsupport.MarkerTags, "day, night").
		Reply(testsupport.MarkerScenes, breakdown).
		Reply(testsupport.MarkerImagePrompt, "soft light, wide shot")
}

func TestOpenSeedsPoolAndHoldsLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCredentials("sk-a", "sk-b"))
	ctx := context.Background()

	s, err := studio.Open(ctx, cfg, logging.NewNop(), studio.WithProvider(testsupport.NewScriptedProvider()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	keys, err := s.Pool.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0].Name != "sk-a" || keys[1].Name != "sk-b" {
		t.Fatalf("unexpected seeded keys %+v", keys)
	}

	if _, err := studio.Open(ctx, cfg, logging.NewNop()); !errors.Is(err, studio.ErrLocked) {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := studio.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	if err := again.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestProduceRunsEveryStage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCredentials("sk-a", "sk-b"))
	provider := scriptedProvider(`[{"scene":1,"text":"Morning."},{"scene":2,"text":"Night."}]`)
	ctx := context.Background()

	s, err := studio.Open(ctx, cfg, logging.NewNop(), studio.WithProvider(provider))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	production, err := s.Produce(ctx, studio.ProduceRequest{Genre: "story", Topic: "A day"})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	project := production.View.Project
	if project.Status != store.ProjectCompleted {
		t.Fatalf("expected completed project, got %s", project.Status)
	}
	if project.VideoTitle != "Day and Night" || project.Description != "A short film about a day." {
		t.Fatalf("metadata not applied: %+v", project)
	}
	if len(project.Tags) != 2 {
		t.Fatalf("unexpected tags %v", project.Tags)
	}
	if len(production.View.Scenes) != 2 || production.ScenesNeedRetry {
		t.Fatalf("unexpected scenes %+v", production.View.Scenes)
	}
	for _, scene := range production.View.Scenes {
		if scene.VoiceURL == "" || scene.ImageURL == "" || scene.DurationSeconds <= 0 {
			t.Fatalf("scene %d not fully produced: %+v", scene.Order, scene)
		}
	}
	if production.Voice.Filled() != 2 || production.Images.Filled() != 2 {
		t.Fatalf("unexpected asset results voice=%d images=%d", production.Voice.Filled(), production.Images.Filled())
	}

	keys, err := s.Pool.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var total int64
	for _, key := range keys {
		total += key.UsageCount
	}
	if calls := len(provider.Calls()); total != int64(calls) {
		t.Fatalf("expected one lease per provider call, usage %d calls %d", total, calls)
	}
	if diff := keys[0].UsageCount - keys[1].UsageCount; diff < -1 || diff > 1 {
		t.Fatalf("usage should be spread evenly, got %d and %d", keys[0].UsageCount, keys[1].UsageCount)
	}
}

func TestProduceStopsWhenBreakdownStaysEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCredentials("sk-a"))
	provider := scriptedProvider("no json here")
	ctx := context.Background()

	s, err := studio.Open(ctx, cfg, logging.NewNop(), studio.WithProvider(provider))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	production, err := s.Produce(ctx, studio.ProduceRequest{Genre: "story", Topic: "A day"})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if !production.ScenesNeedRetry || len(production.View.Scenes) != 0 {
		t.Fatalf("expected empty scenes needing retry, got %+v", production)
	}
	if got := provider.CallCount(testsupport.MarkerScenes); got != 2 {
		t.Fatalf("expected two breakdown attempts, got %d", got)
	}
	if provider.CallCount(testsupport.MarkerImagePrompt) != 0 {
		t.Fatal("asset stages must be skipped without scenes")
	}
	if production.View.Project.Status != store.ProjectDraft {
		t.Fatalf("expected draft, got %s", production.View.Project.Status)
	}
}

func TestCheckKeysUsesEveryActiveKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid key"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "OK"}}},
		})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithLLMBaseURL(server.URL),
		testsupport.WithCredentials("good", "bad", "idle"),
	)
	ctx := context.Background()
	s, err := studio.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	idle, err := s.Pool.Lookup(ctx, "idle")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if _, err := s.Pool.SetActive(ctx, idle.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	results, err := s.CheckKeys(ctx)
	if err != nil {
		t.Fatalf("CheckKeys: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Checked || results[0].Err != nil {
		t.Fatalf("expected good key to pass: %+v", results[0])
	}
	if !results[1].Checked || results[1].Err == nil {
		t.Fatalf("expected bad key to fail: %+v", results[1])
	}
	if results[2].Checked || results[2].Active {
		t.Fatalf("inactive key must not be checked: %+v", results[2])
	}

	keys, err := s.Pool.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, key := range keys {
		if key.UsageCount != 0 {
			t.Fatalf("health checks must not consume usage, %s has %d", key.Name, key.UsageCount)
		}
	}
}

func TestCheckKeysRequiresHealthCheckProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s, err := studio.Open(context.Background(), cfg, logging.NewNop(), studio.WithProvider(testsupport.NewScriptedProvider()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.CheckKeys(context.Background()); err == nil {
		t.Fatal("expected error for provider without health checks")
	}
}
