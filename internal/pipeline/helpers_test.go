package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"reelsmith/internal/assets"
	"reelsmith/internal/credentials"
	"reelsmith/internal/generation"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/store"
	"reelsmith/internal/testsupport"
)

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) count(event notifications.Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, item := range n.events {
		if item.event == event {
			total++
		}
	}
	return total
}

// fakeVoice fails for the scene orders listed in failOrders.
type fakeVoice struct {
	mu         sync.Mutex
	failOrders map[int]bool
	calls      []int
}

func (v *fakeVoice) Synthesize(_ context.Context, scene *store.Scene) (string, float64, error) {
	v.mu.Lock()
	v.calls = append(v.calls, scene.Order)
	fail := v.failOrders[scene.Order]
	v.mu.Unlock()
	if fail {
		return "", 0, fmt.Errorf("synthesizer offline for scene %d", scene.Order)
	}
	return fmt.Sprintf("https://voice.test/%s/%d.mp3", scene.ProjectID, scene.Order), 4.5, nil
}

func (v *fakeVoice) called() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.calls...)
}

type harness struct {
	store    *store.Store
	provider *testsupport.ScriptedProvider
	voice    *fakeVoice
	notifier *recordingNotifier
	orch     *pipeline.Orchestrator
}

func newHarness(t *testing.T, keys ...string) *harness {
	t.Helper()
	st := testsupport.MustOpenStore(t)
	for _, name := range keys {
		testsupport.AddCredential(t, st, name)
	}
	provider := testsupport.NewScriptedProvider()
	pool := credentials.NewPool(st, logging.NewNop())
	engine := generation.NewEngine(provider, pool, logging.NewNop())
	h := &harness{
		store:    st,
		provider: provider,
		voice:    &fakeVoice{failOrders: map[int]bool{}},
		notifier: &recordingNotifier{},
	}
	orch, err := pipeline.New(pipeline.Options{
		Store:            st,
		Generator:        engine,
		Voice:            h.voice,
		Images:           assets.PlaceholderImage{BaseURL: "https://img.test/1280x720"},
		Notifier:         h.notifier,
		Logger:           logging.NewNop(),
		SceneConcurrency: 2,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	h.orch = orch
	return h
}

func (h *harness) addScenes(t *testing.T, projectID string, texts ...string) []*store.Scene {
	t.Helper()
	inputs := make([]store.NewScene, 0, len(texts))
	for i, text := range texts {
		inputs = append(inputs, store.NewScene{Order: i + 1, Text: text})
	}
	scenes, err := h.store.CreateScenes(context.Background(), projectID, inputs)
	if err != nil {
		t.Fatalf("CreateScenes: %v", err)
	}
	return scenes
}

func (h *harness) scenes(t *testing.T, projectID string) []*store.Scene {
	t.Helper()
	scenes, err := h.store.ProjectScenes(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ProjectScenes: %v", err)
	}
	return scenes
}
