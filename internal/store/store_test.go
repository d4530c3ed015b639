package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustProject(t *testing.T, st *store.Store) *store.Project {
	t.Helper()
	project, err := st.CreateProject(context.Background(), store.NewProject{
		Genre:           "tech",
		Title:           "Quantum computing",
		Topic:           "Quantum computing",
		Script:          "a script",
		DurationMinutes: 5,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return project
}

func TestOpenCreatesIsolatedDatabases(t *testing.T) {
	first := openStore(t)
	second := openStore(t)
	mustProject(t, first)

	projects, err := second.ListProjects(context.Background(), store.ProjectFilter{})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected separate stores to be isolated, got %d projects", len(projects))
	}
}

func TestProjectLifecycle(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	project := mustProject(t, st)
	if project.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if project.Status != store.ProjectDraft {
		t.Fatalf("expected draft status, got %q", project.Status)
	}
	if project.Tags != nil {
		t.Fatalf("expected nil tags before metadata, got %v", project.Tags)
	}

	videoTitle := "Qubits explained"
	tags := []string{"quantum", "qubits"}
	updated, err := st.UpdateProject(ctx, project.ID, store.ProjectUpdate{VideoTitle: &videoTitle, Tags: &tags})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.VideoTitle != videoTitle || len(updated.Tags) != 2 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.Script != "a script" || updated.Genre != "tech" {
		t.Fatalf("partial update touched other fields: %+v", updated)
	}

	empty := []string{}
	updated, err = st.UpdateProject(ctx, project.ID, store.ProjectUpdate{Tags: &empty})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Tags == nil || len(updated.Tags) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", updated.Tags)
	}

	missing, err := st.UpdateProject(ctx, "missing", store.ProjectUpdate{VideoTitle: &videoTitle})
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing project, got %v %v", missing, err)
	}

	bad := store.ProjectStatus("archived")
	if _, err := st.UpdateProject(ctx, project.ID, store.ProjectUpdate{Status: &bad}); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}

	got, err := st.GetProject(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing project, got %v %v", got, err)
	}
}

func TestCreateProjectRequiresGenreAndTopic(t *testing.T) {
	st := openStore(t)
	if _, err := st.CreateProject(context.Background(), store.NewProject{Genre: "tech"}); err == nil {
		t.Fatal("expected error when topic missing")
	}
}

func TestListAndDeleteProjectsByFilter(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for _, genre := range []string{"tech", "news", "tech"} {
		if _, err := st.CreateProject(ctx, store.NewProject{Genre: genre, Title: genre, Topic: genre}); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}
	tech, err := st.ListProjects(ctx, store.ProjectFilter{Genre: "tech"})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(tech) != 2 {
		t.Fatalf("expected 2 tech projects, got %d", len(tech))
	}
	removed, err := st.DeleteProjects(ctx, store.ProjectFilter{Genre: "tech"})
	if err != nil {
		t.Fatalf("DeleteProjects: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	rest, err := st.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(rest) != 1 || rest[0].Genre != "news" {
		t.Fatalf("unexpected remaining projects %+v", rest)
	}
}

func TestScenesAreOrderedAndCascade(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	project := mustProject(t, st)

	created, err := st.CreateScenes(ctx, project.ID, []store.NewScene{
		{Order: 3, Text: "third"},
		{Order: 1, Text: "first"},
		{Order: 2, Text: "second", ImagePrompt: "a prompt"},
	})
	if err != nil {
		t.Fatalf("CreateScenes: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(created))
	}

	scenes, err := st.ProjectScenes(ctx, project.ID)
	if err != nil {
		t.Fatalf("ProjectScenes: %v", err)
	}
	for i, scene := range scenes {
		if scene.Order != i+1 {
			t.Fatalf("scene %d has order %d", i, scene.Order)
		}
	}
	if scenes[0].Text != "first" || scenes[1].ImagePrompt != "a prompt" {
		t.Fatalf("unexpected scenes %+v", scenes)
	}

	deleted, err := st.DeleteProject(ctx, project.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteProject: %v %v", deleted, err)
	}
	remaining, err := st.ListScenes(ctx, store.SceneFilter{})
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected cascade delete, got %d scenes", len(remaining))
	}
}

func TestCreateScenesIsAllOrNothing(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	project := mustProject(t, st)

	_, err := st.CreateScenes(ctx, project.ID, []store.NewScene{
		{Order: 1, Text: "one"},
		{Order: 1, Text: "duplicate order"},
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	scenes, err := st.ProjectScenes(ctx, project.ID)
	if err != nil {
		t.Fatalf("ProjectScenes: %v", err)
	}
	if len(scenes) != 0 {
		t.Fatalf("expected rollback, got %d scenes", len(scenes))
	}

	if _, err := st.CreateScenes(ctx, "no-such-project", []store.NewScene{{Order: 1, Text: "x"}}); err == nil {
		t.Fatal("expected foreign key violation")
	}
	if _, err := st.CreateScenes(ctx, project.ID, []store.NewScene{{Order: 1, Text: "  "}}); err == nil {
		t.Fatal("expected blank text to be rejected")
	}
}

func TestSetSceneVoiceAndImageFillOnlyEmpty(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	project := mustProject(t, st)
	scene, err := st.CreateScene(ctx, project.ID, store.NewScene{Order: 1, Text: "narration"})
	if err != nil {
		t.Fatalf("CreateScene: %v", err)
	}

	applied, err := st.SetSceneVoice(ctx, scene.ID, "voice://1", 12.5)
	if err != nil || !applied {
		t.Fatalf("first SetSceneVoice: %v %v", applied, err)
	}
	applied, err = st.SetSceneVoice(ctx, scene.ID, "voice://2", 99)
	if err != nil || applied {
		t.Fatalf("second SetSceneVoice should not apply: %v %v", applied, err)
	}

	applied, err = st.SetSceneImage(ctx, scene.ID, "prompt", "https://img/1")
	if err != nil || !applied {
		t.Fatalf("first SetSceneImage: %v %v", applied, err)
	}
	applied, err = st.SetSceneImage(ctx, scene.ID, "other", "https://img/2")
	if err != nil || applied {
		t.Fatalf("second SetSceneImage should not apply: %v %v", applied, err)
	}

	got, err := st.GetScene(ctx, scene.ID)
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if got.VoiceURL != "voice://1" || got.DurationSeconds != 12.5 {
		t.Fatalf("voice overwritten: %+v", got)
	}
	if got.ImageURL != "https://img/1" || got.ImagePrompt != "prompt" {
		t.Fatalf("image overwritten: %+v", got)
	}

	missingVoice, err := st.ListScenes(ctx, store.SceneFilter{ProjectID: project.ID, MissingVoice: true})
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(missingVoice) != 0 {
		t.Fatalf("expected no scenes missing voice, got %d", len(missingVoice))
	}
}

func TestUpdateSceneAndDeleteScenes(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	project := mustProject(t, st)
	if _, err := st.CreateScenes(ctx, project.ID, []store.NewScene{{Order: 1, Text: "a"}, {Order: 2, Text: "b"}}); err != nil {
		t.Fatalf("CreateScenes: %v", err)
	}
	scenes, _ := st.ProjectScenes(ctx, project.ID)

	text := "rewritten"
	updated, err := st.UpdateScene(ctx, scenes[0].ID, store.SceneUpdate{Text: &text})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if updated.Text != text || updated.Order != 1 {
		t.Fatalf("unexpected updated scene %+v", updated)
	}
	blank := ""
	if _, err := st.UpdateScene(ctx, scenes[0].ID, store.SceneUpdate{Text: &blank}); err == nil {
		t.Fatal("expected blank text update to be rejected")
	}

	removed, err := st.DeleteScenes(ctx, store.SceneFilter{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("DeleteScenes: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestClaimLeastUsedCredential(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	a, _ := st.CreateCredential(ctx, store.NewCredential{Name: "A", Secret: "sk-a", IsActive: true})
	b, _ := st.CreateCredential(ctx, store.NewCredential{Name: "B", Secret: "sk-b", IsActive: true})
	if _, err := st.CreateCredential(ctx, store.NewCredential{Name: "C", Secret: "sk-c", IsActive: false}); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var order []string
	for rep := 0; rep < 4; rep++ {
		key, err := st.ClaimLeastUsedCredential(ctx, now)
		if err != nil {
			t.Fatalf("ClaimLeastUsedCredential: %v", err)
		}
		order = append(order, key.Name)
	}
	want := []string{"A", "B", "A", "B"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("claim order = %v, want %v", order, want)
		}
	}

	gotA, _ := st.GetCredential(ctx, a.ID)
	if gotA.UsageCount != 2 || gotA.LastUsedAt == nil || !gotA.LastUsedAt.Equal(now) {
		t.Fatalf("unexpected key A after claims %+v", gotA)
	}

	reset, err := st.ResetCredentialUsage(ctx, b.ID)
	if err != nil || !reset {
		t.Fatalf("ResetCredentialUsage: %v %v", reset, err)
	}
	key, err := st.ClaimLeastUsedCredential(ctx, now)
	if err != nil {
		t.Fatalf("ClaimLeastUsedCredential: %v", err)
	}
	if key.Name != "B" || key.UsageCount != 1 {
		t.Fatalf("expected reset key B to be chosen, got %+v", key)
	}
}

func TestClaimWithNoActiveCredential(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	inactive, _ := st.CreateCredential(ctx, store.NewCredential{Name: "off", Secret: "sk", IsActive: false})

	key, err := st.ClaimLeastUsedCredential(ctx, time.Now())
	if err != nil || key != nil {
		t.Fatalf("expected nil, nil, got %v %v", key, err)
	}
	got, _ := st.GetCredential(ctx, inactive.ID)
	if got.UsageCount != 0 || got.LastUsedAt != nil {
		t.Fatalf("inactive key mutated: %+v", got)
	}
}

func TestConcurrentClaimsAreAtomic(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	for _, name := range []string{"k1", "k2", "k3"} {
		if _, err := st.CreateCredential(ctx, store.NewCredential{Name: name, Secret: "sk-" + name, IsActive: true}); err != nil {
			t.Fatalf("CreateCredential: %v", err)
		}
	}

	var wg sync.WaitGroup
	for rep := 0; rep < 30; rep++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ClaimLeastUsedCredential(ctx, time.Now()); err != nil {
				t.Errorf("claim: %v", err)
			}
		}()
	}
	wg.Wait()

	keys, err := st.ListCredentials(ctx, store.CredentialFilter{})
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	var total int64
	for _, key := range keys {
		total += key.UsageCount
	}
	if total != 30 {
		t.Fatalf("expected 30 total claims, got %d", total)
	}
}

func TestCredentialNamesAreUnique(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	if _, err := st.CreateCredential(ctx, store.NewCredential{Name: "dup", Secret: "a", IsActive: true}); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	_, err := st.CreateCredential(ctx, store.NewCredential{Name: "dup", Secret: "b", IsActive: true})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	other, _ := st.CreateCredential(ctx, store.NewCredential{Name: "other", Secret: "c", IsActive: true})
	name := "dup"
	if _, err := st.UpdateCredential(ctx, other.ID, store.CredentialUpdate{Name: &name}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected rename clash to be ErrDuplicate, got %v", err)
	}

	byName, err := st.GetCredentialByName(ctx, " dup ")
	if err != nil || byName == nil || byName.Secret != "a" {
		t.Fatalf("GetCredentialByName: %+v %v", byName, err)
	}
}

func TestApprovalRequests(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	req, err := st.CreateApprovalRequest(ctx, store.NewApprovalRequest{Email: "Ada@Example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("CreateApprovalRequest: %v", err)
	}
	if req.Status != store.ApprovalPending || req.Email != "ada@example.com" {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, err := st.CreateApprovalRequest(ctx, store.NewApprovalRequest{Email: "ada@example.com"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := st.CreateApprovalRequest(ctx, store.NewApprovalRequest{Email: "not-an-email"}); err == nil {
		t.Fatal("expected invalid email to be rejected")
	}

	approved := store.ApprovalApproved
	code := "INVITE-123"
	updated, err := st.UpdateApprovalRequest(ctx, req.ID, store.ApprovalUpdate{Status: &approved, InviteCode: &code})
	if err != nil {
		t.Fatalf("UpdateApprovalRequest: %v", err)
	}
	if updated.Status != store.ApprovalApproved || updated.InviteCode != code {
		t.Fatalf("unexpected update %+v", updated)
	}

	pending, err := st.ListApprovalRequests(ctx, store.ApprovalFilter{Status: store.ApprovalPending})
	if err != nil {
		t.Fatalf("ListApprovalRequests: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(pending))
	}

	byEmail, err := st.GetApprovalRequestByEmail(ctx, "ADA@example.com")
	if err != nil || byEmail == nil || byEmail.ID != req.ID {
		t.Fatalf("GetApprovalRequestByEmail: %+v %v", byEmail, err)
	}

	removed, err := st.DeleteApprovalRequests(ctx, store.ApprovalFilter{Status: store.ApprovalApproved})
	if err != nil || removed != 1 {
		t.Fatalf("DeleteApprovalRequests: %d %v", removed, err)
	}
}
