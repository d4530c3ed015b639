package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

// fakeProvider answers chat completion requests based on the prompt text.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer sk-revoked" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "revoked"})
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		prompt := req.Messages[0].Content
		var reply string
		switch {
		case strings.Contains(prompt, testsupport.MarkerScript):
			reply = "[Scene 1] The harbor wakes. [Scene 2] Boats return."
		case strings.Contains(prompt, testsupport.MarkerTitles):
			reply = "Harbor Life\nA Day at the Docks"
		case strings.Contains(prompt, testsupport.MarkerDescription):
			reply = "One day in a fishing harbor."
		case strings.Contains(prompt, testsupport.MarkerTags):
			reply = "harbor, boats, fishing"
		case strings.Contains(prompt, testsupport.MarkerScenes):
			reply = `[{"scene":1,"text":"The harbor wakes.","imagePrompt":"dawn harbor"},{"scene":2,"text":"Boats return."}]`
		case strings.Contains(prompt, testsupport.MarkerImagePrompt):
			reply = "harbor scene, cinematic"
		default:
			reply = "OK"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": reply}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func setupCLITestEnv(t *testing.T, llmURL string, keys ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("REELSMITH_LLM_API_KEYS", "")
	t.Setenv("REELSMITH_NTFY_TOPIC", "")
	chdir(t, base)

	var builder strings.Builder
	fmt.Fprintf(&builder, "[paths]\ndata_dir = %q\nlog_dir = %q\n\n", filepath.Join(base, "data"), filepath.Join(base, "logs"))
	fmt.Fprintf(&builder, "[llm]\nbase_url = %q\n\n", llmURL)
	fmt.Fprintf(&builder, "[logging]\nlevel = \"error\"\n\n")
	for _, key := range keys {
		fmt.Fprintf(&builder, "[[credentials]]\nname = %q\nsecret = %q\n\n", key, "sk-"+key)
	}
	configPath := filepath.Join(base, "reelsmith.toml")
	if err := os.WriteFile(configPath, []byte(builder.String()), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestProduceCommandPrintsProduction(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL, "alpha", "beta")

	out, _, err := runCLI(t, []string{"produce", "--genre", "travel", "--topic", "Harbor life"}, env.configPath)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	requireContains(t, out, "Harbor Life")
	requireContains(t, out, "Status:      completed")
	requireContains(t, out, "The harbor wakes.")
	requireContains(t, out, "harbor, boats, fishing")
	requireContains(t, out, "Credential usage")
	requireContains(t, out, "alpha")
	if strings.Contains(out, "sk-alpha") {
		t.Fatal("secrets must be masked in output")
	}
}

func TestProduceCommandRequiresFlags(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL, "alpha")

	_, _, err := runCLI(t, []string{"produce", "--genre", "travel"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--topic") {
		t.Fatalf("expected missing flag error, got %v", err)
	}
}

func TestProduceCommandWithoutKeysFails(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL)

	_, _, err := runCLI(t, []string{"produce", "--genre", "tech", "--topic", "Qubits"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no credential available") {
		t.Fatalf("expected pool exhaustion, got %v", err)
	}
}

func TestKeysListAndCheck(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL, "alpha", "revoked")

	out, _, err := runCLI(t, []string{"keys", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	requireContains(t, out, "alpha")
	requireContains(t, out, "revoked")
	requireContains(t, out, "********")

	out, _, err = runCLI(t, []string{"keys", "check"}, env.configPath)
	if err == nil {
		t.Fatal("expected keys check to report the revoked key")
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "HTTP 401")
}

func TestGenresCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"genres"}, "")
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	requireContains(t, out, "education")
	requireContains(t, out, "Entertainment")
}

func TestConfigInitAndValidate(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL, "alpha")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Credential keys: 1")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	server := fakeProvider(t)
	env := setupCLITestEnv(t, server.URL)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "nothing sent")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
