package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventProjectCompleted, notifications.Payload{"project": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "stage failed",
			event: notifications.EventStageFailed,
			payload: notifications.Payload{
				"stage":   "scenes",
				"project": "Quantum computing",
				"error":   errors.New("upstream generation error: http 503"),
				"hint":    "retry the stage",
			},
			expectTitle:    "Reelsmith - Stage Failed",
			expectMessage:  "❌ Stage scenes failed for Quantum computing: upstream generation error: http 503\nNext: retry the stage",
			expectTags:     "reelsmith,stage,failed",
			expectPriority: "high",
		},
		{
			name:           "pool exhausted",
			event:          notifications.EventPoolExhausted,
			payload:        notifications.Payload{"stage": "script"},
			expectTitle:    "Reelsmith - Credential Pool Exhausted",
			expectMessage:  "🔑 No active credential keys are available (stage script)\nAdd or re-activate a key.",
			expectTags:     "reelsmith,credentials,alert",
			expectPriority: "urgent",
		},
		{
			name:          "project completed",
			event:         notifications.EventProjectCompleted,
			payload:       notifications.Payload{"project": "Ocean life", "scenes": 6},
			expectTitle:   "Reelsmith - Complete",
			expectMessage: "✅ Project complete: Ocean life (6 scenes)",
			expectTags:    "reelsmith,project,completed",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Reelsmith - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "reelsmith,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				body, _ := io.ReadAll(r.Body)
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.StageFailures = false
	cfg.Notifications.PoolExhausted = false
	cfg.Notifications.ProjectCompleted = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventStageFailed,
		notifications.EventPoolExhausted,
		notifications.EventProjectCompleted,
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"stage": "voice"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
