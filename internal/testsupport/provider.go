package testsupport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Prompt markers identify which generation operation produced a prompt.
const (
	MarkerScript      = "You are a scriptwriter"
	MarkerTitles      = "YouTube video titles"
	MarkerDescription = "YouTube video description"
	MarkerTags        = "YouTube tags"
	MarkerScenes      = "Analyze every scene"
	MarkerImagePrompt = "optimized for AI image generation"
)

var markerOrder = []string{
	MarkerScript,
	MarkerTitles,
	MarkerDescription,
	MarkerTags,
	MarkerScenes,
	MarkerImagePrompt,
}

// ProviderCall records one Complete invocation.
type ProviderCall struct {
	APIKey string
	Marker string
	Prompt string
}

type scriptedReply struct {
	handler func(prompt string) (string, error)
	delay   time.Duration
}

// ScriptedProvider is a fake generation provider. Replies are registered per
// prompt marker; when several are queued they are used in order and the
// last one repeats.
type ScriptedProvider struct {
	mu      sync.Mutex
	replies map[string][]scriptedReply
	calls   []ProviderCall
}

// NewScriptedProvider returns a provider with no replies registered. Calls
// for unregistered markers fail.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{replies: make(map[string][]scriptedReply)}
}

// Reply queues a fixed response for prompts carrying marker.
func (p *ScriptedProvider) Reply(marker, response string) *ScriptedProvider {
	return p.Handle(marker, func(string) (string, error) { return response, nil })
}

// Fail queues an error for prompts carrying marker.
func (p *ScriptedProvider) Fail(marker string, err error) *ScriptedProvider {
	return p.Handle(marker, func(string) (string, error) { return "", err })
}

// Handle queues a custom handler for prompts carrying marker.
func (p *ScriptedProvider) Handle(marker string, handler func(prompt string) (string, error)) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[marker] = append(p.replies[marker], scriptedReply{handler: handler})
	return p
}

// Delay queues a fixed response that is returned after d, honouring ctx.
func (p *ScriptedProvider) Delay(marker string, d time.Duration, response string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies[marker] = append(p.replies[marker], scriptedReply{
		handler: func(string) (string, error) { return response, nil },
		delay:   d,
	})
	return p
}

// Complete implements the generation provider contract.
func (p *ScriptedProvider) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	marker := markerFor(prompt)

	p.mu.Lock()
	p.calls = append(p.calls, ProviderCall{APIKey: apiKey, Marker: marker, Prompt: prompt})
	queue := p.replies[marker]
	var reply scriptedReply
	found := len(queue) > 0
	if found {
		reply = queue[0]
		if len(queue) > 1 {
			p.replies[marker] = queue[1:]
		}
	}
	p.mu.Unlock()

	if !found {
		return "", errors.New("scripted provider: no reply registered for prompt")
	}
	if reply.delay > 0 {
		timer := time.NewTimer(reply.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return reply.handler(prompt)
}

// Calls returns a snapshot of every recorded call.
func (p *ScriptedProvider) Calls() []ProviderCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ProviderCall(nil), p.calls...)
}

// CallCount reports how many calls carried marker.
func (p *ScriptedProvider) CallCount(marker string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, call := range p.calls {
		if call.Marker == marker {
			count++
		}
	}
	return count
}

func markerFor(prompt string) string {
	for _, marker := range markerOrder {
		if strings.Contains(prompt, marker) {
			return marker
		}
	}
	return ""
}
