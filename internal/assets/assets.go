package assets

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"reelsmith/internal/store"
)

const defaultWordsPerMinute = 150

// PlaceholderVoice stands in for a text-to-speech service. It derives a
// stable URL per scene and estimates narration length from word count.
type PlaceholderVoice struct {
	BaseURL        string
	WordsPerMinute int
}

// Synthesize returns the placeholder voice URL and estimated duration in seconds.
func (v PlaceholderVoice) Synthesize(ctx context.Context, scene *store.Scene) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if scene == nil || strings.TrimSpace(scene.Text) == "" {
		return "", 0, fmt.Errorf("synthesize voice: scene has no text")
	}
	base := strings.TrimRight(strings.TrimSpace(v.BaseURL), "/")
	if base == "" {
		return "", 0, fmt.Errorf("synthesize voice: base url not configured")
	}
	link, err := url.JoinPath(base, scene.ProjectID, fmt.Sprintf("scene-%d.mp3", scene.Order))
	if err != nil {
		return "", 0, fmt.Errorf("synthesize voice: build url: %w", err)
	}
	return link, EstimateNarrationSeconds(scene.Text, v.WordsPerMinute), nil
}

// EstimateNarrationSeconds converts a word count into speaking time, rounded
// to a tenth of a second. Non-empty text is never shorter than one second.
func EstimateNarrationSeconds(text string, wordsPerMinute int) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = defaultWordsPerMinute
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	seconds := float64(words) / float64(wordsPerMinute) * 60
	seconds = math.Round(seconds*10) / 10
	return math.Max(seconds, 1)
}

// PlaceholderImage stands in for an image generation service and returns a
// labelled placeholder image per scene.
type PlaceholderImage struct {
	BaseURL string
}

// Render returns the placeholder image URL for a scene. The prompt is not
// sent anywhere.
func (r PlaceholderImage) Render(ctx context.Context, scene *store.Scene, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if scene == nil {
		return "", fmt.Errorf("render image: scene is nil")
	}
	base := strings.TrimRight(strings.TrimSpace(r.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("render image: base url not configured")
	}
	return fmt.Sprintf("%s?text=Scene+%d", base, scene.Order), nil
}
