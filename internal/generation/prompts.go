package generation

import (
	"fmt"
	"strings"
)

const (
	metadataExcerptRunes = 500
	tagsExcerptRunes     = 300
	maxTitles            = 5
	maxTags              = 15
)

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func scriptPrompt(genre, topic string, durationMinutes int) string {
	return fmt.Sprintf(`You are a scriptwriter for YouTube videos.

Genre: %s
Topic: %s
Target length: about %d minutes

Write a script that:
1. Opens with an intro that hooks the viewer
2. Delivers the core content clearly
3. Uses natural transitions
4. Ends with a memorable closing
5. Is written in a conversational, spoken style

Separate scenes with markers in the form [Scene 1], [Scene 2].
For every scene include the narration and a background image description in the form (Image: ...).`,
		GenreLabel(genre), topic, durationMinutes)
}

func titlesPrompt(script, genre string) string {
	return fmt.Sprintf(`Write %d YouTube video titles based on the script below.

Genre: %s
Script summary: %s...

Requirements:
1. Compelling titles that invite a click
2. Around 30 characters
3. Numbers or questions are welcome
4. Optimized for search

Output only the titles, one per line.`,
		maxTitles, GenreLabel(genre), excerpt(script, metadataExcerptRunes))
}

func descriptionPrompt(script, title, genre string) string {
	return fmt.Sprintf(`Write a YouTube video description from the information below.

Title: %s
Genre: %s
Script summary: %s...

Requirements:
1. Summarize the key content in the first 2-3 lines (shown in search results)
2. Work relevant keywords in naturally
3. Include timestamps (for example 00:00 Intro)
4. Add 3-5 related hashtags
5. Close with a call to like and subscribe`,
		title, GenreLabel(genre), excerpt(script, metadataExcerptRunes))
}

func tagsPrompt(script, title, genre string) string {
	return fmt.Sprintf(`Write %d YouTube tags from the information below.

Title: %s
Genre: %s
Script summary: %s...

Requirements:
1. Include high-volume search keywords
2. Include long-tail keywords
3. Include related keywords

Output only the tags, separated by commas.`,
		maxTags, title, GenreLabel(genre), excerpt(script, tagsExcerptRunes))
}

func sceneBreakdownPrompt(script string) string {
	return fmt.Sprintf(`Analyze every scene in the script below and write an image generation prompt for each one.

Script:
%s

Respond in JSON:
[
  {"scene": 1, "text": "narration text", "imagePrompt": "English image prompt"},
  ...
]`, strings.TrimSpace(script))
}

func imagePrompt(description string) string {
	return fmt.Sprintf(`Turn the description below into an English prompt optimized for AI image generation.
Output only the prompt with no other commentary.

Description: %s`, strings.TrimSpace(description))
}
