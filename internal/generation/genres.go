package generation

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Genre describes one entry of the known genre catalog.
type Genre struct {
	Key   string
	Label string
}

var knownGenres = []string{
	"education",
	"news",
	"story",
	"review",
	"tech",
	"finance",
	"health",
	"entertainment",
	"travel",
	"food",
}

// Genres returns the known genre catalog in display order.
func Genres() []Genre {
	out := make([]Genre, 0, len(knownGenres))
	for _, key := range knownGenres {
		out = append(out, Genre{Key: key, Label: GenreLabel(key)})
	}
	return out
}

// NormalizeGenre lowercases and trims a genre. Unknown genres are accepted.
func NormalizeGenre(genre string) string {
	return strings.ToLower(strings.Join(strings.Fields(genre), " "))
}

// KnownGenre reports whether genre is part of the catalog.
func KnownGenre(genre string) bool {
	return slices.Contains(knownGenres, NormalizeGenre(genre))
}

// GenreLabel renders a genre for display and prompts.
func GenreLabel(genre string) string {
	normalized := NormalizeGenre(genre)
	if normalized == "" {
		return ""
	}
	// Casers carry state, so each call builds its own.
	return cases.Title(language.English).String(normalized)
}
