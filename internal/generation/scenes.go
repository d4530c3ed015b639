package generation

import (
	"encoding/json"
	"math"
	"strings"
)

// SceneDraft is one scene proposed by the breakdown call. Order is the scene
// number the provider declared, or 0 when it declared none.
type SceneDraft struct {
	Order       int
	Text        string
	ImagePrompt string
}

type rawScene struct {
	Scene            json.RawMessage `json:"scene"`
	Order            json.RawMessage `json:"order"`
	Text             string          `json:"text"`
	ImagePrompt      string          `json:"imagePrompt"`
	ImagePromptSnake string          `json:"image_prompt"`
}

// ParseSceneBreakdown extracts scenes from a free-form provider response. It
// looks for the first balanced JSON array of objects, ignoring code fences
// and bracketed prose such as "[Scene 1]". Any failure yields an empty list;
// entries without text are dropped.
func ParseSceneBreakdown(raw string) []SceneDraft {
	candidate, ok := firstArray(stripCodeFences(raw))
	if !ok {
		return []SceneDraft{}
	}
	var entries []rawScene
	if err := json.Unmarshal([]byte(candidate), &entries); err != nil {
		return []SceneDraft{}
	}
	drafts := make([]SceneDraft, 0, len(entries))
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		order := sceneNumber(entry.Scene)
		if order == 0 {
			order = sceneNumber(entry.Order)
		}
		prompt := strings.TrimSpace(entry.ImagePrompt)
		if prompt == "" {
			prompt = strings.TrimSpace(entry.ImagePromptSnake)
		}
		drafts = append(drafts, SceneDraft{Order: order, Text: text, ImagePrompt: prompt})
	}
	return drafts
}

// AssignOrder returns drafts numbered 1..N. Declared numbers are kept when
// they form a permutation of 1..N, and the result is sorted by them;
// otherwise scenes are numbered by position.
func AssignOrder(drafts []SceneDraft) []SceneDraft {
	out := make([]SceneDraft, len(drafts))
	if declaredPermutation(drafts) {
		for _, draft := range drafts {
			out[draft.Order-1] = draft
		}
		return out
	}
	for i, draft := range drafts {
		draft.Order = i + 1
		out[i] = draft
	}
	return out
}

func declaredPermutation(drafts []SceneDraft) bool {
	if len(drafts) == 0 {
		return false
	}
	seen := make([]bool, len(drafts)+1)
	for _, draft := range drafts {
		if draft.Order < 1 || draft.Order > len(drafts) || seen[draft.Order] {
			return false
		}
		seen[draft.Order] = true
	}
	return true
}

func sceneNumber(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0
	}
	if value, err := number.Int64(); err == nil {
		if value < 1 || value > math.MaxInt32 {
			return 0
		}
		return int(value)
	}
	value, err := number.Float64()
	if err != nil || value < 1 || value > math.MaxInt32 || value != math.Trunc(value) {
		return 0
	}
	return int(value)
}

func stripCodeFences(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstArray returns the first balanced "[...]" whose first non-space
// character after the bracket opens an object or closes the array. Brackets
// inside JSON strings are ignored.
func firstArray(content string) (string, bool) {
	for start := 0; start < len(content); start++ {
		if content[start] != '[' || !arrayShaped(content[start+1:]) {
			continue
		}
		end, ok := matchBracket(content, start)
		if !ok {
			return "", false
		}
		return content[start : end+1], true
	}
	return "", false
}

func arrayShaped(rest string) bool {
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	return trimmed != "" && (trimmed[0] == '{' || trimmed[0] == ']')
}

func matchBracket(content string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
