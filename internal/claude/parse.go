package claude

import (
	"regexp"
	"strings"
)

// GeneratedNote is one rewritten note from a generate request.
type GeneratedNote struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var noteMarker = regexp.MustCompile(`(?m)^\s*===\s*笔记\s*\d+\s*===\s*$`)

// SplitThinking separates the reasoning section from the result section.
// Text without the result header is returned whole as the result.
func SplitThinking(text string) (thinking, result string) {
	idx := strings.Index(text, resultHeader)
	if idx < 0 {
		return "", strings.TrimSpace(text)
	}
	thinking = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[:idx]), thinkingHeader))
	result = strings.TrimSpace(text[idx+len(resultHeader):])
	return thinking, result
}

// ParseGeneratedNotes splits generate output on the note markers. Text
// before the first marker is ignored. A leading "标题：" line becomes the
// title.
func ParseGeneratedNotes(text string) []GeneratedNote {
	locs := noteMarker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	notes := make([]GeneratedNote, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimSpace(text[loc[1]:end])
		if block == "" {
			continue
		}
		notes = append(notes, splitTitle(block))
	}
	return notes
}

func splitTitle(block string) GeneratedNote {
	first, rest, _ := strings.Cut(block, "\n")
	first = strings.TrimSpace(first)
	for _, prefix := range []string{"标题：", "标题:"} {
		if strings.HasPrefix(first, prefix) {
			return GeneratedNote{
				Title: strings.TrimSpace(strings.TrimPrefix(first, prefix)),
				Body:  strings.TrimSpace(rest),
			}
		}
	}
	return GeneratedNote{Body: block}
}
