// Package render turns task payloads into Markdown reports and converts
// them to HTML for export.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/xhsassist/internal/claude"
	"github.com/harrison/xhsassist/internal/models"
	"github.com/harrison/xhsassist/internal/orchestrator"
)

// Format is an export format.
type Format string

// Export formats
const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts md, markdown and html.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown format %q (want md or html)", s)
}

// Renderer renders reports. The zero value is not usable; call New.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GitHub-flavoured tables and lists.
func New() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Payload renders the stored payload of a task as Markdown.
func (r *Renderer) Payload(kind models.TaskKind, payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("task has no payload")
	}
	switch kind {
	case models.TaskTranscribe:
		var t models.Transcript
		if err := json.Unmarshal(payload, &t); err != nil {
			return "", fmt.Errorf("decode transcript: %w", err)
		}
		return Transcript(&t), nil
	case models.TaskFetchNote:
		post, err := orchestrator.DecodeNote(payload)
		if err != nil {
			return "", fmt.Errorf("decode note: %w", err)
		}
		return Post(post), nil
	case models.TaskFetchProfile:
		var p models.ProfilePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return "", fmt.Errorf("decode profile: %w", err)
		}
		return Profile(&p), nil
	case models.TaskAnalyze:
		var res claude.Result
		if err := json.Unmarshal(payload, &res); err != nil {
			return "", fmt.Errorf("decode analysis: %w", err)
		}
		return Analysis(&res), nil
	}
	return "", fmt.Errorf("no renderer for task kind %q", kind)
}

// Transcript renders a transcript with its timestamped segments.
func Transcript(t *models.Transcript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDefault(t.Title, "Transcript"))
	if t.URL != "" {
		fmt.Fprintf(&b, "Source: <%s>\n\n", t.URL)
	}
	fmt.Fprintf(&b, "- Duration: %s\n- Words: %d\n- Segments: %d\n\n", clock(t.Duration), t.WordCount, len(t.Segments))

	b.WriteString("## Full text\n\n")
	b.WriteString(strings.TrimSpace(t.FullText))
	b.WriteString("\n")

	if len(t.Segments) > 0 {
		b.WriteString("\n## Segments\n\n| Start | End | Text |\n|---|---|---|\n")
		for _, s := range t.Segments {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", clock(s.Start), clock(s.End), cell(s.Text))
		}
	}
	return b.String()
}

// Post renders one note.
func Post(p *models.Post) string {
	var b strings.Builder
	writePost(&b, p, "#")
	return b.String()
}

func writePost(b *strings.Builder, p *models.Post, level string) {
	fmt.Fprintf(b, "%s %s\n\n", level, orDefault(p.Title, "Untitled note"))
	if p.Author != "" {
		fmt.Fprintf(b, "Author: %s", p.Author)
		if p.PublishTime != "" {
			fmt.Fprintf(b, " · %s", p.PublishTime)
		}
		b.WriteString("\n\n")
	}
	if p.URL != "" {
		fmt.Fprintf(b, "Link: <%s>\n\n", p.URL)
	}
	fmt.Fprintf(b, "| Likes | Comments | Collects | Shares |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		p.Stats.Likes, p.Stats.Comments, p.Stats.Collects, p.Stats.Shares)
	if content := strings.TrimSpace(p.Content); content != "" {
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = "`#" + t + "`"
		}
		fmt.Fprintf(b, "Tags: %s\n\n", strings.Join(tags, " "))
	}
	for i, img := range p.Images {
		fmt.Fprintf(b, "![image %d](%s)\n", i+1, img)
	}
	if len(p.Images) > 0 {
		b.WriteString("\n")
	}
}

// Profile renders a user summary followed by their notes.
func Profile(p *models.ProfilePayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDefault(p.User.Nickname, p.User.ID))
	fmt.Fprintf(&b, "| Followers | Following | Likes | Notes |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		p.User.Followers, p.User.Following, p.User.Likes, len(p.Posts))
	for i := range p.Posts {
		writePost(&b, &p.Posts[i], "##")
	}
	return b.String()
}

// Analysis renders an analyze or generate result.
func Analysis(res *claude.Result) string {
	var b strings.Builder
	if res.Mode == claude.ModeGenerate {
		fmt.Fprintf(&b, "# Rewrites: %s\n\n", orDefault(res.Topic, "new topic"))
	} else {
		b.WriteString("# Structure analysis\n\n")
	}
	if res.Thinking != "" {
		b.WriteString("## Reasoning\n\n")
		b.WriteString(res.Thinking)
		b.WriteString("\n\n")
	}
	if len(res.Notes) == 0 {
		b.WriteString(res.Text)
		b.WriteString("\n")
		return b.String()
	}
	for i, n := range res.Notes {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", i+1, orDefault(n.Title, "Untitled"), n.Body)
	}
	return b.String()
}

// HTML converts Markdown to a standalone HTML document.
func (r *Renderer) HTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// Render produces the document for the given format.
func (r *Renderer) Render(format Format, title string, kind models.TaskKind, payload json.RawMessage) (string, error) {
	md, err := r.Payload(kind, payload)
	if err != nil {
		return "", err
	}
	if format == FormatHTML {
		return r.HTML(title, md)
	}
	return md, nil
}

// clock formats seconds as m:ss or h:mm:ss.
func clock(seconds float64) string {
	total := int(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// cell makes text safe inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
