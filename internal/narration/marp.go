package narration

import (
	"regexp"
	"strings"
)

// Slide is one parsed Marp slide.
type Slide struct {
	Index   int
	Title   string
	Content string
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// ParseMarp splits a Marp document into slides. Front matter, style blocks,
// directives and image lines are skipped; slides with neither title nor
// content are dropped.
func ParseMarp(doc string) []Slide {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		end := 1
		for end < len(lines) && strings.TrimSpace(lines[end]) != "---" {
			end++
		}
		lines = lines[min(end+1, len(lines)):]
	}

	var (
		slides  []Slide
		block   []string
		inStyle bool
	)
	flush := func() {
		if slide, ok := parseBlock(block); ok {
			slide.Index = len(slides) + 1
			slides = append(slides, slide)
		}
		block = block[:0]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "---" && !inStyle:
			flush()
			continue
		case strings.HasPrefix(trimmed, "<style"):
			inStyle = !strings.Contains(trimmed, "</style>")
			continue
		case inStyle:
			if strings.Contains(trimmed, "</style>") {
				inStyle = false
			}
			continue
		}
		block = append(block, line)
	}
	flush()
	return slides
}

func parseBlock(lines []string) (Slide, bool) {
	var (
		slide   Slide
		content []string
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "marp:"):
			return Slide{}, false
		case strings.HasPrefix(line, "# "):
			slide.Title = stripTags(line[2:])
		case strings.HasPrefix(trimmed, "<!--"), strings.HasPrefix(trimmed, "!["):
		default:
			if text := stripTags(line); text != "" {
				content = append(content, strings.TrimRight(tagPattern.ReplaceAllString(line, ""), " "))
			}
		}
	}
	slide.Content = strings.TrimSpace(strings.Join(content, "\n"))
	if slide.Title == "" && slide.Content == "" {
		return Slide{}, false
	}
	return slide, true
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}
