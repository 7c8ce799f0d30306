package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"newsreel/internal/textutil"
)

const (
	colorSuccess   = 3066993
	colorFailure   = 15158332
	maxEmbedFields = 25
	maxFieldValue  = 1024
	maxDescription = 4096
)

// reportSectionOrder lists daily report headings in display order; other
// sections follow in document order.
var reportSectionOrder = []string{
	"エグゼクティブサマリー",
	"重要ファクト",
	"M&A・企業買収",
	"戦略的提携・パートナーシップ",
	"大型契約・受注",
	"新製品・新技術",
	"業績・財務情報",
	"その他の重要情報",
	"投資への示唆",
	"ポートフォリオサマリー",
}

const placeholderSection = "（該当する情報がある場合のみ記載）"

type discordNotifier struct {
	webhookURL string
	client     *http.Client
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (d *discordNotifier) name() string { return "discord" }

func (d *discordNotifier) Publish(ctx context.Context, event Event, payload Payload) error {
	e, ok := discordEmbed(event, payload, time.Now().UTC())
	if !ok {
		return nil
	}
	body, err := json.Marshal(map[string]any{"embeds": []embed{e}})
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	return do(d.client, req)
}

func discordEmbed(event Event, payload Payload, now time.Time) (embed, bool) {
	e := embed{Color: colorSuccess, Timestamp: now.Format(time.RFC3339)}
	switch event {
	case EventReportReady:
		e.Title = payload.text("title", "Daily report")
		description, fields := reportFields(payload.text("report", ""))
		e.Description = description
		e.Fields = fields
	case EventRunFailed:
		msg, _ := ntfyMessage(event, payload)
		e.Title = msg.title
		e.Description = msg.body
		e.Color = colorFailure
	case EventVideoUploaded:
		e.Title = payload.text("title", "Video uploaded")
		e.URL = payload.text("url", "")
		e.Description = e.URL
	case EventTest:
		e.Title = "Newsreel - Test"
		e.Description = "🧪 Notification system test"
	default:
		return embed{}, false
	}
	return e, true
}

// reportFields splits a markdown report into an embed description (text
// before the first "## " heading, minus heading lines) and up to 25 fields.
// Sections longer than 1024 characters are split on line boundaries.
func reportFields(markdown string) (string, []embedField) {
	header, names, sections := parseSections(markdown)

	var kept []string
	for _, line := range strings.Split(header, "\n") {
		if !strings.HasPrefix(line, "#") {
			kept = append(kept, line)
		}
	}
	description := textutil.Truncate(strings.TrimSpace(strings.Join(kept, "\n")), maxDescription, "")

	ordered := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range reportSectionOrder {
		if _, ok := sections[name]; ok {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	for _, name := range names {
		if !seen[name] {
			ordered = append(ordered, name)
		}
	}

	var fields []embedField
	for _, name := range ordered {
		content := strings.TrimSpace(sections[name])
		if content == "" || content == placeholderSection {
			continue
		}
		parts := splitField(content, maxFieldValue)
		for i, part := range parts {
			if len(fields) >= maxEmbedFields {
				return description, fields
			}
			title := name
			if len(parts) > 1 {
				title = fmt.Sprintf("%s (%d/%d)", name, i+1, len(parts))
			}
			fields = append(fields, embedField{Name: title, Value: part})
		}
	}
	return description, fields
}

func parseSections(markdown string) (string, []string, map[string]string) {
	sections := make(map[string]string)
	var names []string
	var header strings.Builder
	current := ""
	var buf []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if current == "" {
			header.WriteString(text)
		} else if _, ok := sections[current]; !ok {
			names = append(names, current)
			sections[current] = text
		}
		buf = buf[:0]
	}
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = strings.TrimSpace(line[3:])
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return header.String(), names, sections
}

func splitField(content string, limit int) []string {
	if len([]rune(content)) <= limit {
		return []string{content}
	}
	var parts []string
	var current strings.Builder
	for _, line := range strings.Split(content, "\n") {
		line = textutil.Truncate(line, limit-1, "")
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(line))+1 > limit {
			parts = append(parts, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimRight(current.String(), "\n"))
	}
	return parts
}

