package slides

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/textutil"
)

// Slide is one page of the deck. Character names an optional illustration
// character used by generate-images.
type Slide struct {
	Title     string `json:"title" yaml:"title"`
	Content   string `json:"content" yaml:"content"`
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
}

// Deck is the slide structure produced from the report.
type Deck struct {
	Topic  string  `json:"topic" yaml:"topic"`
	Slides []Slide `json:"slides" yaml:"slides"`
}

// ParseDeck extracts the fenced yaml block from a model response (or uses
// the whole response) and decodes it. A deck without slides is a ParseError.
func ParseDeck(response string) (Deck, error) {
	payload, ok := llm.ExtractFencedBlock(response, "yaml")
	if !ok {
		payload = response
	}
	var deck Deck
	if err := yaml.Unmarshal([]byte(payload), &deck); err != nil {
		return Deck{}, services.Wrap(services.ErrParse, stageName, "parse deck", "response is not valid YAML", err)
	}
	deck.Topic = strings.TrimSpace(deck.Topic)
	if len(deck.Slides) == 0 {
		return Deck{}, services.Wrap(services.ErrParse, stageName, "parse deck", "deck has no slides", nil)
	}
	return deck, nil
}

// iconReplacer maps emoji to FontAwesome icons. Pairs are tried in order,
// so variation-selector forms come before bare ones.
var iconReplacer = strings.NewReplacer(
	"⚠️", icon("triangle-exclamation"),
	"⚙️", icon("gear"),
	"🖥️", icon("desktop"),
	"📋", icon("clipboard-list"),
	"📰", icon("newspaper"),
	"📊", icon("chart-bar"),
	"📈", icon("chart-line"),
	"📉", icon("chart-line-down"),
	"🤖", icon("robot"),
	"💡", icon("lightbulb"),
	"🔍", icon("magnifying-glass"),
	"⚡", icon("bolt"),
	"🎯", icon("bullseye"),
	"💰", icon("coins"),
	"🏢", icon("building"),
	"🌐", icon("globe"),
	"🔒", icon("lock"),
	"📱", icon("mobile-screen"),
	"💻", icon("laptop"),
	"🎬", icon("clapperboard"),
	"🎥", icon("video"),
	"✅", icon("check"),
	"❌", icon("xmark"),
	"🚀", icon("rocket"),
	"📅", icon("calendar"),
	"🔔", icon("bell"),
	"💎", icon("gem"),
	"🏆", icon("trophy"),
	"📝", icon("pen-to-square"),
	"🔧", icon("wrench"),
	"🎉", icon("party-horn"),
	"👍", icon("thumbs-up"),
	"👎", icon("thumbs-down"),
	"📌", icon("thumbtack"),
	"🔗", icon("link"),
	"📁", icon("folder"),
	"📄", icon("file"),
	"🌟", icon("star"),
	"⭐", icon("star"),
)

func icon(name string) string {
	return `<i class="fa-solid fa-` + name + `"></i>`
}

// emojiPattern covers the pictographic blocks; Japanese text is untouched.
var emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FAFF}\x{2702}-\x{27B0}\x{FE00}-\x{FE0F}\x{1F000}-\x{1F02F}\x{1F0A0}-\x{1F0FF}]+`)

// ReplaceEmoji swaps known emoji for icons and strips the rest.
func ReplaceEmoji(text string) string {
	text = iconReplacer.Replace(text)
	return strings.TrimSpace(emojiPattern.ReplaceAllString(text, ""))
}

const (
	summaryLimit    = 220
	summaryCut      = 200
	summaryBoundary = 150
)

// IsSummary reports whether a slide title marks a summary slide.
func IsSummary(title string) bool {
	return strings.Contains(title, "サマリー") || strings.Contains(strings.ToLower(title), "summary")
}

// TruncateSummary shortens summary content longer than 220 runes to 200,
// backing up to the last sentence or clause boundary after rune 150.
func TruncateSummary(content string) string {
	if utf8.RuneCountInString(content) <= summaryLimit {
		return content
	}
	runes := []rune(content)[:summaryCut]
	last := -1
	for i, r := range runes {
		switch r {
		case '。', '、', '.':
			last = i
		}
	}
	if last > summaryBoundary {
		runes = runes[:last+1]
	}
	return string(runes) + "..."
}

// SafeTopic turns a topic into a filename stem. "ＡＩ" and "AI" give the
// same file.
func SafeTopic(topic string) string {
	return textutil.SanitizeFileName(topic)
}
