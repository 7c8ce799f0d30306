package narration

import (
	"regexp"
	"strings"
)

// leadIns match formulaic openings that narrate the presentation instead of
// its content. Each pattern removes one sentence (or line) at a line start.
var leadIns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^.*?原稿を作成.*?(?:。|\n|$)`),
	regexp.MustCompile(`(?m)^.*?スライド\d+.*?(?:。|\n|$)`),
	regexp.MustCompile(`(?m)^(?:では|それでは|次に|続いて|さて|それから)[、，]?.*?(?:。|\n|$)`),
	regexp.MustCompile(`(?m)^.*?(?:このスライド|今回|今日|本日|ここ)(?:では|で|から|について).*?(?:。|\n|$)`),
	regexp.MustCompile(`(?m)^.*?(?:ご紹介|説明|見て|ご覧|解説)(?:します|いたします|しましょう|ください).*?(?:。|\n|$)`),
	regexp.MustCompile(`(?im)^[^\S\n]*(?:here is|here's) (?:the|a|your) (?:script|narration)\b.*?(?:[.:]|\n|$)`),
	regexp.MustCompile(`(?im)^[^\S\n]*(?:in|on) this slide\b.*?(?:\.|\n|$)`),
	regexp.MustCompile(`(?im)^[^\S\n]*(?:next|now|so|okay|alright),? let'?s (?:take a look|look|move on|talk about|turn to)\b.*?(?:\.|\n|$)`),
	regexp.MustCompile(`(?im)^[^\S\n]*slide \d+\b.*?(?:\.|\n|$)`),
}

// CleanLeadIns strips formulaic lead-in sentences from a generated script.
// Each pattern runs once, in order; a sentence exposed by an earlier removal
// is kept even if it reads like a lead-in.
func CleanLeadIns(script string) string {
	cleaned := script
	for _, pattern := range leadIns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// HasLeadIn reports whether script still starts a line with a banned
// lead-in.
func HasLeadIn(script string) bool {
	for _, pattern := range leadIns {
		if pattern.MatchString(script) {
			return true
		}
	}
	return false
}
