package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// fileNameReplacer replaces filesystem-unsafe characters and spaces.
var fileNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	"\\", "_",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

const maxFileNameRunes = 80

// SanitizeFileName turns a deck topic into a filename stem. Full-width ASCII
// is folded to its narrow form and the text is NFKC-normalized before unsafe
// characters are replaced; Japanese text is otherwise kept intact.
// Returns "presentation" for input that sanitizes to nothing.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFKC.String(width.Fold.String(name)))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(fileNameReplacer.Replace(name), "_.-")
	name = Truncate(name, maxFileNameRunes, "")
	if name == "" {
		return "presentation"
	}
	return name
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Truncate limits s to limit runes, appending suffix when it cuts.
func Truncate(s string, limit int, suffix string) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + suffix
}
