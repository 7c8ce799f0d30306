package images

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// NoCharacter marks a prompt without a character reference.
const NoCharacter = "none"

// Characters maps a character folder name to its reference image.
type Characters struct {
	names  []string
	images map[string]string
}

// LoadCharacters scans dir for one subdirectory per character and takes the
// first png or jpg in each. The logo folder is skipped. A missing dir yields
// an empty set.
func LoadCharacters(dir, logoFolder string) (Characters, error) {
	set := Characters{images: map[string]string{}}
	if strings.TrimSpace(dir) == "" {
		return set, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return set, err
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == logoFolder {
			continue
		}
		image := firstImage(filepath.Join(dir, entry.Name()))
		if image == "" {
			continue
		}
		set.names = append(set.names, entry.Name())
		set.images[entry.Name()] = image
	}
	slices.Sort(set.names)
	return set, nil
}

func firstImage(dir string) string {
	for _, pattern := range []string{"*.png", "*.jpg"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) > 0 {
			slices.Sort(matches)
			return matches[0]
		}
	}
	return ""
}

// Len returns the number of characters with a reference image.
func (c Characters) Len() int { return len(c.names) }

// Match returns the reference image of the first folder whose name contains
// character.
func (c Characters) Match(character string) (string, bool) {
	character = strings.TrimSpace(character)
	if character == "" || character == NoCharacter || character == "なし" {
		return "", false
	}
	for _, name := range c.names {
		if strings.Contains(name, character) {
			return c.images[name], true
		}
	}
	return "", false
}
