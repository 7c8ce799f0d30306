package images

import (
	"context"
	"fmt"
	"strings"

	"newsreel/internal/artifacts"
	"newsreel/internal/retry"
	"newsreel/internal/services"
	"newsreel/internal/slides"
)

// PromptRecord is one row of image_prompts.csv.
type PromptRecord struct {
	SlideNumber string `json:"slide_number"`
	Title       string `json:"title"`
	Prompt      string `json:"prompt"`
	Character   string `json:"character"`
	AspectRatio string `json:"aspect_ratio"`
}

var promptHeader = []string{"slide_number", "title", "prompt", "character", "aspect_ratio"}

// SavePrompts writes records as CSV.
func SavePrompts(path string, records []PromptRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.SlideNumber, r.Title, r.Prompt, r.Character, r.AspectRatio}
	}
	return artifacts.SaveCSV(path, promptHeader, rows)
}

// LoadPrompts reads a prompts CSV, filling defaults for missing columns.
func LoadPrompts(path, aspectRatio string) ([]PromptRecord, error) {
	rows, err := artifacts.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	records := make([]PromptRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, normalizeRecord(PromptRecord{
			SlideNumber: row["slide_number"],
			Title:       row["title"],
			Prompt:      row["prompt"],
			Character:   row["character"],
			AspectRatio: row["aspect_ratio"],
		}, i, aspectRatio))
	}
	return records, nil
}

func normalizeRecord(r PromptRecord, index int, aspectRatio string) PromptRecord {
	r.SlideNumber = strings.TrimSpace(r.SlideNumber)
	if r.SlideNumber == "" {
		r.SlideNumber = slideNumber(index)
	}
	if strings.TrimSpace(r.Title) == "" {
		r.Title = fmt.Sprintf("Slide %d", index+1)
	}
	if strings.TrimSpace(r.Character) == "" {
		r.Character = NoCharacter
	}
	if strings.TrimSpace(r.AspectRatio) == "" {
		r.AspectRatio = aspectRatio
	}
	return r
}

func slideNumber(index int) string {
	return fmt.Sprintf("%03d", index+1)
}

const promptSystem = "You write prompts for an image generation model. Reply with the prompt only, in English."

// writePrompts asks the text model for one English prompt per slide, pausing
// between calls.
func (g *Generator) writePrompts(ctx context.Context, deck slides.Deck) ([]PromptRecord, error) {
	if g.text == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "write prompts", "text model not configured", nil)
	}
	records := make([]PromptRecord, 0, len(deck.Slides))
	for i, slide := range deck.Slides {
		if i > 0 {
			if err := g.sleep(ctx, g.promptInterval); err != nil {
				return nil, services.Wrap(services.ErrTimeout, stageName, "write prompts", "canceled", err)
			}
		}
		user := fmt.Sprintf(`Write an image generation prompt in English for an illustration inserted into this slide.

Slide title: %s
Slide content: %s

Requirements:
1. A simple, clean visual
2. No text or lettering in the image
3. Suitable for a business and technology context
4. Composition suited to a %s aspect ratio

Output only the prompt.`, slide.Title, slide.Content, g.aspectRatio)
		var reply string
		err := retry.Do(ctx, retry.Policy{Attempts: 2, Delay: g.retryDelay, Sleep: g.sleep, Retryable: services.IsRetryable},
			func(ctx context.Context, _ int) error {
				var err error
				reply, err = g.text.CompleteText(ctx, promptSystem, user)
				return err
			})
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, stageName, "write prompts", fmt.Sprintf("slide %d", i+1), err)
		}
		records = append(records, normalizeRecord(PromptRecord{
			SlideNumber: slideNumber(i),
			Title:       slide.Title,
			Prompt:      strings.TrimSpace(reply),
			Character:   slide.Character,
		}, i, g.aspectRatio))
	}
	return records, nil
}
