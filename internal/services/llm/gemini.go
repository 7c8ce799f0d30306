package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/google"
)

const defaultGeminiModel = "gemini-2.5-flash"

// generator is the slice of llmsdk.LanguageModel the client needs.
type generator interface {
	Generate(ctx context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error)
}

// GeminiClient generates text and images through the Gemini API.
type GeminiClient struct {
	model   generator
	modelID string
	apiKey  string
	timeout time.Duration
}

// NewGeminiClient builds a client for cfg.Model (text or image capable).
func NewGeminiClient(cfg Config) *GeminiClient {
	modelID := strings.TrimSpace(cfg.Model)
	if modelID == "" {
		modelID = defaultGeminiModel
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &GeminiClient{
		model: google.NewGoogleModel(modelID, google.GoogleModelOptions{
			APIKey:  apiKey,
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		}),
		modelID: modelID,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// NewGeminiClientWithModel wraps an existing model, used by tests and
// callers that construct llm-sdk models themselves.
func NewGeminiClientWithModel(model generator, modelID string) *GeminiClient {
	return &GeminiClient{model: model, modelID: modelID, apiKey: "injected", timeout: defaultHTTPTimeout}
}

// CompleteText returns the concatenated text parts of one generation.
func (c *GeminiClient) CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.apiKey == "" {
		return "", missingKeyError("complete text", "gemini")
	}
	input := &llmsdk.LanguageModelInput{
		Messages: []llmsdk.Message{llmsdk.NewUserMessage(textPart(userPrompt))},
	}
	if system := strings.TrimSpace(systemPrompt); system != "" {
		input.SystemPrompt = &system
	}

	resp, err := c.generate(ctx, input)
	if err != nil {
		return "", wrapProviderError("complete text", c.modelID, err)
	}
	var b strings.Builder
	for _, part := range resp.Content {
		if part.TextPart != nil {
			b.WriteString(part.TextPart.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", wrapProviderError("complete text", c.modelID, &emptyContentError{Op: "gemini complete", Snippet: "<no text parts>"})
	}
	return text, nil
}

// GenerateImage requests an image and returns the first image part.
func (c *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Image{}, errors.New("llm image: prompt required")
	}
	if c.apiKey == "" {
		return Image{}, missingKeyError("generate image", "gemini")
	}
	parts := []llmsdk.Part{textPart(req.Prompt)}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, llmsdk.Part{ImagePart: &llmsdk.ImagePart{
			MimeType: req.Reference.MimeType,
			Data:     base64.StdEncoding.EncodeToString(req.Reference.Data),
		}})
	}
	input := &llmsdk.LanguageModelInput{
		Messages:   []llmsdk.Message{llmsdk.NewUserMessage(parts...)},
		Modalities: []llmsdk.Modality{llmsdk.ModalityText, llmsdk.ModalityImage},
	}

	resp, err := c.generate(ctx, input)
	if err != nil {
		return Image{}, wrapProviderError("generate image", c.modelID, err)
	}
	for _, part := range resp.Content {
		if part.ImagePart == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.ImagePart.Data)
		if err != nil {
			return Image{}, wrapProviderError("generate image", "decode image data", err)
		}
		mime := part.ImagePart.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return Image{MimeType: mime, Data: data}, nil
	}
	return Image{}, wrapProviderError("generate image", c.modelID, &emptyContentError{Op: "gemini image", Snippet: "<no image parts>"})
}

// HealthCheck verifies that a key is configured without calling the API.
func (c *GeminiClient) HealthCheck(context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("gemini api key not configured (set GEMINI_API_KEY)")
	}
	return nil
}

func (c *GeminiClient) generate(ctx context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.model.Generate(ctx, input)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("nil model response")
	}
	return resp, nil
}

func textPart(text string) llmsdk.Part {
	return llmsdk.Part{TextPart: &llmsdk.TextPart{Text: strings.TrimSpace(text)}}
}
