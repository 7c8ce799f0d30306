package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"newsreel/internal/services"
)

type fakeGenerator struct {
	resp  *llmsdk.ModelResponse
	err   error
	input *llmsdk.LanguageModelInput
}

func (f *fakeGenerator) Generate(_ context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error) {
	f.input = input
	return f.resp, f.err
}

func TestGeminiCompleteText(t *testing.T) {
	fake := &fakeGenerator{resp: &llmsdk.ModelResponse{Content: []llmsdk.Part{
		{TextPart: &llmsdk.TextPart{Text: "前半"}},
		{TextPart: &llmsdk.TextPart{Text: "後半"}},
	}}}
	client := NewGeminiClientWithModel(fake, "gemini-test")

	text, err := client.CompleteText(context.Background(), "あなたは編集者です", "要約してください")
	if err != nil {
		t.Fatalf("CompleteText: %v", err)
	}
	if text != "前半後半" {
		t.Fatalf("text = %q", text)
	}
	if fake.input.SystemPrompt == nil || *fake.input.SystemPrompt != "あなたは編集者です" {
		t.Fatalf("system prompt not forwarded: %+v", fake.input.SystemPrompt)
	}
}

func TestGeminiCompleteTextEmptyIsRetryable(t *testing.T) {
	client := NewGeminiClientWithModel(&fakeGenerator{resp: &llmsdk.ModelResponse{}}, "gemini-test")
	_, err := client.CompleteText(context.Background(), "", "prompt")
	if err == nil || !IsRetryable(err) {
		t.Fatalf("expected retryable empty content error, got %v", err)
	}
}

func TestGeminiRateLimitDetection(t *testing.T) {
	sdkErr := &llmsdk.LanguageModelError{Kind: llmsdk.StatusCode, Status: 429}
	client := NewGeminiClientWithModel(&fakeGenerator{err: sdkErr}, "gemini-test")
	_, err := client.CompleteText(context.Background(), "", "prompt")
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected 429 to be retryable")
	}
}

func TestGeminiGenerateImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	fake := &fakeGenerator{resp: &llmsdk.ModelResponse{Content: []llmsdk.Part{
		{TextPart: &llmsdk.TextPart{Text: "here you go"}},
		{ImagePart: &llmsdk.ImagePart{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(png)}},
	}}}
	client := NewGeminiClientWithModel(fake, "gemini-image")

	ref := &Image{MimeType: "image/jpeg", Data: []byte("character")}
	img, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "a robot reading news", Reference: ref})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(img.Data) != string(png) || img.Extension() != ".png" {
		t.Fatalf("unexpected image %+v", img)
	}
	parts := fake.input.Messages[0].UserMessage.Content
	if len(parts) != 2 || parts[1].ImagePart == nil {
		t.Fatalf("expected prompt and reference parts, got %d", len(parts))
	}
	if len(fake.input.Modalities) != 2 {
		t.Fatalf("modalities = %v", fake.input.Modalities)
	}
}

func TestGeminiGenerateImageWithoutImagePart(t *testing.T) {
	fake := &fakeGenerator{resp: &llmsdk.ModelResponse{Content: []llmsdk.Part{{TextPart: &llmsdk.TextPart{Text: "sorry"}}}}}
	client := NewGeminiClientWithModel(fake, "gemini-image")
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	var empty *emptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestGeminiMissingKeyIsConfigurationError(t *testing.T) {
	_, err := NewGeminiClient(Config{}).CompleteText(context.Background(), "", "hello")
	if !errors.Is(err, services.ErrConfiguration) || services.IsRetryable(err) {
		t.Fatalf("CompleteText err = %v, want non-retryable configuration error", err)
	}
	_, err = NewGeminiClient(Config{}).GenerateImage(context.Background(), ImageRequest{Prompt: "chip"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("GenerateImage err = %v, want configuration error", err)
	}
}

func TestGeminiHealthCheckRequiresKey(t *testing.T) {
	if err := NewGeminiClient(Config{}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected missing key error")
	}
	if err := NewGeminiClient(Config{APIKey: "k"}).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
