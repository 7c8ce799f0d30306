package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"newsreel/internal/services"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// TextGenerator produces free-form text from a system and user prompt.
type TextGenerator interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// ImageGenerator produces one image per request.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Image, error)
}

// ImageRequest describes an illustration. Reference, when set, is sent
// alongside the prompt so the model can reuse a character design.
type ImageRequest struct {
	Prompt    string
	Reference *Image
}

// Image is raw image bytes plus their MIME type.
type Image struct {
	MimeType string
	Data     []byte
}

// Extension returns the file extension implied by the MIME type.
func (i Image) Extension() string {
	switch strings.ToLower(i.MimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Config captures the runtime settings required to talk to a provider.
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// NewTextGenerator returns the client for cfg.Provider.
func NewTextGenerator(cfg Config) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiClient(cfg), nil
	case ProviderOpenRouter:
		return NewOpenRouterClient(cfg), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "llm", "select provider", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
}

// IsRateLimited reports whether err is a provider quota or rate limit
// rejection (HTTP 429 or RESOURCE_EXHAUSTED).
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var sdkErr *llmsdk.LanguageModelError
	if errors.As(err, &sdkErr) && sdkErr.Kind == llmsdk.StatusCode && sdkErr.Status == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429")
}

// IsRetryable reports whether a provider call failing with err may succeed
// if repeated: timeouts, rate limits, server errors, transport failures and
// empty completions.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return true
	}
	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}
	var sdkErr *llmsdk.LanguageModelError
	if errors.As(err, &sdkErr) {
		switch sdkErr.Kind {
		case llmsdk.Transport:
			return true
		case llmsdk.StatusCode:
			return retryableStatus(sdkErr.Status)
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// missingKeyError reports an unset API key. Retrying cannot fix it.
func missingKeyError(op, provider string) error {
	return services.Wrap(services.ErrConfiguration, "llm", op, "api key required", fmt.Errorf("%s api key not configured", provider))
}

// wrapProviderError tags err with the marker matching its cause.
func wrapProviderError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	marker := services.ErrExternalService
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, "llm", op, message, err)
}
