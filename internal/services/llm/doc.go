// Package llm provides the text and image model clients the stages call.
//
// Two text backends sit behind TextGenerator:
//   - GeminiClient talks to the Gemini API through llm-sdk and also serves
//     ImageGenerator for slide illustrations.
//   - OpenRouterClient speaks the OpenRouter chat completions protocol.
//
// # Retry Behaviour
//
// OpenRouterClient retries HTTP 408/429/5xx, network timeouts and empty
// completions with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). GeminiClient makes a single attempt; callers wrap it in their own
// retry policy and use IsRateLimited to back off harder on quota errors.
// Context cancellation aborts retries immediately.
//
// All errors carry services markers: ErrExternalService for provider
// failures, ErrTimeout for deadlines and ErrParse for unusable payloads.
package llm
