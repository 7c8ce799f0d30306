package testsupport

import (
	"context"
	"sync"

	"newsreel/internal/services/llm"
)

// Prompt is one recorded text request.
type Prompt struct {
	System string
	User   string
}

// StubLLM implements llm.TextGenerator and llm.ImageGenerator. Respond and
// Image are called for every request; nil means a fixed reply.
type StubLLM struct {
	Respond func(call int, system, user string) (string, error)
	Image   func(call int, req llm.ImageRequest) (llm.Image, error)

	HealthError error

	mu         sync.Mutex
	prompts    []Prompt
	imageCalls []llm.ImageRequest
}

// CompleteText records the prompt and returns Respond's reply.
func (s *StubLLM) CompleteText(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	call := len(s.prompts)
	s.prompts = append(s.prompts, Prompt{System: system, User: user})
	s.mu.Unlock()
	if s.Respond == nil {
		return "ok", nil
	}
	return s.Respond(call, system, user)
}

// GenerateImage records the request and returns Image's reply.
func (s *StubLLM) GenerateImage(_ context.Context, req llm.ImageRequest) (llm.Image, error) {
	s.mu.Lock()
	call := len(s.imageCalls)
	s.imageCalls = append(s.imageCalls, req)
	s.mu.Unlock()
	if s.Image == nil {
		return llm.Image{MimeType: "image/png", Data: []byte("png")}, nil
	}
	return s.Image(call, req)
}

// HealthCheck returns HealthError.
func (s *StubLLM) HealthCheck(context.Context) error { return s.HealthError }

// Prompts returns a copy of the recorded text requests.
func (s *StubLLM) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}

// ImageRequests returns a copy of the recorded image requests.
func (s *StubLLM) ImageRequests() []llm.ImageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.ImageRequest(nil), s.imageCalls...)
}
