// Package tts synthesizes narration audio with the edge-tts CLI.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/services"
	"newsreel/internal/services/command"
)

// DefaultVoice is the Japanese neural voice used when none is configured.
const DefaultVoice = "ja-JP-NanamiNeural"

// Synthesizer renders text to an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps edge-tts invocations.
type Client struct {
	binary  string
	voice   string
	timeout time.Duration
	exec    command.Executor
}

// New constructs an edge-tts client. A zero timeout disables the per-clip
// deadline.
func New(binary, voice string, timeoutSeconds int, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "edge-tts"
	}
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}
	client := &Client{
		binary:  binary,
		voice:   voice,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    command.Local{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Voice returns the configured voice name.
func (c *Client) Voice() string { return c.voice }

// Synthesize writes the spoken text to outputPath (mp3).
func (c *Client) Synthesize(ctx context.Context, text, outputPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrMissingInput, "render-video", "synthesize", "empty narration text", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"--voice", c.voice, "--text", text, "--write-media", outputPath}
	if err := c.exec.Run(runCtx, "", c.binary, args, nil); err != nil {
		marker := services.ErrExternalService
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "render-video", "synthesize", filepath.Base(outputPath), err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalService, "render-video", "synthesize", "edge-tts produced no audio", err)
	}
	return nil
}
