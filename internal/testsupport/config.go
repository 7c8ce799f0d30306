package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"newsreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network-facing features (portfolio, upload, notifications) stay disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Images.APIKey = "test"
	cfgVal.Images.RetryDelaySeconds = 0
	cfgVal.Images.PromptIntervalSeconds = 0
	cfgVal.Narration.IntervalSeconds = 0
	cfgVal.Narration.RetryDelaySeconds = 0
	cfgVal.Narration.RateLimitDelaySeconds = 0
	cfgVal.Paths = config.Paths{
		OutputDir:        filepath.Join(base, "output"),
		PresentationsDir: filepath.Join(base, "presentations"),
		CharacterDir:     filepath.Join(base, "characters"),
		RemotionDir:      filepath.Join(base, "remotion"),
		LogDir:           filepath.Join(base, "logs"),
		StateDir:         filepath.Join(base, "state"),
	}
	cfgVal.Portfolio.Enabled = false
	cfgVal.Upload.Enabled = false
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Notifications.DiscordWebhookURL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLMKey sets the text and image API keys.
func WithLLMKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = key
		b.cfg.Images.APIKey = key
	}
}

// WithRenderEnabled toggles the Remotion render step.
func WithRenderEnabled(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"edge-tts", "ffprobe", "npx"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
