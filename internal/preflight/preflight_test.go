package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("detail = %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckUploadCredentials(t *testing.T) {
	result := CheckUploadCredentials(config.Upload{ClientID: "id"})
	if result.Passed || result.Detail != "missing client_secret, refresh_token" {
		t.Fatalf("result = %+v", result)
	}
	result = CheckUploadCredentials(config.Upload{ClientID: "id", ClientSecret: "s", RefreshToken: "r", Privacy: "unlisted"})
	if !result.Passed || !strings.Contains(result.Detail, "unlisted") {
		t.Fatalf("result = %+v", result)
	}
}

func TestCheckNotifications(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Notifications
		passed   bool
		detail   string
	}{
		{"none", config.Notifications{}, true, "not configured"},
		{"both", config.Notifications{NtfyTopic: "https://ntfy.sh/news", DiscordWebhookURL: "https://discord.com/api/webhooks/1/x"}, true, "ntfy, discord"},
		{"bad ntfy", config.Notifications{NtfyTopic: "news"}, false, "ntfy endpoint is not a URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckNotifications(tt.settings)
			if got.Passed != tt.passed || got.Detail != tt.detail {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestCheckLLMOffline(t *testing.T) {
	if got := CheckLLM(context.Background(), "Text model", config.LLMConfig{Provider: "gemini"}, false); got.Passed {
		t.Fatalf("expected missing key to fail: %+v", got)
	}
	got := CheckLLM(context.Background(), "Text model", config.LLMConfig{Provider: "gemini", APIKey: "k", Model: "m"}, false)
	if !got.Passed || got.Detail != "gemini key set (m)" {
		t.Fatalf("got %+v", got)
	}
}

func TestRunAllSkipsDisabledFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Paths.CharacterDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Render.Enabled = false

	results := RunAll(context.Background(), cfg, Options{})
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Remotion", "Finnhub", "YouTube upload"} {
		if r := byName[name]; !r.Passed || r.Detail != "disabled" {
			t.Fatalf("%s = %+v, want disabled", name, r)
		}
	}
	if r := byName["Output directory"]; !r.Passed {
		t.Fatalf("output directory = %+v", r)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}
