package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains artifact and state directories.
type Paths struct {
	OutputDir        string `toml:"output_dir"`
	PresentationsDir string `toml:"presentations_dir"`
	CharacterDir     string `toml:"character_dir"`
	RemotionDir      string `toml:"remotion_dir"`
	LogDir           string `toml:"log_dir"`
	StateDir         string `toml:"state_dir"`
}

// LLM contains the text model connection settings shared by summarize,
// build-slides, generate-images (prompt writing) and write-narration.
type LLM struct {
	// Provider selects the backend: "gemini" or "openrouter".
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// Language is the output language requested from prompts (ISO 639-1).
	Language string `toml:"language"`
}

// Images contains image generation settings.
type Images struct {
	APIKey                string `toml:"api_key"`
	Model                 string `toml:"model"`
	AspectRatio           string `toml:"aspect_ratio"`
	MaxAttempts           int    `toml:"max_attempts"`
	RetryDelaySeconds     int    `toml:"retry_delay_seconds"`
	PromptIntervalSeconds int    `toml:"prompt_interval_seconds"`
	// LogoFolder is skipped when collecting character references.
	LogoFolder string `toml:"logo_folder"`
}

// FeedSource describes one RSS feed.
type FeedSource struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Category string `toml:"category"`
	Group    string `toml:"group"`
}

// Feeds contains news collection settings.
type Feeds struct {
	HoursAgo       int          `toml:"hours_ago"`
	TimeoutSeconds int          `toml:"timeout_seconds"`
	UserAgent      string       `toml:"user_agent"`
	Sources        []FeedSource `toml:"sources"`
}

// Portfolio contains stock quote settings used to enrich the report.
type Portfolio struct {
	Enabled bool   `toml:"enabled"`
	CSVPath string `toml:"csv_path"`
	APIKey  string `toml:"finnhub_api_key"`
}

// Narration contains script writing settings.
type Narration struct {
	IntervalSeconds       int `toml:"interval_seconds"`
	MaxAttempts           int `toml:"max_attempts"`
	RetryDelaySeconds     int `toml:"retry_delay_seconds"`
	RateLimitDelaySeconds int `toml:"rate_limit_delay_seconds"`
}

// TTS contains speech synthesis settings.
type TTS struct {
	Binary         string `toml:"binary"`
	Voice          string `toml:"voice"`
	Concurrency    int    `toml:"concurrency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Render contains video renderer settings.
type Render struct {
	Enabled        bool   `toml:"enabled"`
	NpxBinary      string `toml:"npx_binary"`
	Composition    string `toml:"composition"`
	FPS            int    `toml:"fps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Slides contains Marp deck settings.
type Slides struct {
	Theme           string `toml:"theme"`
	BackgroundImage string `toml:"background_image"`
}

// Upload contains video hosting settings.
type Upload struct {
	Enabled      bool     `toml:"enabled"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RefreshToken string   `toml:"refresh_token"`
	TitlePrefix  string   `toml:"title_prefix"`
	Tags         []string `toml:"tags"`
	CategoryID   string   `toml:"category_id"`
	Privacy      string   `toml:"privacy"`
	Disclaimer   string   `toml:"disclaimer"`
}

// Notifications contains ntfy and Discord settings.
type Notifications struct {
	NtfyTopic         string `toml:"ntfy_topic"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	RunCompleted      bool   `toml:"run_completed"`
	RunFailed         bool   `toml:"run_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for newsreel.
//
// Configuration sections by stage:
//   - Feeds: fetch-news
//   - Portfolio: summarize (optional stock block)
//   - LLM: summarize, build-slides, generate-images, write-narration
//   - Slides: build-slides
//   - Images: generate-images
//   - Narration: write-narration
//   - TTS, Render: render-video
//   - Upload: upload-video
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Images        Images        `toml:"images"`
	Feeds         Feeds         `toml:"feeds"`
	Portfolio     Portfolio     `toml:"portfolio"`
	Narration     Narration     `toml:"narration"`
	TTS           TTS           `toml:"tts"`
	Render        Render        `toml:"render"`
	Slides        Slides        `toml:"slides"`
	Upload        Upload        `toml:"upload"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("newsreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the artifact tree and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.PresentationsDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunStorePath returns the run history database location.
func (c *Config) RunStorePath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

// LockPath returns the run lock file guarding the output tree.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".newsreel.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved text model connection settings.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// ImageLLM returns the image model settings. The key falls back to [llm]
// when the text provider is gemini.
func (c *Config) ImageLLM() LLMConfig {
	cfg := LLMConfig{
		Provider:       ProviderGemini,
		APIKey:         strings.TrimSpace(c.Images.APIKey),
		Model:          strings.TrimSpace(c.Images.Model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if cfg.APIKey == "" && c.LLM.Provider == ProviderGemini {
		cfg.APIKey = strings.TrimSpace(c.LLM.APIKey)
	}
	return cfg
}
