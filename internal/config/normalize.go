package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeImages()
	c.normalizeFeeds()
	if err := c.normalizePortfolio(); err != nil {
		return err
	}
	c.normalizeNarration()
	c.normalizeTTS()
	c.normalizeRender()
	if err := c.normalizeSlides(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.presentations_dir", &c.Paths.PresentationsDir},
		{"paths.character_dir", &c.Paths.CharacterDir},
		{"paths.remotion_dir", &c.Paths.RemotionDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.state_dir", &c.Paths.StateDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = lookupEnv(geminiAPIKeyEnv, googleAPIKeyEnv)
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultGeminiModel
		}
	case ProviderOpenRouter:
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = lookupEnv(openRouterAPIKeyEnv)
		}
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenRouterModel
		}
		if strings.TrimSpace(c.LLM.Referer) == "" {
			c.LLM.Referer = defaultOpenRouterReferer
		}
		if strings.TrimSpace(c.LLM.Title) == "" {
			c.LLM.Title = defaultOpenRouterTitle
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.Language = strings.ToLower(strings.TrimSpace(c.LLM.Language))
	if c.LLM.Language == "" {
		c.LLM.Language = defaultLanguage
	}
}

func (c *Config) normalizeImages() {
	c.Images.APIKey = strings.TrimSpace(c.Images.APIKey)
	if c.Images.APIKey == "" && c.LLM.Provider != ProviderGemini {
		c.Images.APIKey = lookupEnv(geminiAPIKeyEnv, googleAPIKeyEnv)
	}
	if strings.TrimSpace(c.Images.Model) == "" {
		c.Images.Model = defaultImageModel
	}
	if strings.TrimSpace(c.Images.AspectRatio) == "" {
		c.Images.AspectRatio = defaultAspectRatio
	}
	if c.Images.MaxAttempts <= 0 {
		c.Images.MaxAttempts = defaultImageMaxAttempts
	}
	if c.Images.RetryDelaySeconds < 0 {
		c.Images.RetryDelaySeconds = 0
	}
	if c.Images.PromptIntervalSeconds < 0 {
		c.Images.PromptIntervalSeconds = 0
	}
	c.Images.LogoFolder = strings.TrimSpace(c.Images.LogoFolder)
}

func (c *Config) normalizeFeeds() {
	if c.Feeds.HoursAgo <= 0 {
		c.Feeds.HoursAgo = defaultHoursAgo
	}
	if c.Feeds.TimeoutSeconds <= 0 {
		c.Feeds.TimeoutSeconds = defaultFeedTimeoutSeconds
	}
	if strings.TrimSpace(c.Feeds.UserAgent) == "" {
		c.Feeds.UserAgent = defaultFeedUserAgent
	}
	sources := make([]FeedSource, 0, len(c.Feeds.Sources))
	for _, src := range c.Feeds.Sources {
		src.Name = strings.TrimSpace(src.Name)
		src.URL = strings.TrimSpace(src.URL)
		src.Category = strings.TrimSpace(src.Category)
		src.Group = strings.TrimSpace(src.Group)
		if src.URL == "" {
			continue
		}
		if src.Name == "" {
			src.Name = src.URL
		}
		sources = append(sources, src)
	}
	c.Feeds.Sources = sources
}

func (c *Config) normalizePortfolio() error {
	c.Portfolio.APIKey = strings.TrimSpace(c.Portfolio.APIKey)
	if c.Portfolio.APIKey == "" {
		c.Portfolio.APIKey = lookupEnv(finnhubAPIKeyEnv)
	}
	if strings.TrimSpace(c.Portfolio.CSVPath) == "" {
		c.Portfolio.CSVPath = defaultPortfolioCSV
	}
	var err error
	if c.Portfolio.CSVPath, err = expandPath(strings.TrimSpace(c.Portfolio.CSVPath)); err != nil {
		return fmt.Errorf("portfolio.csv_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNarration() {
	if c.Narration.IntervalSeconds < 0 {
		c.Narration.IntervalSeconds = 0
	}
	if c.Narration.MaxAttempts <= 0 {
		c.Narration.MaxAttempts = defaultNarrationAttempts
	}
	if c.Narration.RetryDelaySeconds < 0 {
		c.Narration.RetryDelaySeconds = defaultNarrationRetryDelay
	}
	if c.Narration.RateLimitDelaySeconds < 0 {
		c.Narration.RateLimitDelaySeconds = defaultNarrationRateLimit
	}
}

func (c *Config) normalizeTTS() {
	if strings.TrimSpace(c.TTS.Binary) == "" {
		c.TTS.Binary = defaultTTSBinary
	}
	if strings.TrimSpace(c.TTS.Voice) == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if c.TTS.Concurrency <= 0 {
		c.TTS.Concurrency = defaultTTSConcurrency
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if strings.TrimSpace(c.TTS.FFprobeBinary) == "" {
		c.TTS.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeRender() {
	if strings.TrimSpace(c.Render.NpxBinary) == "" {
		c.Render.NpxBinary = defaultNpxBinary
	}
	if strings.TrimSpace(c.Render.Composition) == "" {
		c.Render.Composition = defaultComposition
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultFPS
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
}

func (c *Config) normalizeSlides() error {
	if strings.TrimSpace(c.Slides.Theme) == "" {
		c.Slides.Theme = defaultSlideTheme
	}
	var err error
	if c.Slides.BackgroundImage, err = expandPath(strings.TrimSpace(c.Slides.BackgroundImage)); err != nil {
		return fmt.Errorf("slides.background_image: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.ClientID = strings.TrimSpace(c.Upload.ClientID)
	if c.Upload.ClientID == "" {
		c.Upload.ClientID = lookupEnv(youtubeClientIDEnv)
	}
	c.Upload.ClientSecret = strings.TrimSpace(c.Upload.ClientSecret)
	if c.Upload.ClientSecret == "" {
		c.Upload.ClientSecret = lookupEnv(youtubeClientSecretEnv)
	}
	c.Upload.RefreshToken = strings.TrimSpace(c.Upload.RefreshToken)
	if c.Upload.RefreshToken == "" {
		c.Upload.RefreshToken = lookupEnv(youtubeRefreshTokenEnv)
	}
	if strings.TrimSpace(c.Upload.CategoryID) == "" {
		c.Upload.CategoryID = defaultUploadCategoryID
	}
	c.Upload.Privacy = strings.ToLower(strings.TrimSpace(c.Upload.Privacy))
	if c.Upload.Privacy == "" {
		c.Upload.Privacy = defaultUploadPrivacy
	}
	tags := make([]string, 0, len(c.Upload.Tags))
	for _, tag := range c.Upload.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	c.Upload.Tags = tags
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = lookupEnv(ntfyTopicEnv)
	}
	c.Notifications.DiscordWebhookURL = strings.TrimSpace(c.Notifications.DiscordWebhookURL)
	if c.Notifications.DiscordWebhookURL == "" {
		c.Notifications.DiscordWebhookURL = lookupEnv(discordWebhookEnv)
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// lookupEnv returns the first non-empty value among the named variables.
func lookupEnv(names ...string) string {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
