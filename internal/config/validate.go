package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Missing API keys are not
// errors here; stages report them through their health checks so that
// partial runs can proceed without every credential.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.PresentationsDir) == "" {
		return errors.New("paths.presentations_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want %q or %q)", c.LLM.Provider, ProviderGemini, ProviderOpenRouter)
	}
	if c.LLM.BaseURL != "" {
		if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateFeeds() error {
	for i, src := range c.Feeds.Sources {
		if err := validateURL(fmt.Sprintf("feeds.sources[%d].url", i), src.URL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FPS > 120 {
		return fmt.Errorf("render.fps must be at most 120, got %d", c.Render.FPS)
	}
	if c.TTS.Concurrency > 32 {
		return fmt.Errorf("tts.concurrency must be at most 32, got %d", c.TTS.Concurrency)
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.Privacy {
	case "public", "private", "unlisted":
	default:
		return fmt.Errorf("upload.privacy: unsupported value %q", c.Upload.Privacy)
	}
	if !c.Upload.Enabled {
		return nil
	}
	var missing []string
	if c.Upload.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Upload.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Upload.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("upload is enabled but upload.%s is not set", strings.Join(missing, ", upload."))
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.DiscordWebhookURL != "" {
		return validateURL("notifications.discord_webhook_url", c.Notifications.DiscordWebhookURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host in %q", field, raw)
	}
	return nil
}
