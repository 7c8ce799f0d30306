package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"newsreel/internal/config"
	"newsreel/internal/services/llm"
)

const llmCheckTimeout = 30 * time.Second

// CheckLLM verifies the text model key and, when online is set, makes one
// round trip without retries.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig, online bool) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	if !online {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s key set (%s)", cfg.Provider, cfg.Model)}
	}

	client, err := newHealthClient(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func newHealthClient(cfg config.LLMConfig) (llm.TextGenerator, error) {
	if cfg.Provider == config.ProviderOpenRouter {
		return llm.NewOpenRouterClient(llm.Config(cfg), llm.WithRetryMaxAttempts(1)), nil
	}
	return llm.NewTextGenerator(llm.Config(cfg))
}

// CheckAPIKey passes when key is non-empty.
func CheckAPIKey(name, key string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "API key set"}
}

// CheckFeeds passes when at least one feed source is configured.
func CheckFeeds(cfg *config.Config) Result {
	const name = "News feeds"
	if len(cfg.Feeds.Sources) == 0 {
		return Result{Name: name, Detail: "no feeds configured"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d sources, %dh window", len(cfg.Feeds.Sources), cfg.Feeds.HoursAgo)}
}

// CheckUploadCredentials verifies the OAuth client and refresh token are set.
func CheckUploadCredentials(settings config.Upload) Result {
	const name = "YouTube upload"
	var missing []string
	if strings.TrimSpace(settings.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(settings.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(settings.RefreshToken) == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("credentials set (%s)", settings.Privacy)}
}

// CheckNotifications validates the configured endpoints. No endpoint is not
// a failure.
func CheckNotifications(settings config.Notifications) Result {
	const name = "Notifications"
	var targets []string
	for _, endpoint := range []struct{ label, raw string }{
		{"ntfy", settings.NtfyTopic},
		{"discord", settings.DiscordWebhookURL},
	} {
		raw := strings.TrimSpace(endpoint.raw)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s endpoint is not a URL", endpoint.label)}
		}
		targets = append(targets, endpoint.label)
	}
	if len(targets) == 0 {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(targets, ", ")}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
