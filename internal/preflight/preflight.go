package preflight

import (
	"context"
	"strings"

	"newsreel/internal/config"
	"newsreel/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options selects the checks that reach the network.
type Options struct {
	// Online enables the LLM round-trip check. Without it only the key is
	// verified.
	Online bool
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Presentations directory", cfg.Paths.PresentationsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if dir := strings.TrimSpace(cfg.Paths.CharacterDir); dir != "" {
		results = append(results, CheckDirectoryAccess("Character directory", dir))
	}

	results = append(results, CheckLLM(ctx, "Text model", cfg.GetLLM(), opts.Online))
	results = append(results, CheckAPIKey("Image model", cfg.ImageLLM().APIKey))
	results = append(results, CheckFeeds(cfg))

	if cfg.Render.Enabled {
		results = append(results, fromStatus(deps.CheckRemotion(cfg.Render.NpxBinary, cfg.Paths.RemotionDir)))
	} else {
		results = append(results, skipped("Remotion"))
	}
	if cfg.Portfolio.Enabled {
		results = append(results, CheckAPIKey("Finnhub", cfg.Portfolio.APIKey))
	} else {
		results = append(results, skipped("Finnhub"))
	}
	if cfg.Upload.Enabled {
		results = append(results, CheckUploadCredentials(cfg.Upload))
	} else {
		results = append(results, skipped("YouTube upload"))
	}
	results = append(results, CheckNotifications(cfg.Notifications))

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func skipped(name string) Result {
	return Result{Name: name, Passed: true, Detail: "disabled"}
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	if detail == "" {
		detail = status.Command
	}
	return Result{Name: status.Name, Passed: status.Available, Detail: detail}
}
