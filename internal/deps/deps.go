// Package deps reports whether the external programs newsreel shells out to
// can be found.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"newsreel/internal/config"
)

// Requirement defines an external dependency newsreel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the render-video stage needs. The
// renderer is optional: without it the stage still produces audio and
// timings.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "edge-tts", Command: cfg.TTS.Binary, Description: "Narration speech synthesis"},
		{Name: "ffprobe", Command: cfg.TTS.FFprobeBinary, Description: "Audio clip durations"},
		{Name: "npx", Command: cfg.Render.NpxBinary, Description: "Runs the Remotion renderer", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
