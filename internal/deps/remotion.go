package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckRemotion reports the Remotion CLI that npx will execute for the
// project in projectDir.
//
// npx prefers the binary installed in the project's node_modules/.bin and
// falls back to a global "remotion" on PATH. A project directory without
// package.json is reported unavailable because npx would have nothing to
// render.
func CheckRemotion(npxCommand, projectDir string) Status {
	result := Status{
		Name:        "Remotion",
		Description: "Renders the narrated slide video",
		Optional:    true,
	}

	projectDir = strings.TrimSpace(projectDir)
	if projectDir == "" {
		result.Detail = "remotion_dir not configured"
		return result
	}
	if _, err := os.Stat(filepath.Join(projectDir, "package.json")); err != nil {
		result.Command = projectDir
		result.Detail = fmt.Sprintf("no package.json in %s", projectDir)
		return result
	}

	npx := strings.TrimSpace(npxCommand)
	if npx == "" {
		npx = "npx"
	}
	if _, err := exec.LookPath(npx); err != nil {
		result.Command = npx
		result.Detail = fmt.Sprintf("binary %q not found", npx)
		return result
	}

	local := filepath.Join(projectDir, "node_modules", ".bin", executableName("remotion"))
	if info, err := os.Stat(local); err == nil && isExecutable(info) {
		result.Command = local
		result.Available = true
		return result
	}
	if global, err := exec.LookPath("remotion"); err == nil {
		result.Command = global
		result.Available = true
		return result
	}

	result.Command = local
	result.Detail = "remotion not installed (run npm install in the project)"
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".cmd"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
