// Package remotion renders the narrated slide video with the Remotion CLI.
package remotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/fileutil"
	"newsreel/internal/services"
	"newsreel/internal/services/command"
)

// ErrProjectMissing reports that the Remotion project directory is absent.
var ErrProjectMissing = errors.New("remotion project not found")

// Options configures a Renderer.
type Options struct {
	NpxBinary      string
	ProjectDir     string
	Composition    string
	TimeoutSeconds int
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// Renderer runs `npx remotion render` inside a project directory.
type Renderer struct {
	npx         string
	projectDir  string
	composition string
	timeout     time.Duration
	exec        command.Executor
}

// New constructs a renderer.
func New(opts Options, options ...Option) *Renderer {
	r := &Renderer{
		npx:         strings.TrimSpace(opts.NpxBinary),
		projectDir:  strings.TrimSpace(opts.ProjectDir),
		composition: strings.TrimSpace(opts.Composition),
		timeout:     time.Duration(opts.TimeoutSeconds) * time.Second,
		exec:        command.Local{},
	}
	if r.npx == "" {
		r.npx = "npx"
	}
	if r.composition == "" {
		r.composition = "Video"
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Available reports whether the project directory exists.
func (r *Renderer) Available() error {
	if r.projectDir == "" {
		return fmt.Errorf("%w: remotion_dir not configured", ErrProjectMissing)
	}
	info, err := os.Stat(r.projectDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrProjectMissing, r.projectDir)
	}
	return nil
}

// Render writes props to render_props.json beside outputPath and renders
// the composition into outputPath.
func (r *Renderer) Render(ctx context.Context, props any, outputPath string) error {
	if err := r.Available(); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return fmt.Errorf("encode render props: %w", err)
	}
	absOut, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	propsPath := filepath.Join(filepath.Dir(absOut), "render_props.json")
	if err := fileutil.WriteFileAtomic(propsPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write render props: %w", err)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := []string{"remotion", "render", r.composition, absOut, "--props=" + propsPath}
	if err := r.exec.Run(runCtx, r.projectDir, r.npx, args, nil); err != nil {
		marker := services.ErrExternalService
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, "render-video", "render", r.composition, err)
	}
	if !fileutil.Exists(absOut) {
		return services.Wrap(services.ErrExternalService, "render-video", "render", "renderer produced no file", nil)
	}
	return nil
}
