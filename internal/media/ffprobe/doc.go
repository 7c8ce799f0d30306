// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The render-video stage uses Duration to measure each synthesized
// narration clip before laying out the frame timeline.
package ffprobe
