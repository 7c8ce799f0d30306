// Package video implements the render-video step: narration audio, the
// frame timeline and the optional Remotion render.
package video
