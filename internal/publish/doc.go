// Package publish implements the upload-video step, which posts the rendered
// video to YouTube.
package publish
