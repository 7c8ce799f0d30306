// Package narration implements the write-narration step: it turns a Marp
// deck into one spoken script per slide.
package narration
