// Package images implements the generate-images step: one illustration per
// slide, optionally anchored on a character reference image.
//
// Prompts are taken from the context, from a prompts CSV, or written by the
// text model from the deck. A slide whose image cannot be produced after the
// configured attempts is recorded as failed and the batch continues.
package images
