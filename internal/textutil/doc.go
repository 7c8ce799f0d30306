// Package textutil provides text helpers shared by the stages: filename
// sanitizing for slide decks and rune-aware truncation for feed summaries
// and notification bodies.
package textutil
