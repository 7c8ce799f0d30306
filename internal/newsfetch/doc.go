// Package newsfetch implements the fetch-news step: it reads the configured
// RSS and Atom feeds, keeps entries published inside the requested window and
// persists them to articles.json.
//
// A feed that cannot be fetched or parsed is logged and skipped; the step
// only fails when the result cannot be written.
package newsfetch
