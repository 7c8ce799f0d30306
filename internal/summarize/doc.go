// Package summarize implements the summarize step: it turns the fetched
// articles, plus an optional portfolio snapshot, into the Markdown daily
// report. With no articles it writes a canned report instead of calling the
// model.
package summarize
