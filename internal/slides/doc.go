// Package slides implements the build-slides step. The report is turned into
// a deck by the text model (a fenced YAML document), rendered as a Marp
// markdown file under presentations/YYYY_MM_DD and stored as slides.json.
package slides
