// Command newsreel turns the day's AI and IT news into a narrated slide
// video.
//
// Typical usage:
//
//	newsreel run                      # every step
//	newsreel run -s build-slides -r daily_report.md
//	newsreel run -a write-narration --slide-file deck_slide.md
//	newsreel run -s render-video --resume
//	newsreel status
//	newsreel runs --limit 20
package main
