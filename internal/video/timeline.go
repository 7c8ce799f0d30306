package video

import "fmt"

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 30

// AudioFile is one synthesized narration clip.
type AudioFile struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	AudioFile string `json:"audio_file"`
	Text      string `json:"text"`
}

// Timing is the measured length of one clip.
type Timing struct {
	Index       int     `json:"index"`
	Title       string  `json:"title"`
	DurationMs  int64   `json:"duration_ms"`
	DurationSec float64 `json:"duration_sec"`
	AudioFile   string  `json:"audio_file"`
}

// SlideFrames places one slide on the timeline.
type SlideFrames struct {
	Index          int    `json:"index"`
	Title          string `json:"title"`
	AudioFile      string `json:"audioFile"`
	DurationFrames int    `json:"durationFrames"`
	StartFrame     int    `json:"startFrame"`
	Script         string `json:"script"`
	Image          string `json:"image,omitempty"`
}

// Data is the render input persisted as video_timings.json.
type Data struct {
	FPS              int           `json:"fps"`
	TotalFrames      int           `json:"totalFrames"`
	TotalDurationSec float64       `json:"totalDurationSec"`
	Slides           []SlideFrames `json:"slides"`
	OutputDir        string        `json:"outputDir"`
}

// BuildTimeline lays the clips end to end. Each slide lasts its clip plus
// one second of padding. scripts and images are matched by position and may
// be shorter than timings.
func BuildTimeline(timings []Timing, scripts []string, images []string, fps int, outputDir string) Data {
	if fps <= 0 {
		fps = DefaultFPS
	}
	data := Data{FPS: fps, OutputDir: outputDir, Slides: make([]SlideFrames, 0, len(timings))}
	for i, timing := range timings {
		frames := int(timing.DurationSec*float64(fps)) + fps
		slide := SlideFrames{
			Index:          i + 1,
			Title:          timing.Title,
			AudioFile:      timing.AudioFile,
			DurationFrames: frames,
			StartFrame:     data.TotalFrames,
		}
		if slide.Title == "" {
			slide.Title = fmt.Sprintf("Slide %d", i+1)
		}
		if i < len(scripts) {
			slide.Script = scripts[i]
		}
		if i < len(images) {
			slide.Image = images[i]
		}
		data.Slides = append(data.Slides, slide)
		data.TotalFrames += frames
	}
	data.TotalDurationSec = float64(data.TotalFrames) / float64(fps)
	return data
}
