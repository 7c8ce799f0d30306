package workflow

import (
	"fmt"
	"strings"

	"newsreel/internal/stage"
)

// Descriptors returns the fixed step table in pipeline order.
func Descriptors() []stage.Descriptor {
	return []stage.Descriptor{
		{Agent: "researcher", Name: StepFetchNews, Requires: []string{stage.KeyHoursAgo}},
		{Agent: "summarizer", Name: StepSummarize, Requires: []string{stage.KeyArticles}},
		{Agent: "slide_creator", Name: StepBuildSlides, Requires: []string{stage.KeyReport}},
		{Agent: "image_generator", Name: StepGenerateImages, Requires: []string{stage.KeySlidesData}},
		{Agent: "script_writer", Name: StepWriteNarration, Requires: []string{stage.KeySlideFile}},
		{Agent: "video_editor", Name: StepRenderVideo, Requires: []string{stage.KeyScripts}},
		{Agent: "publisher", Name: StepUploadVideo, Requires: []string{stage.KeyVideoFile}},
	}
}

// Bindings pairs the handlers in set with their descriptors. Nil handlers
// are skipped, which is how the upload step stays out of the pipeline when
// uploads are disabled.
func Bindings(set StageSet) []Binding {
	handlers := []stage.Handler{
		set.FetchNews,
		set.Summarize,
		set.BuildSlides,
		set.GenerateImages,
		set.WriteNarration,
		set.RenderVideo,
		set.UploadVideo,
	}
	descriptors := Descriptors()
	bindings := make([]Binding, 0, len(handlers))
	for i, handler := range handlers {
		if handler == nil {
			continue
		}
		bindings = append(bindings, Binding{Descriptor: descriptors[i], Stage: handler})
	}
	return bindings
}

// Steps returns the bound descriptors in order.
func (m *Manager) Steps() []stage.Descriptor {
	out := make([]stage.Descriptor, len(m.bindings))
	for i, b := range m.bindings {
		out[i] = b.Descriptor
	}
	return out
}

// indexOf resolves a step name or agent id.
func (m *Manager) indexOf(name string) (int, error) {
	needle := strings.TrimSpace(name)
	for i, b := range m.bindings {
		if b.Descriptor.Name == needle || b.Descriptor.Agent == needle {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q (known: %s)", ErrUnknownStep, name, strings.Join(m.stepNames(), ", "))
}

func (m *Manager) stepNames() []string {
	names := make([]string, len(m.bindings))
	for i, b := range m.bindings {
		names[i] = b.Descriptor.Name
	}
	return names
}
