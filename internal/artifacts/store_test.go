package artifacts_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsreel/internal/artifacts"
	"newsreel/internal/services"
)

type article struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Published string `json:"published"`
}

type articlesFile struct {
	FetchTime     string    `json:"fetch_time"`
	TotalArticles int       `json:"total_articles"`
	Articles      []article `json:"articles"`
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	want := articlesFile{
		FetchTime:     "2026-10-15T09:00:00Z",
		TotalArticles: 2,
		Articles: []article{
			{Source: "NVIDIA", Title: "New <GPU> & more", Published: "2026-10-15T08:00:00Z"},
			{Source: "SoftBank Group", Title: "決算発表", Published: "2026-10-15T07:30:00Z"},
		},
	}
	if err := artifacts.SaveJSON(path, want); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "決算発表") || !strings.Contains(string(raw), "<GPU>") {
		t.Fatalf("expected unescaped text in %s", raw)
	}

	var got articlesFile
	if err := artifacts.LoadJSON(path, &got); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingIsMissingInput(t *testing.T) {
	var v map[string]any
	err := artifacts.LoadJSON(filepath.Join(t.TempDir(), "nope.json"), &v)
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if _, err := artifacts.LoadText(filepath.Join(t.TempDir(), "nope.md")); !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestLoadCorruptJSONIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := artifacts.LoadJSON(path, &v); !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images", "image_prompts.csv")
	header := []string{"slide_number", "title", "prompt"}
	rows := [][]string{
		{"001", "Intro", "a city skyline, \"neon\""},
		{"002", "Summary", "charts, arrows"},
	}
	if err := artifacts.SaveCSV(path, header, rows); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	got, err := artifacts.LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	want := []map[string]string{
		{"slide_number": "001", "title": "Intro", "prompt": "a city skyline, \"neon\""},
		{"slide_number": "002", "title": "Summary", "prompt": "charts, arrows"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCSVShortRowsAndBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.csv")
	if err := os.WriteFile(path, []byte("\ufeffsymbol,shares,purchase_price,name\nNVDA,10,120.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := artifacts.LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	want := []map[string]string{{"symbol": "NVDA", "shares": "10", "purchase_price": "120.5", "name": ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestLayout(t *testing.T) {
	layout := artifacts.NewLayout("/out", "/pres")
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	checks := map[string]string{
		layout.SlidesDir(day):   "/pres/2026_10_15",
		layout.ImagePath(3):     "/out/images/003.png",
		layout.AudioPath(7):     "/out/video/audio/slide_07.mp3",
		layout.TimingsPath():    "/out/video/video_timings.json",
		layout.ScriptJSONPath(): "/out/scripts/script.json",
	}
	for got, want := range checks {
		if filepath.ToSlash(got) != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	}
}
