// Package artifacts owns the on-disk layout of a run's outputs and the JSON,
// text and CSV codecs used to write and reload them.
package artifacts

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/fileutil"
	"newsreel/internal/services"
)

// Layout resolves artifact paths under the output and presentations roots.
type Layout struct {
	OutputDir        string
	PresentationsDir string
}

// NewLayout builds a Layout.
func NewLayout(outputDir, presentationsDir string) Layout {
	return Layout{OutputDir: outputDir, PresentationsDir: presentationsDir}
}

func (l Layout) ArticlesPath() string   { return filepath.Join(l.OutputDir, "articles.json") }
func (l Layout) ReportPath() string     { return filepath.Join(l.OutputDir, "daily_report.md") }
func (l Layout) SlidesPath() string     { return filepath.Join(l.OutputDir, "slides.json") }
func (l Layout) ImagesDir() string      { return filepath.Join(l.OutputDir, "images") }
func (l Layout) PromptsCSVPath() string { return filepath.Join(l.ImagesDir(), "image_prompts.csv") }
func (l Layout) ScriptsDir() string     { return filepath.Join(l.OutputDir, "scripts") }
func (l Layout) ScriptJSONPath() string { return filepath.Join(l.ScriptsDir(), "script.json") }
func (l Layout) ScriptTextPath() string { return filepath.Join(l.ScriptsDir(), "script.txt") }
func (l Layout) VideoDir() string       { return filepath.Join(l.OutputDir, "video") }
func (l Layout) AudioDir() string       { return filepath.Join(l.VideoDir(), "audio") }
func (l Layout) TimingsPath() string    { return filepath.Join(l.VideoDir(), "video_timings.json") }
func (l Layout) VideoPath() string      { return filepath.Join(l.VideoDir(), "output.mp4") }
func (l Layout) UploadPath() string     { return filepath.Join(l.VideoDir(), "upload.json") }

// StockPricesPath returns the portfolio snapshot written before summarize.
func (l Layout) StockPricesPath() string {
	return filepath.Join(l.OutputDir, "stock_prices.json")
}

// SlidesDir returns presentations/YYYY_MM_DD for the given day.
func (l Layout) SlidesDir(day time.Time) string {
	return filepath.Join(l.PresentationsDir, day.Format("2006_01_02"))
}

// ImagePath returns images/NNN.png for a 1-based slide number.
func (l Layout) ImagePath(slideNumber int) string {
	return filepath.Join(l.ImagesDir(), fmt.Sprintf("%03d.png", slideNumber))
}

// AudioPath returns video/audio/slide_NN.mp3 for a 1-based slide index.
func (l Layout) AudioPath(index int) string {
	return filepath.Join(l.AudioDir(), fmt.Sprintf("slide_%02d.mp3", index))
}

// SaveJSON writes v as indented UTF-8 JSON. HTML characters are not escaped
// so Japanese text and markup stay readable.
func SaveJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// LoadJSON decodes path into v. A missing file is reported as ErrMissingInput.
func LoadJSON(path string, v any) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return services.Wrap(services.ErrParse, "artifacts", "load json", filepath.Base(path), err)
	}
	return nil
}

// SaveText writes text verbatim.
func SaveText(path, text string) error {
	return fileutil.WriteFileAtomic(path, []byte(text), 0o644)
}

// LoadText reads a text artifact.
func LoadText(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveCSV writes a header row followed by rows.
func SaveCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// LoadCSV reads a CSV file with a header row into one map per record, keyed
// by header name. Short records leave trailing columns empty.
func LoadCSV(path string) ([]map[string]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "artifacts", "load csv", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	out := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingInput, "artifacts", "read", path, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
