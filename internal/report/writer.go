package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Output file names inside the report root.
const (
	HTMLFile     = "report.html"
	ResultsFile  = "results.json"
	SummaryFile  = "summary.json"
	MarkdownFile = "summary.md"
)

// Writer writes run output under one directory.
type Writer struct {
	Dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Writer{Dir: dir}, nil
}

// WriteJSON writes value as indented JSON to name and returns the path.
func (w *Writer) WriteJSON(name string, value any) (string, error) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteBytes(name, payload)
}

// WriteBytes writes data to name and returns the path.
func (w *Writer) WriteBytes(name string, data []byte) (string, error) {
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// WriteRun writes every report format for run.
func (w *Writer) WriteRun(run Run) error {
	if _, err := w.WriteJSON(ResultsFile, run); err != nil {
		return err
	}
	if _, err := w.WriteJSON(SummaryFile, run.Summary); err != nil {
		return err
	}
	if _, err := w.WriteBytes(MarkdownFile, []byte(Markdown(run))); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := RenderHTML(&buf, run); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	_, err := w.WriteBytes(HTMLFile, buf.Bytes())
	return err
}
