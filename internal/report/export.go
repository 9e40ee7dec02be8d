package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/quarterly/pkg/format"
)

// BaseName returns the file stem for a report, e.g.
// "hope_house_report_Q3_2024".
func BaseName(r *Report) string {
	client := format.SanitizeFilename(r.Metadata.Client)
	return fmt.Sprintf("%s_report_%s_%d", strings.ToLower(client), r.Metadata.Quarter, r.Metadata.Year)
}

// WriteJSON encodes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// createFile opens an export file for writing. Replaced in tests.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeFile runs write against a new file at path. A failed close is
// reported because it can mean buffered data never reached disk.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes the report into dir and returns the file path.
func SaveJSON(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, BaseName(r)+".json")
	err := writeFile(path, func(w io.Writer) error {
		return WriteJSON(w, r)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// LoadJSON reads a previously exported report.
func LoadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &r, nil
}

// SaveHTML renders the report into dir and returns the file path.
func SaveHTML(dir string, r *Report, renderer *Renderer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, BaseName(r)+".html")
	if err := renderer.RenderToFile(r, path); err != nil {
		return "", err
	}
	return path, nil
}
