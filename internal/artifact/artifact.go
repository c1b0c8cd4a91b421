// Package artifact saves downloaded spreadsheet artifacts to disk and opens
// them to confirm what the service produced.
package artifact

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Summary describes a saved artifact after opening it.
type Summary struct {
	Path  string
	Sheet string
	Rows  int
	Cols  int
}

// Save writes the artifact bytes under dir, named after the last element of
// the artifact URL, and returns the written path.
func Save(dir, artifactURL string, data []byte) (string, error) {
	name := path.Base(artifactURL)
	if name == "." || name == "/" || name == "" {
		name = "extracted.xlsx"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	outPath := filepath.Join(dir, name)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

// Inspect opens a saved spreadsheet and reports the dimensions of its first
// sheet. Trailing empty rows are not counted, which matches how the sheet
// reads back in a spreadsheet application.
func Inspect(filePath string) (*Summary, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}

	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	return &Summary{
		Path:  filePath,
		Sheet: sheet,
		Rows:  len(rows),
		Cols:  cols,
	}, nil
}
