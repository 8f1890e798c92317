// Package csvfile reads app-store review exports.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxPreamble bounds how many leading report lines are skipped while looking
// for the header row. Store exports carry a 12-line preamble.
const maxPreamble = 30

var ErrNoHeader = errors.New("csvfile: no header row with Rating and Review columns")

// Read parses an export into rows keyed by header name. Report preamble lines
// before the header are skipped; surplus columns are ignored and short rows
// padded with "".
func Read(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var header []string
	for i := 0; i < maxPreamble; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile: read header: %w", err)
		}
		if isHeader(rec) {
			header = rec
			break
		}
	}
	if header == nil {
		return nil, ErrNoHeader
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []map[string]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile: read row %d: %w", len(out)+1, err)
		}
		if blank(rec) {
			continue
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadFile opens and parses path.
func ReadFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Latest returns the most recently modified *.csv file in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", err
	}
	var best string
	var bestMod int64
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := st.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = m, mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("csvfile: no csv files in %s", dir)
	}
	return best, nil
}

func isHeader(rec []string) bool {
	var rating, review bool
	for _, c := range rec {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))) {
		case "rating", "review_stars":
			rating = true
		case "review", "text":
			review = true
		}
	}
	return rating && review
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
