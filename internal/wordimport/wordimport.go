// Package wordimport turns an uploaded spreadsheet export into a word list.
package wordimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var ErrEmpty = errors.New("no words found")

type Options struct {
	// Column is the zero-based CSV column holding the word.
	Column int
	// Header skips the first row. When false a first cell equal to "word" is still skipped.
	Header    bool
	Uppercase bool
	// KeepDuplicates disables dropping repeated words.
	KeepDuplicates bool
}

// ParseCSV reads one word per row from column opts.Column. Cells are NFC
// normalized and trimmed; blank cells are skipped.
func ParseCSV(r io.Reader, opts Options) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var cells []string
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}
		if opts.Column >= len(rec) {
			continue
		}
		cell := rec[opts.Column]
		if row == 0 && (opts.Header || strings.EqualFold(strings.TrimSpace(cell), "word")) {
			continue
		}
		cells = append(cells, cell)
	}
	return clean(cells, opts)
}

// ParseLines reads one word per line.
func ParseLines(r io.Reader, opts Options) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return clean(strings.Split(string(b), "\n"), opts)
}

// Normalize applies the same cleanup as the parsers to words given as JSON.
func Normalize(in []string, opts Options) ([]string, error) {
	return clean(in, opts)
}

func clean(in []string, opts Options) ([]string, error) {
	upper := cases.Upper(language.English)
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(norm.NFC.String(w))
		if w == "" {
			continue
		}
		if opts.Uppercase {
			w = upper.String(w)
		}
		if !opts.KeepDuplicates {
			if seen[w] {
				continue
			}
			seen[w] = true
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}
