package gapfill

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sdig/erddap/info/pkg/coverage"
)

// Frame is a row-oriented observation table. The time column holds time.Time values; other
// cells are typically float64, string or nil.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Index returns the position of column, or -1.
func (f *Frame) Index(column string) int {
	for i, c := range f.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// ReadCSV parses tabledap CSV output. The units line ERDDAP writes below the header is skipped
// when the time column's cell reads "UTC". Time cells are parsed as ISO 8601 in UTC, numeric
// cells become float64 ("NaN" included) and empty cells become nil.
func ReadCSV(r io.Reader, timeColumn string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	f := &Frame{Columns: make([]string, len(header))}
	for i, h := range header {
		f.Columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	ti := f.Index(timeColumn)
	if ti < 0 {
		return nil, &ColumnError{Column: timeColumn}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if line == 2 && ti < len(rec) && rec[ti] == "UTC" {
			continue
		}

		row := make([]any, len(f.Columns))
		for i := range f.Columns {
			if i >= len(rec) || rec[i] == "" {
				continue
			}
			if i == ti {
				ts, err := coverage.ParseISO8601(rec[i], time.UTC)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid time %q: %w", line, rec[i], err)
				}
				row[i] = ts
				continue
			}
			if v, err := strconv.ParseFloat(rec[i], 64); err == nil {
				row[i] = v
				continue
			}
			row[i] = rec[i]
		}
		f.Rows = append(f.Rows, row)
	}

	return f, nil
}

// WriteCSV writes f with a single header line. Times are RFC 3339 in UTC, NaN is written as
// "NaN" and nil as an empty cell.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rec := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i := range rec {
			rec[i] = formatCell(cellAt(row, i))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellAt(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(x)) {
			return "NaN"
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
