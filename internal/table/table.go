// Package table reads and writes the rectangular datasets fed to the analysis
// engines: delimited text in several encodings and spreadsheet workbooks.
package table

import (
	"strings"
)

// Frame is an in-memory table of string cells. The first row of the source
// file becomes Columns; every other row is kept verbatim in Rows.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// NewFrame builds a frame from a header and rows.
func NewFrame(columns []string, rows [][]string) *Frame {
	return &Frame{Columns: columns, Rows: rows}
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Index returns the position of col, or -1 when absent.
func (f *Frame) Index(col string) int {
	for i, c := range f.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the frame carries col.
func (f *Frame) Has(col string) bool {
	return f.Index(col) >= 0
}

// Value returns the trimmed cell at (row, col). The second result is false
// when the column is absent, the row is short, or the cell is blank.
func (f *Frame) Value(row int, col string) (string, bool) {
	idx := f.Index(col)
	if idx < 0 || row < 0 || row >= len(f.Rows) {
		return "", false
	}
	r := f.Rows[row]
	if idx >= len(r) {
		return "", false
	}
	v := strings.TrimSpace(r[idx])
	if v == "" {
		return "", false
	}
	return v, true
}

// Set writes v into (row, col), growing the row if needed. Unknown columns
// are ignored.
func (f *Frame) Set(row int, col, v string) {
	idx := f.Index(col)
	if idx < 0 || row < 0 || row >= len(f.Rows) {
		return
	}
	for len(f.Rows[row]) <= idx {
		f.Rows[row] = append(f.Rows[row], "")
	}
	f.Rows[row][idx] = v
}

// Column returns every cell of col in row order (blank for short rows).
func (f *Frame) Column(col string) []string {
	idx := f.Index(col)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		if idx < len(r) {
			out[i] = strings.TrimSpace(r[idx])
		}
	}
	return out
}

// Rename changes column names according to renames (old -> new).
func (f *Frame) Rename(renames map[string]string) {
	for i, c := range f.Columns {
		if n, ok := renames[c]; ok {
			f.Columns[i] = n
		}
	}
}

// Clone returns a deep copy so normalisation never mutates caller data.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Rows:    make([][]string, len(f.Rows)),
	}
	for i, r := range f.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
