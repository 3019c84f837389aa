package table

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteCSV writes f as UTF-8 delimited text with a byte order mark so the
// file opens correctly in spreadsheet tools.
func WriteCSV(w io.Writer, f *Frame) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return eris.Wrap(err, "table: write bom")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return eris.Wrap(err, "table: write csv header")
	}
	for _, r := range f.Rows {
		if err := cw.Write(r); err != nil {
			return eris.Wrap(err, "table: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush csv")
}

// WriteXLSX writes f as a single-sheet workbook. Cells are stored as text
// except in the named numeric columns, where parseable values become numbers.
// Identifiers such as "00123" must stay text, so callers list only measure
// columns.
func WriteXLSX(w io.Writer, f *Frame, sheetName string, numeric ...string) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "table: add sheet %q", sheetName)
	}

	isNumeric := make([]bool, len(f.Columns))
	for _, col := range numeric {
		if i := f.Index(col); i >= 0 {
			isNumeric[i] = true
		}
	}

	header := sheet.AddRow()
	for _, c := range f.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range f.Rows {
		row := sheet.AddRow()
		for i, v := range r {
			cell := row.AddCell()
			if i < len(isNumeric) && isNumeric[i] {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(v)
		}
	}

	if err := wb.Write(w); err != nil {
		return eris.Wrap(err, "table: write workbook")
	}
	return nil
}
