package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names the text encoding a delimited file was decoded with.
type Encoding string

// Supported encodings, in the order they are attempted.
const (
	EncodingUTF8BOM  Encoding = "utf-8-sig"
	EncodingUTF8     Encoding = "utf-8"
	EncodingShiftJIS Encoding = "cp932"
	EncodingWorkbook Encoding = "xlsx"
)

// Fallback reports whether decoding needed the legacy code page.
func (e Encoding) Fallback() bool {
	return e == EncodingShiftJIS
}

// ErrUnsupportedFormat is returned for legacy binary (.xls) workbooks.
var ErrUnsupportedFormat = errors.New("table: unsupported file format")

// ErrUnreadable is returned when no decoder yields a table with a header row.
var ErrUnreadable = errors.New("table: unreadable file")

var (
	zipSignature = []byte("PK")
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}
)

type kind int

const (
	kindText kind = iota
	kindWorkbook
	kindLegacyWorkbook
)

func detectKind(data []byte, name string) kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return kindWorkbook
	case ".xls":
		return kindLegacyWorkbook
	}
	switch {
	case bytes.HasPrefix(data, zipSignature):
		return kindWorkbook
	case bytes.HasPrefix(data, oleSignature):
		return kindLegacyWorkbook
	}
	return kindText
}

// ReadFile reads a table from disk, detecting its format from the extension
// and the leading bytes.
func ReadFile(path string) (*Frame, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "table: read file %s", path)
	}
	return Read(data, path)
}

// Read parses raw bytes as a workbook or delimited text. name is only used
// for its extension and may be empty.
func Read(data []byte, name string) (*Frame, Encoding, error) {
	switch detectKind(data, name) {
	case kindLegacyWorkbook:
		return nil, "", eris.Wrap(ErrUnsupportedFormat, "table: legacy .xls workbooks must be re-saved as .xlsx")
	case kindWorkbook:
		f, err := readWorkbook(data)
		if err == nil {
			return f, EncodingWorkbook, nil
		}
		zap.L().Debug("table: workbook parse failed, trying delimited text", zap.Error(err))
	}
	return readText(data)
}

type decoder struct {
	enc Encoding
	dec func([]byte) ([]byte, error)
}

var decoders = []decoder{
	{enc: EncodingUTF8BOM, dec: func(b []byte) ([]byte, error) {
		if !bytes.HasPrefix(b, utf8BOM) {
			return nil, eris.New("table: no byte order mark")
		}
		return transformBytes(unicode.UTF8BOM, b)
	}},
	{enc: EncodingUTF8, dec: func(b []byte) ([]byte, error) {
		if !utf8.Valid(b) {
			return nil, eris.New("table: invalid utf-8")
		}
		return b, nil
	}},
	{enc: EncodingShiftJIS, dec: func(b []byte) ([]byte, error) {
		return transformBytes(japanese.ShiftJIS, b)
	}},
}

func transformBytes(e encoding.Encoding, b []byte) ([]byte, error) {
	out, _, err := transform.Bytes(e.NewDecoder(), b)
	if err != nil {
		return nil, eris.Wrap(err, "table: decode")
	}
	if !utf8.Valid(out) {
		return nil, eris.New("table: decoded text is not valid utf-8")
	}
	return out, nil
}

func readText(data []byte) (*Frame, Encoding, error) {
	var lastErr error
	for _, d := range decoders {
		text, err := d.dec(data)
		if err != nil {
			lastErr = err
			continue
		}
		f, err := parseCSV(bytes.NewReader(text))
		if err != nil {
			lastErr = err
			continue
		}
		return f, d.enc, nil
	}
	return nil, "", eris.Wrapf(ErrUnreadable, "table: delimited text: %v", lastErr)
}

func parseCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("table: no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "table: read header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	f := &Frame{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "table: read row")
		}
		if isBlank(record) {
			continue
		}
		f.Rows = append(f.Rows, record)
	}
	return f, nil
}

func readWorkbook(data []byte) (*Frame, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "table: open workbook")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("table: workbook has no sheets")
	}
	sheet := wb.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("table: no header row")
	}

	header := rowToStrings(sheet.Rows[0], wb.Date1904)
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	f := &Frame{Columns: header}
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row, wb.Date1904)
		if isBlank(cells) {
			continue
		}
		f.Rows = append(f.Rows, cells)
	}
	return f, nil
}

func rowToStrings(row *xlsx.Row, date1904 bool) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell.IsTime() {
			if t, err := cell.GetTime(date1904); err == nil {
				cells[j] = t.Format("2006-01-02")
				continue
			}
		}
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
