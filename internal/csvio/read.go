// Package csvio reads tabular export files (CSV and XLSX) into rows of
// strings, handling the artifacts these exports tend to carry: byte-order
// marks, Excel formula prefixes, Windows-1252 encoding, and preamble rows
// before the real header.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// MaxHeaderSearchRows is the maximum number of rows to scan for the header.
var MaxHeaderSearchRows = 20

// ReadTable reads a CSV or XLSX file into rows of strings.
// The format is chosen by file extension; anything that is not .xlsx is
// treated as CSV. maxSize limits how many bytes are read (0 = no limit).
func ReadTable(path string, maxSize int64) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
		}
		if info.Size() > maxSize {
			return nil, fmt.Errorf("file %s is %d bytes, exceeds limit of %d", filepath.Base(path), info.Size(), maxSize)
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	return Parse(data, path)
}

// Parse parses raw table bytes, choosing the format from the filename
// extension. Anything that is not .xlsx is treated as CSV.
func Parse(data []byte, filename string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return parseXLSX(data)
	}
	return ParseCSV(data)
}

// ParseCSV parses raw CSV bytes into rows. Invalid UTF-8 input is re-decoded
// as Windows-1252 first, since QuickBooks desktop exports use that encoding.
func ParseCSV(data []byte) ([][]string, error) {
	data = decodeToUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// parseXLSX reads the first sheet of an XLSX workbook.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("xlsx workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// decodeToUTF8 returns the input unchanged when it is already valid UTF-8
// (minus any BOM). Otherwise it decodes the bytes as Windows-1252, which is
// a superset of Latin-1 and covers every byte value.
func decodeToUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return data
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		// Windows-1252 decoding never fails for arbitrary bytes; keep the
		// original input if it somehow does.
		return data
	}
	return decoded
}

// FindHeaderRow scans the first MaxHeaderSearchRows rows for one containing
// every required column name. Extra columns (such as the unnamed leading
// index column QuickBooks emits) are tolerated; matching is by presence,
// not position. Returns -1 if no row matches.
func FindHeaderRow(rows [][]string, required []string) int {
	maxRows := MaxHeaderSearchRows
	if len(rows) < maxRows {
		maxRows = len(rows)
	}

	for i := 0; i < maxRows; i++ {
		if containsHeaders(rows[i], required) {
			return i
		}
	}
	return -1
}

// containsHeaders reports whether every wanted header appears in the row.
func containsHeaders(row, wanted []string) bool {
	for _, w := range wanted {
		found := false
		for _, cell := range row {
			if strings.EqualFold(CleanCell(cell), w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return s
}

// IsEmptyRow reports whether every cell in the row is blank.
func IsEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
