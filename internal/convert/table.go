package convert

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSampleSize = 4096

// candidateDelimiters is also the preference order when several fit.
var candidateDelimiters = []rune{',', '\t', ';', '|'}

type table struct {
	Header    []string
	Records   [][]string
	Encoding  string
	Delimiter rune
}

func readTable(name string, raw []byte) (*table, error) {
	if strings.EqualFold(path.Ext(name), ".xlsx") {
		return readXLSX(raw)
	}

	text, enc, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	delim := sniffDelimiter(text)

	t, err := readDelimited(text, delim)
	if err != nil {
		return nil, err
	}
	t.Encoding = enc
	return t, nil
}

// decodeText returns raw as UTF-8 along with the name of the detected
// encoding. Byte order marks win; otherwise valid UTF-8 is kept as is and
// anything else is read as Windows-1252, the usual encoding of Excel exports.
func decodeText(raw []byte) (string, string, error) {
	var enc string
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		enc = "utf-8-sig"
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		enc = "utf-16le"
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		enc = "utf-16be"
	case utf8.Valid(raw):
		return string(raw), "utf-8", nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", "", fmt.Errorf("decode windows-1252: %w", err)
		}
		return string(out), "windows-1252", nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), enc, nil
}

// sniffDelimiter looks at the first records of text and picks the candidate
// that splits them into a consistent number of fields.
func sniffDelimiter(text string) rune {
	sample := text
	truncated := false
	if len(sample) > sniffSampleSize {
		cut := sniffSampleSize
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
		truncated = true
	}

	records := splitRecords(sample)
	if truncated && len(records) > 1 {
		records = records[:len(records)-1]
	}

	for _, d := range candidateDelimiters {
		if consistent(records, d) {
			return d
		}
	}

	firstLine, _, _ := strings.Cut(sample, "\n")
	if strings.ContainsRune(firstLine, '\t') {
		return '\t'
	}
	return ','
}

// splitRecords splits on newlines that are not inside double quotes and
// drops blank records.
func splitRecords(s string) []string {
	var (
		records []string
		inQuote bool
		start   int
	)
	for i, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case '\n':
			if !inQuote {
				records = append(records, s[start:i])
				start = i + 1
			}
		}
	}
	records = append(records, s[start:])

	out := records[:0]
	for _, rec := range records {
		rec = strings.TrimRight(rec, "\r")
		if strings.TrimSpace(rec) != "" {
			out = append(out, rec)
		}
	}
	return out
}

// consistent reports whether d occurs in the header and the same number of
// times in at least 90% of the records.
func consistent(records []string, d rune) bool {
	if len(records) == 0 {
		return false
	}

	freq := make(map[int]int)
	for _, rec := range records {
		freq[countOutsideQuotes(rec, d)]++
	}

	header := countOutsideQuotes(records[0], d)
	if header == 0 {
		return false
	}
	return float64(freq[header])/float64(len(records)) >= 0.9
}

func countOutsideQuotes(s string, d rune) int {
	n := 0
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == d && !inQuote:
			n++
		}
	}
	return n
}

func readDelimited(text string, delim rune) (*table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !hasName(header) {
		return nil, ErrNoHeader
	}

	t := &table{Header: header, Delimiter: delim}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// readXLSX reads the first sheet of a workbook; the first row is the header.
func readXLSX(raw []byte) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	t := &table{Encoding: "xlsx"}
	for rows.Next() {
		rec, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row from sheet %s: %w", sheet, err)
		}
		if t.Header == nil {
			if !hasName(rec) {
				continue
			}
			t.Header = rec
			continue
		}
		if len(rec) == 0 {
			continue
		}
		t.Records = append(t.Records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate rows in sheet %s: %w", sheet, err)
	}
	if t.Header == nil {
		return nil, ErrNoHeader
	}
	return t, nil
}

func hasName(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}
