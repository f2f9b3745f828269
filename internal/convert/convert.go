// Package convert turns delimited report exports into Markdown documents.
//
// The input encoding and delimiter are detected, a parser is chosen from the
// header row and every row becomes one Markdown document. Output depends only
// on the input bytes and Options, so converting the same report twice yields
// identical documents.
package convert

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrEmptyInput = errors.New("input is empty")
	ErrNoHeader   = errors.New("input has no header row")
)

// Parser names the row layout detected from the header.
type Parser string

const (
	ParserMule     Parser = "mule"
	ParserKB       Parser = "kb"
	ParserGeneric  Parser = "generic"
	ParserFallback Parser = "fallback"
)

type Mode string

const (
	// ModeBundle renders every row into a single document.
	ModeBundle Mode = "bundle"
	// ModePerRow renders one document per row.
	ModePerRow Mode = "per-row"
)

type Options struct {
	Mode Mode
}

type Document struct {
	Name    string
	Content []byte
}

type Output struct {
	Parser    Parser
	IDField   string
	Encoding  string
	Delimiter rune
	Rows      int
	Skipped   int
	Documents []Document
}

// Convert parses raw as the file called name and renders it according to opts.
func Convert(name string, raw []byte, opts Options) (*Output, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyInput
	}

	table, err := readTable(name, raw)
	if err != nil {
		return nil, err
	}

	parser, idField := detectParser(table.Header)

	docs := make([]Document, 0, len(table.Records))
	skipped := 0
	for _, rec := range table.Records {
		r := newRow(table.Header, rec)
		doc, ok := renderRow(parser, idField, r)
		if !ok {
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	docs = dedupeNames(docs)

	out := &Output{
		Parser:    parser,
		IDField:   idField,
		Encoding:  table.Encoding,
		Delimiter: table.Delimiter,
		Rows:      len(table.Records),
		Skipped:   skipped,
	}

	switch opts.Mode {
	case ModePerRow:
		out.Documents = docs
	case ModeBundle, "":
		out.Documents = []Document{bundle(BaseName(name), docs)}
	default:
		return nil, fmt.Errorf("unknown output mode %q", opts.Mode)
	}

	return out, nil
}

// BaseName is the input file name without directories or extension.
func BaseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return "input_report"
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "input_report"
	}
	return base
}
