package convert

import "strings"

const muleIDColumn = "mule jira issue"

var genericIDCandidates = []string{"issue", "id", "name", "subject", "title"}

// detectParser picks the row layout from the header and, for the mule and
// generic layouts, the column whose value names each document.
func detectParser(header []string) (Parser, string) {
	if h, ok := findColumn(header, muleIDColumn); ok {
		return ParserMule, h
	}

	_, hasTitle := findColumn(header, "title")
	_, hasContents := findColumn(header, "contents", "content")
	if hasTitle && hasContents {
		return ParserKB, ""
	}

	for _, candidate := range genericIDCandidates {
		if h, ok := findColumn(header, candidate); ok {
			return ParserGeneric, h
		}
	}

	return ParserFallback, ""
}

// findColumn returns the first header equal to one of names, ignoring case
// and surrounding whitespace.
func findColumn(header []string, names ...string) (string, bool) {
	for _, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if key == n {
				return h, true
			}
		}
	}
	return "", false
}

// row keeps the header order and maps missing trailing fields to "".
type row struct {
	header []string
	values []string
}

func newRow(header, values []string) row {
	return row{header: header, values: values}
}

func (r row) get(column string) string {
	for i, h := range r.header {
		if h == column {
			if i < len(r.values) {
				return r.values[i]
			}
			return ""
		}
	}
	return ""
}

// lookup finds a value by column name ignoring case, trying names in order
// and returning the first non-empty value.
func (r row) lookup(names ...string) string {
	for _, n := range names {
		if h, ok := findColumn(r.header, strings.ToLower(n)); ok {
			if v := r.get(h); v != "" {
				return v
			}
		}
	}
	return ""
}

func (r row) each(fn func(key, value string)) {
	for i, h := range r.header {
		v := ""
		if i < len(r.values) {
			v = r.values[i]
		}
		fn(h, v)
	}
}

// firstValue is the first non-empty field of the row.
func (r row) firstValue() string {
	for i := range r.header {
		if i < len(r.values) && r.values[i] != "" {
			return r.values[i]
		}
	}
	return ""
}
